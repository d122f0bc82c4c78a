package prompt

import (
	"context"
	"math/rand"
	"strings"

	"github.com/sneezeparty/soupy/chat"
	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/log"
)

// Generator builds image prompts, either directly from randomly
// selected terms or by asking the model to elaborate on them.
type Generator struct {
	library    *Library
	chatClient chat.Client
	conf       *config.ChatConfig
	log        log.Logger
}

func NewGenerator(library *Library, chatClient chat.Client, conf *config.ChatConfig, log log.Logger) *Generator {
	return &Generator{
		library:    library,
		chatClient: chatClient,
		conf:       conf,
		log:        log.WithPrefix("prompt"),
	}
}

// Random produces a prompt for a random image. Half the time the
// selected terms are used verbatim, otherwise the model elaborates
// them into a full scene description. The second return value lists
// the terms that went into the prompt.
func (g *Generator) Random(ctx context.Context) (string, string, error) {
	terms := g.library.RandomTerms()
	selectedTerms := strings.Join(terms.Flatten(), ", ")

	if rand.Float64() < 0.5 || g.conf.RandomPrompt == "" {
		g.log.Debugf("using terms directly as prompt: %s", selectedTerms)
		return selectedTerms, selectedTerms, nil
	}

	styleEmphasis := "The image should be rendered combining these artistic styles: " + strings.Join(terms.Styles, ", ") + ". " +
		"These artistic styles should be the dominant visual characteristics, " +
		"blended together, with the following elements incorporated within these styles: "
	var otherTerms []string
	otherTerms = append(otherTerms, terms.Themes...)
	if terms.Character != "" {
		otherTerms = append(otherTerms, terms.Character)
	}
	combinedPrompt := g.conf.RandomPrompt + " " + styleEmphasis + strings.Join(otherTerms, ", ")

	generated, err := g.chatClient.Complete(ctx, chat.Request{
		Messages: []chat.Message{
			{Role: chat.RoleSystem, Content: "You are an assistant that creates image prompts with strong emphasis on artistic style. " +
				"The artistic rendering style should be prominently featured in your prompt, affecting every element described."},
			{Role: chat.RoleUser, Content: combinedPrompt},
		},
		Temperature: 0.8,
		MaxTokens:   325,
	})
	if err != nil {
		return "", "", err
	}
	g.log.Debugf("generated random prompt: %s", generated)
	return generated, selectedTerms, nil
}

// Fancy asks the model to rewrite a prompt into a more elaborate one.
func (g *Generator) Fancy(ctx context.Context, prompt string) (string, error) {
	combined := g.conf.FancyInstructions + "\n\nThe prompt you are elaborating on is: " + prompt
	rewritten, err := g.chatClient.Complete(ctx, chat.Request{
		Messages: []chat.Message{
			{Role: chat.RoleSystem, Content: combined},
			{Role: chat.RoleUser, Content: "Please rewrite the above prompt accordingly."},
		},
		Temperature: 0.7,
		MaxTokens:   150,
	})
	if err != nil {
		return "", err
	}
	g.log.Debugf("fancy prompt: %s", rewritten)
	return rewritten, nil
}
