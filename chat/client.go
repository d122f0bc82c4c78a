package chat

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/diag/metrics"
	"github.com/sneezeparty/soupy/diag/status"
	"github.com/sneezeparty/soupy/log"
)

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is a single turn of a conversation sent to the model.
type Message struct {
	Role    string
	Content string
}

type Request struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

type Client interface {
	// Complete sends the conversation to the model and returns the
	// cleaned completion text.
	Complete(ctx context.Context, req Request) (string, error)
	// Check probes the model with a short test prompt.
	Check(ctx context.Context) error
}

type client struct {
	openAi          *openai.Client
	conf            *config.ChatConfig
	statusReporter  status.Reporter
	metricsReporter metrics.Reporter
	log             log.Logger
}

func NewClient(conf *config.ChatConfig, statusReporter status.Reporter, metricsReporter metrics.Reporter, log log.Logger) Client {
	clientConf := openai.DefaultConfig(conf.ApiKey)
	clientConf.BaseURL = conf.BaseUrl
	return &client{
		openAi:          openai.NewClientWithConfig(clientConf),
		conf:            conf,
		statusReporter:  statusReporter,
		metricsReporter: metricsReporter,
		log:             log.WithPrefix("chat"),
	}
}

func (c *client) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.conf.MaxTokens
	}
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}
	start := time.Now()
	resp, err := c.openAi.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.conf.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		c.log.Errorf("chat completion failed: %s", err)
		c.statusReporter.ReportError(status.Chat, "chat completion failed")
		return "", err
	}
	if len(resp.Choices) == 0 {
		c.log.Errorf("chat completion returned no choices")
		c.statusReporter.ReportError(status.Chat, "chat completion returned no choices")
		return "", errors.New("chat completion returned no choices")
	}
	if c.metricsReporter != nil {
		c.metricsReporter.MeasureChatResponse(time.Since(start))
	}
	c.statusReporter.ReportOk(status.Chat, "chat completion succeeded")
	return CleanResponse(resp.Choices[0].Message.Content), nil
}

func (c *client) Check(ctx context.Context) error {
	_, err := c.Complete(ctx, Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "You are a helpful assistant."},
			{Role: RoleUser, Content: "Hello, are you operational?"},
		},
		Temperature: 0,
		MaxTokens:   20,
	})
	return err
}
