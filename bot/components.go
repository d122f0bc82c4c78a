package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/sneezeparty/soupy/flux"
)

// Message components are stateless, so the image parameters travel in
// the button custom ids and the prompt in the message embed.
const (
	editButtonId   = "flux_edit_button"
	fancyButtonId  = "flux_fancy_button"
	remixButtonId  = "flux_remix_button"
	randomButtonId = "flux_random_button"
	wideButtonId   = "flux_wide_button"
	tallButtonId   = "flux_tall_button"

	editModalId = "flux_edit_modal"

	promptMarker = "**Prompt:** "
)

type imageParams struct {
	Width  int
	Height int
	Seed   int64
}

func encodeParams(id string, params imageParams) string {
	return fmt.Sprintf("%s:%dx%d:%d", id, params.Width, params.Height, params.Seed)
}

func decodeParams(customId string) (string, imageParams, error) {
	parts := strings.Split(customId, ":")
	if len(parts) != 3 {
		return customId, imageParams{}, fmt.Errorf("malformed component id: %s", customId)
	}
	dims := strings.Split(parts[1], "x")
	if len(dims) != 2 {
		return parts[0], imageParams{}, fmt.Errorf("malformed dimensions in component id: %s", customId)
	}
	width, err := strconv.Atoi(dims[0])
	if err != nil {
		return parts[0], imageParams{}, err
	}
	height, err := strconv.Atoi(dims[1])
	if err != nil {
		return parts[0], imageParams{}, err
	}
	seed, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return parts[0], imageParams{}, err
	}
	return parts[0], imageParams{Width: width, Height: height, Seed: seed}, nil
}

// promptFromEmbeds recovers the prompt text from a generated image
// message.
func promptFromEmbeds(embeds []*discordgo.MessageEmbed) string {
	for _, embed := range embeds {
		if idx := strings.Index(embed.Description, promptMarker); idx != -1 {
			return strings.TrimSpace(embed.Description[idx+len(promptMarker):])
		}
	}
	return ""
}

// remixComponents builds the button rows attached to every generated
// image.
func remixComponents(params imageParams) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "✏️ Edit",
					Style:    discordgo.SuccessButton,
					CustomID: encodeParams(editButtonId, params),
				},
				discordgo.Button{
					Label:    "🪄 Fancy",
					Style:    discordgo.PrimaryButton,
					CustomID: encodeParams(fancyButtonId, params),
				},
				discordgo.Button{
					Label:    "🌱 Remix",
					Style:    discordgo.PrimaryButton,
					CustomID: encodeParams(remixButtonId, params),
				},
			},
		},
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "🔀 Random",
					Style:    discordgo.DangerButton,
					CustomID: encodeParams(randomButtonId, params),
				},
				discordgo.Button{
					Label:    "📏 Wide",
					Style:    discordgo.PrimaryButton,
					CustomID: encodeParams(wideButtonId, params),
				},
				discordgo.Button{
					Label:    "📐 Tall",
					Style:    discordgo.PrimaryButton,
					CustomID: encodeParams(tallButtonId, params),
				},
			},
		},
	}
}

// editModal pre-fills the edit dialog with the current image
// parameters.
func editModal(prompt string, params imageParams) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: editModalId,
			Title:    "🖌️ Edit Image",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  "description",
						Label:     "📝 Description",
						Style:     discordgo.TextInputParagraph,
						Value:     prompt,
						Required:  true,
						MaxLength: 2000,
					},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  "width",
						Label:     "📏 Width",
						Style:     discordgo.TextInputShort,
						Value:     strconv.Itoa(params.Width),
						Required:  true,
						MinLength: 1,
						MaxLength: 5,
					},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  "height",
						Label:     "📐 Height",
						Style:     discordgo.TextInputShort,
						Value:     strconv.Itoa(params.Height),
						Required:  true,
						MinLength: 1,
						MaxLength: 5,
					},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  "seed",
						Label:     "🌱 Seed",
						Style:     discordgo.TextInputShort,
						Value:     strconv.FormatInt(params.Seed, 10),
						Required:  false,
						MaxLength: 10,
					},
				}},
			},
		},
	}
}

// parseModalSubmit reads the edit dialog fields back into image
// parameters. Invalid dimensions are an error, an invalid seed rolls a
// new one.
func parseModalSubmit(data discordgo.ModalSubmitInteractionData) (string, imageParams, error) {
	values := make(map[string]string)
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok {
				values[input.CustomID] = strings.TrimSpace(input.Value)
			}
		}
	}
	prompt := values["description"]
	width, err := strconv.Atoi(values["width"])
	if err != nil {
		return "", imageParams{}, fmt.Errorf("width and height must be valid integers")
	}
	height, err := strconv.Atoi(values["height"])
	if err != nil {
		return "", imageParams{}, fmt.Errorf("width and height must be valid integers")
	}
	seed, err := strconv.ParseInt(values["seed"], 10, 64)
	if err != nil || seed < 0 {
		seed = flux.RandomSeed()
	}
	return prompt, imageParams{
		Width:  flux.AdjustToMultipleOf64(width),
		Height: flux.AdjustToMultipleOf64(height),
		Seed:   seed,
	}, nil
}
