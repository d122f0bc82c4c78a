package bot

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sneezeparty/soupy/chat"
	"github.com/sneezeparty/soupy/flux"
	"github.com/sneezeparty/soupy/internal/utils"
	"github.com/sneezeparty/soupy/stats"
)

const defaultNineBallBehaviour = "You are a mystical 9-ball that provides enigmatic answers."

var adminPermission int64 = discordgo.PermissionAdministrator

var applicationCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "flux",
		Description: "Generates an image using the Flux model.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "description",
				Description: "Description of the image to generate",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "size",
				Description: "Size of the image",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "Default (1024x1024)", Value: flux.SizeDefault},
					{Name: "Wide (1920x1024)", Value: flux.SizeWide},
					{Name: "Tall (1024x1920)", Value: flux.SizeTall},
					{Name: "Small (512x512)", Value: flux.SizeSmall},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "seed",
				Description: "Seed for random generation",
			},
		},
	},
	{
		Name:        "random",
		Description: "Generates a random image from the term library.",
	},
	{
		Name:        "status",
		Description: "Displays the current status of the bot, Flux server, and chat functions.",
	},
	{
		Name:                     "stats",
		Description:              "Displays the top 5 users in each category for this server.",
		DefaultMemberPermissions: &adminPermission,
	},
	{
		Name:        "8ball",
		Description: "Ask the Magic 8-Ball a question and get a response.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "question",
				Description: "Your question for the Magic 8-Ball.",
				Required:    true,
			},
		},
	},
	{
		Name:        "9ball",
		Description: "Ask the mystical 9-ball a question and receive a custom response.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "question",
				Description: "Your mystical question for the 9-ball.",
				Required:    true,
			},
		},
	},
	{
		Name:        "whattime",
		Description: "Fetches and displays the current time in a specified city.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "location",
				Description: "The city for which to fetch the current time.",
				Required:    true,
			},
		},
	},
	{
		Name:        "helpsoupy",
		Description: "Displays all available commands.",
	},
}

var actionNames = map[string]string{
	flux.ActionFlux:   "Flux",
	flux.ActionRemix:  "Remix",
	flux.ActionFancy:  "Fancy",
	flux.ActionWide:   "Wide",
	flux.ActionTall:   "Tall",
	flux.ActionEdit:   "Edit",
	flux.ActionRandom: "Random",
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(s, i)
	case discordgo.InteractionModalSubmit:
		b.handleModalSubmit(s, i)
	}
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Name
	if b.metricsReporter != nil {
		b.metricsReporter.IncrementCommand(name)
	}
	b.log.Debugf("command '%s' invoked by %s", name, interactionUser(i).Username)

	switch name {
	case "flux", "random":
		if !b.allowInteraction(s, i) {
			return
		}
	}

	switch name {
	case "flux":
		b.handleFluxCommand(s, i)
	case "random":
		b.handleRandomCommand(s, i)
	case "status":
		b.handleStatusCommand(s, i)
	case "stats":
		b.handleStatsCommand(s, i)
	case "8ball":
		b.handleEightBallCommand(s, i)
	case "9ball":
		b.handleNineBallCommand(s, i)
	case "whattime":
		b.handleWhatTimeCommand(s, i)
	case "helpsoupy":
		b.handleHelpCommand(s, i)
	}
}

// allowInteraction enforces the per-user interaction limit. Owners
// bypass it entirely, exempt roles are recorded but never rejected.
func (b *Bot) allowInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	user := interactionUser(i)
	if b.isOwner(user.ID) {
		return true
	}
	exempt := b.hasExemptRole(i.Member, i.GuildID)
	if b.limiter.Allow(user.ID, exempt) {
		return true
	}
	if b.metricsReporter != nil {
		b.metricsReporter.IncrementRateLimited()
	}
	b.log.Warnf("user %s exceeded interaction limit", user.Username)
	b.respondEphemeral(s, i, fmt.Sprintf("❌ You have reached the maximum of %d interactions per minute. Please wait.", b.conf.RateLimit.PerMinute))
	return false
}

func (b *Bot) handleFluxCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := commandOptions(i)
	description, _ := options["description"].(string)
	size, _ := options["size"].(string)
	width, height := flux.SizeDimensions(size)
	seed := flux.RandomSeed()
	if raw, ok := options["seed"].(float64); ok && raw >= 0 {
		seed = int64(raw)
	}

	b.respondEphemeral(s, i, "🛠️ Your image request has been queued...")
	b.enqueueGeneration(s, i, flux.ActionFlux, description, imageParams{Width: width, Height: height, Seed: seed}, "")
}

func (b *Bot) handleRandomCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.respondEphemeral(s, i, "🛠️ Generating random image...")
	b.enqueueRandomGeneration(s, i)
}

func (b *Bot) handleStatusCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		b.log.Errorf("failed to defer status response: %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fluxStatus := "🟢 Online"
	if err := b.fluxClient.Check(ctx); err != nil {
		fluxStatus = "🔴 Offline"
	}
	chatStatus := "🟢 Online"
	if err := b.chatClient.Check(ctx); err != nil {
		chatStatus = "🔴 Offline"
	}

	embed := &discordgo.MessageEmbed{
		Title: "Bot Status",
		Color: 0x3498db,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Flux Server", Value: fluxStatus},
			{Name: "Chat Functions", Value: chatStatus},
			{Name: "Uptime", Value: utils.FormatUptime(time.Since(b.started))},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Requested by " + interactionUser(i).Username},
	}
	b.followupEmbed(s, i, embed)
}

func (b *Bot) handleStatsCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	topImages, err := b.stats.Top(ctx, i.GuildID, stats.ImagesGenerated, 5)
	if err != nil {
		b.log.Errorf("failed to read image stats: %s", err)
		b.respondEphemeral(s, i, "❌ Failed to read statistics.")
		return
	}
	topChats, err := b.stats.Top(ctx, i.GuildID, stats.ChatResponses, 5)
	if err != nil {
		b.log.Errorf("failed to read chat stats: %s", err)
		b.respondEphemeral(s, i, "❌ Failed to read statistics.")
		return
	}
	if len(topImages) == 0 && len(topChats) == 0 {
		b.respondEphemeral(s, i, "No statistics available for this server yet.")
		return
	}

	guildName := i.GuildID
	if guild, err := s.State.Guild(i.GuildID); err == nil {
		guildName = guild.Name
	}
	embed := &discordgo.MessageEmbed{
		Title: "📊 Server Statistics for " + guildName,
		Color: 0x3498db,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🖼️ Top Image Generators", Value: formatLeaderboard(topImages, stats.ImagesGenerated)},
			{Name: "💬 Top Chatters", Value: formatLeaderboard(topChats, stats.ChatResponses)},
		},
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	}); err != nil {
		b.log.Errorf("failed to send stats response: %s", err)
	}
}

func formatLeaderboard(entries []stats.Entry, stat stats.Stat) string {
	if len(entries) == 0 {
		return "No data yet."
	}
	unit := "images"
	if stat == stats.ChatResponses {
		unit = "responses"
	}
	var buf bytes.Buffer
	for idx, entry := range entries {
		count := entry.Counters.ImagesGenerated
		if stat == stats.ChatResponses {
			count = entry.Counters.ChatResponses
		}
		fmt.Fprintf(&buf, "%d. **%s** - %d %s\n", idx+1, entry.Username, count, unit)
	}
	return buf.String()
}

func (b *Bot) handleEightBallCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	question, _ := commandOptions(i)["question"].(string)
	answer := eightBallAnswer()
	b.respondPlain(s, i, fmt.Sprintf("Question: %q\nThe 8-Ball says: %q", question, answer))
}

func (b *Bot) handleNineBallCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	question, _ := commandOptions(i)["question"].(string)
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		b.log.Errorf("failed to defer 9ball response: %s", err)
		return
	}

	behaviour := b.conf.Chat.NineBallBehaviour
	if behaviour == "" {
		behaviour = defaultNineBallBehaviour
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	reply, err := b.chatClient.Complete(ctx, chat.Request{
		Messages: []chat.Message{
			{Role: chat.RoleSystem, Content: behaviour},
			{Role: chat.RoleUser, Content: question},
		},
		Temperature: chatTemperature,
		MaxTokens:   45,
	})
	if err != nil {
		b.log.Errorf("9ball completion failed: %s", err)
		b.followupEphemeral(s, i, "❌ The 9-Ball is unavailable right now.")
		return
	}
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: fmt.Sprintf("Question: %q\nThe 9-Ball says: %q", question, reply),
	}); err != nil {
		b.log.Errorf("failed to send 9ball response: %s", err)
	}
}

func (b *Bot) handleWhatTimeCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	location, _ := commandOptions(i)["location"].(string)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	answer, err := b.geo.LocalTime(ctx, location)
	if err != nil {
		b.log.Errorf("whattime failed for '%s': %s", location, err)
		b.respondEphemeral(s, i, err.Error())
		return
	}
	b.respondPlain(s, i, answer)
}

func (b *Bot) handleHelpCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var slashCommands bytes.Buffer
	for _, cmd := range applicationCommands {
		fmt.Fprintf(&slashCommands, "**/%s**: %s\n", cmd.Name, cmd.Description)
	}
	prefixCommands := "**!estado** Nick: misiones completadas y pendientes de un nick\n" +
		"**!catalogo**: muestra el catálogo de misiones desde el mensaje fijado\n" +
		"**!misiones_de** Nick: cuenta las misiones completadas de un nick\n" +
		"**!faltantes_de** Nick: misiones del catálogo que faltan\n" +
		"**!resumen** Nick: genera un resumen de las observaciones de un nick\n" +
		"**!formato**: muestra el formato correcto para registrar una misión\n" +
		"**!peticiones**: muestra los comandos especiales\n"

	embed := &discordgo.MessageEmbed{
		Title:       "📚 Soupy Help Menu",
		Description: "Here's a list of all my available commands:",
		Color:       0x3498db,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🔹 Slash Commands", Value: slashCommands.String()},
			{Name: "🔸 Prefix Commands", Value: prefixCommands},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "Use the commands as shown above to interact with me!"},
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		b.log.Errorf("failed to send help response: %s", err)
	}
}

func (b *Bot) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id, params, err := decodeParams(i.MessageComponentData().CustomID)
	if err != nil {
		b.log.Errorf("failed to decode component id: %s", err)
		return
	}
	if !b.allowInteraction(s, i) {
		return
	}
	prompt := ""
	if i.Message != nil {
		prompt = promptFromEmbeds(i.Message.Embeds)
	}
	b.log.Debugf("component '%s' clicked by %s for prompt: '%s'", id, interactionUser(i).Username, prompt)

	switch id {
	case editButtonId:
		if err := s.InteractionRespond(i.Interaction, editModal(prompt, params)); err != nil {
			b.log.Errorf("failed to open edit modal: %s", err)
		}
	case fancyButtonId:
		b.respondEphemeral(s, i, "🛠️ Making it fancy...")
		b.enqueueFancyGeneration(s, i, prompt, params)
	case remixButtonId:
		b.respondEphemeral(s, i, "🛠️ Remixing...")
		params.Seed = flux.RandomSeed()
		b.enqueueGeneration(s, i, flux.ActionRemix, prompt, params, "")
	case randomButtonId:
		b.respondEphemeral(s, i, "🛠️ Generating random image...")
		b.enqueueRandomGeneration(s, i)
	case wideButtonId:
		b.respondEphemeral(s, i, "🛠️ Generating wide version...")
		params.Width, params.Height = flux.SizeDimensions(flux.SizeWide)
		b.enqueueGeneration(s, i, flux.ActionWide, prompt, params, "")
	case tallButtonId:
		b.respondEphemeral(s, i, "🛠️ Generating tall version...")
		params.Width, params.Height = flux.SizeDimensions(flux.SizeTall)
		b.enqueueGeneration(s, i, flux.ActionTall, prompt, params, "")
	}
}

func (b *Bot) handleModalSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.allowInteraction(s, i) {
		return
	}
	prompt, params, err := parseModalSubmit(i.ModalSubmitData())
	if err != nil {
		b.respondEphemeral(s, i, "❌ Width and Height must be valid integers.")
		return
	}
	b.respondEphemeral(s, i, "🛠️ Updating parameters...")
	b.enqueueGeneration(s, i, flux.ActionEdit, prompt, params, "")
}

// enqueueGeneration queues a render job. The details of the job run on
// the queue worker, the interaction token stays valid long enough for
// the followup.
func (b *Bot) enqueueGeneration(s *discordgo.Session, i *discordgo.InteractionCreate, action string, prompt string, params imageParams, selectedTerms string) {
	queueSize := b.queue.Size()
	job := flux.Job{
		Action: action,
		Run: func(ctx context.Context) {
			b.generateImage(ctx, s, i, action, prompt, params, selectedTerms, queueSize, 0)
		},
	}
	if err := b.queue.Enqueue(job); err != nil {
		b.log.Errorf("failed to queue %s generation: %s", action, err)
		b.followupEphemeral(s, i, "❌ The image queue is unavailable right now.")
	}
}

func (b *Bot) enqueueRandomGeneration(s *discordgo.Session, i *discordgo.InteractionCreate) {
	queueSize := b.queue.Size()
	job := flux.Job{
		Action: flux.ActionRandom,
		Run: func(ctx context.Context) {
			start := time.Now()
			generated, selectedTerms, err := b.prompts.Random(ctx)
			if err != nil {
				b.log.Errorf("failed to generate random prompt: %s", err)
				b.followupEphemeral(s, i, "❌ Failed to generate a random prompt.")
				return
			}
			width, height := flux.RandomDimensions()
			params := imageParams{Width: width, Height: height, Seed: flux.RandomSeed()}
			b.generateImage(ctx, s, i, flux.ActionRandom, generated, params, selectedTerms, queueSize, time.Since(start))
		},
	}
	if err := b.queue.Enqueue(job); err != nil {
		b.log.Errorf("failed to queue random generation: %s", err)
		b.followupEphemeral(s, i, "❌ The image queue is unavailable right now.")
	}
}

func (b *Bot) enqueueFancyGeneration(s *discordgo.Session, i *discordgo.InteractionCreate, prompt string, params imageParams) {
	queueSize := b.queue.Size()
	job := flux.Job{
		Action: flux.ActionFancy,
		Run: func(ctx context.Context) {
			start := time.Now()
			elaborated, err := b.prompts.Fancy(ctx, prompt)
			if err != nil {
				b.log.Errorf("failed to elaborate prompt: %s", err)
				b.followupEphemeral(s, i, "❌ Error during fancy transformation.")
				return
			}
			b.generateImage(ctx, s, i, flux.ActionFancy, elaborated, params, "", queueSize, time.Since(start))
		},
	}
	if err := b.queue.Enqueue(job); err != nil {
		b.log.Errorf("failed to queue fancy generation: %s", err)
		b.followupEphemeral(s, i, "❌ The image queue is unavailable right now.")
	}
}

// generateImage renders the image and posts it with the remix buttons
// attached.
func (b *Bot) generateImage(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, action string, prompt string, params imageParams, selectedTerms string, queueSize int, preDuration time.Duration) {
	start := time.Now()
	data, err := b.fluxClient.Generate(ctx, flux.Request{
		Prompt: prompt,
		Width:  params.Width,
		Height: params.Height,
		Seed:   params.Seed,
		Action: action,
	})
	if err != nil {
		b.log.Errorf("image generation failed for %s: %s", interactionUser(i).Username, err)
		b.followupEphemeral(s, i, "❌ The Flux server is currently unavailable.")
		return
	}
	totalDuration := preDuration + time.Since(start)

	user := interactionUser(i)
	if err := b.stats.Increment(ctx, user.ID, user.Username, i.GuildID, stats.ImagesGenerated); err != nil {
		b.log.Errorf("failed to record generated image: %s", err)
	}
	if b.metricsReporter != nil {
		b.metricsReporter.IncrementImageGenerated(i.GuildID, action)
	}

	description := promptMarker + prompt
	if selectedTerms != "" && selectedTerms != prompt {
		description = "**Selected Terms:** " + selectedTerms + "\n\n" + description
	}
	descriptionEmbed := &discordgo.MessageEmbed{Description: description, Color: 0x3498db}
	detailsEmbed := &discordgo.MessageEmbed{
		Description: fmt.Sprintf("🌱 %d 🔄 %s ⏱️ %.2fs 📋 %d", params.Seed, actionNames[action], totalDuration.Seconds(), queueSize+1),
		Color:       0x2ecc71,
	}

	_, err = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: user.Mention() + " 🖼️ Generated Image:",
		Embeds:  []*discordgo.MessageEmbed{descriptionEmbed, detailsEmbed},
		Files: []*discordgo.File{{
			Name:        flux.UniqueFilename(prompt),
			ContentType: "image/png",
			Reader:      bytes.NewReader(data),
		}},
		Components: remixComponents(params),
	})
	if err != nil {
		b.log.Errorf("failed to deliver generated image: %s", err)
		return
	}
	b.log.Reportf("image generation completed for %s in %.2fs", user.Username, totalDuration.Seconds())
}

func (b *Bot) respondPlain(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	}); err != nil {
		b.log.Errorf("failed to respond to interaction: %s", err)
	}
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}); err != nil {
		b.log.Errorf("failed to respond to interaction: %s", err)
	}
}

func (b *Bot) followupEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		b.log.Errorf("failed to send followup: %s", err)
	}
}

func (b *Bot) followupEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	}); err != nil {
		b.log.Errorf("failed to send followup embed: %s", err)
	}
}

func commandOptions(i *discordgo.InteractionCreate) map[string]interface{} {
	options := make(map[string]interface{})
	for _, option := range i.ApplicationCommandData().Options {
		options[option.Name] = option.Value
	}
	return options
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
