// Package bot wires the Discord gateway to the chat and image
// generation backends.
package bot

import (
	"context"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sneezeparty/soupy/chat"
	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/diag/metrics"
	"github.com/sneezeparty/soupy/diag/status"
	"github.com/sneezeparty/soupy/flux"
	"github.com/sneezeparty/soupy/geo"
	"github.com/sneezeparty/soupy/internal/utils"
	"github.com/sneezeparty/soupy/log"
	"github.com/sneezeparty/soupy/prompt"
	"github.com/sneezeparty/soupy/stats"
	"github.com/sneezeparty/soupy/vision"
	"github.com/sneezeparty/soupy/webtext"
)

const chatTemperature = 0.8

type Bot struct {
	conf    *config.Config
	session *discordgo.Session

	chatClient chat.Client
	fluxClient flux.Client
	queue      *flux.Queue
	vision     *vision.Analyzer
	summarizer *webtext.Summarizer
	prompts    *prompt.Generator
	geo        *geo.Service
	stats      *stats.Tracker

	statusReporter  status.Reporter
	metricsReporter metrics.Reporter
	limiter         *rateLimiter
	log             log.Logger

	started         time.Time
	triggerPattern  *regexp.Regexp
	owners          map[string]bool
	exemptRoles     map[string]bool
	allowedChannels map[string]bool
}

type Dependencies struct {
	ChatClient      chat.Client
	FluxClient      flux.Client
	Queue           *flux.Queue
	Vision          *vision.Analyzer
	Summarizer      *webtext.Summarizer
	Prompts         *prompt.Generator
	Geo             *geo.Service
	Stats           *stats.Tracker
	StatusReporter  status.Reporter
	MetricsReporter metrics.Reporter
}

func NewBot(conf *config.Config, deps Dependencies, logger log.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + conf.Discord.Token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		conf:            conf,
		session:         session,
		chatClient:      deps.ChatClient,
		fluxClient:      deps.FluxClient,
		queue:           deps.Queue,
		vision:          deps.Vision,
		summarizer:      deps.Summarizer,
		prompts:         deps.Prompts,
		geo:             deps.Geo,
		stats:           deps.Stats,
		statusReporter:  deps.StatusReporter,
		metricsReporter: deps.MetricsReporter,
		limiter:         newRateLimiter(conf.RateLimit.PerMinute),
		log:             logger.WithPrefix("bot"),
		triggerPattern:  regexp.MustCompile("(?i)" + regexp.QuoteMeta(conf.Discord.TriggerWord)),
		owners:          toSet(conf.Discord.OwnerIds),
		exemptRoles:     toLowerSet(conf.RateLimit.ExemptRoles),
		allowedChannels: toSet(conf.Discord.ChannelIds),
	}

	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)
	b.log.Reportf("using Discord token %s", utils.Obfuscate(conf.Discord.Token, 4))
	return b, nil
}

func (b *Bot) Listen() error {
	if err := b.session.Open(); err != nil {
		b.statusReporter.ReportError(status.Discord, "failed to connect: "+err.Error())
		return err
	}
	b.started = time.Now()
	go b.probeBackends()
	return nil
}

// probeBackends checks the chat and image servers once at startup so
// the status endpoint reflects reality before the first request.
func (b *Bot) probeBackends() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := b.chatClient.Check(ctx); err != nil {
		b.log.Errorf("chat backend check failed: %s", err)
	}
	if err := b.fluxClient.Check(ctx); err != nil {
		b.log.Errorf("image backend check failed: %s", err)
	}
}

func (b *Bot) Shutdown() {
	b.log.Reportf("initiating shutdown of discord bot")
	b.notifyShutdown()
	if err := b.session.Close(); err != nil {
		b.log.Errorf("error during discord session close: %s", err)
	}
	b.log.Reportf("shutdown complete")
}

func (b *Bot) notifyShutdown() {
	if len(b.conf.Discord.ChannelIds) == 0 {
		return
	}
	embed := &discordgo.MessageEmbed{
		Description: "Soupy is now going offline.",
		Color:       0xe74c3c,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Soupy Bot | Shutdown"},
	}
	for _, channelId := range b.conf.Discord.ChannelIds {
		if _, err := b.session.ChannelMessageSendEmbed(channelId, embed); err != nil {
			b.log.Errorf("failed to notify channel %s: %s", channelId, err)
		}
	}
}

func (b *Bot) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	b.log.Reportf("logged in as %s (%s)", s.State.User.Username, s.State.User.ID)
	b.statusReporter.ReportOk(status.Discord, "connected to gateway")

	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, "", applicationCommands); err != nil {
		b.log.Errorf("failed to register application commands: %s", err)
		return
	}
	b.log.Reportf("registered %d application commands", len(applicationCommands))
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID {
		return
	}
	if b.metricsReporter != nil {
		b.metricsReporter.IncrementMessageHandled(m.GuildID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if strings.HasPrefix(m.Content, "!") {
		b.handlePrefixCommand(ctx, s, m)
		return
	}

	descriptions := b.describeAttachments(ctx, m)

	if !b.shouldRespond(ctx, s, m) {
		return
	}
	b.log.Debugf("processing message from %s: '%s'", m.Author.Username, m.Content)
	b.respond(ctx, s, m, descriptions)
}

// describeAttachments runs supported image attachments through the
// vision backend and formats the descriptions as history lines.
func (b *Bot) describeAttachments(ctx context.Context, m *discordgo.MessageCreate) []string {
	if b.vision == nil || !b.vision.Enabled() {
		return nil
	}
	var descriptions []string
	for _, attachment := range m.Attachments {
		if !vision.IsSupportedImage(attachment.Filename) {
			continue
		}
		description, err := b.vision.Describe(ctx, m.ID, attachment.URL)
		if err != nil {
			b.log.Errorf("failed to describe image from %s: %s", m.Author.Username, err)
			continue
		}
		if description != "" {
			descriptions = append(descriptions, m.Author.Username+": [shares an image: "+description+"]")
		}
	}
	return descriptions
}

func (b *Bot) shouldRespond(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) bool {
	for _, user := range m.Mentions {
		if user.ID == s.State.User.ID {
			if err := b.stats.Increment(ctx, m.Author.ID, m.Author.Username, "", stats.Mentions); err != nil {
				b.log.Errorf("failed to record mention: %s", err)
			}
			return true
		}
	}
	if b.triggerPattern.MatchString(m.Content) {
		return true
	}
	if b.allowedChannels[m.ChannelID] {
		return true
	}
	return rand.Float64() < b.conf.Discord.RespondChance
}

func (b *Bot) respond(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, descriptions []string) {
	messages := []chat.Message{{Role: chat.RoleSystem, Content: b.systemPrompt(m.GuildID)}}
	messages = append(messages, b.buildHistory(ctx, s, m)...)
	if len(descriptions) > 0 {
		messages = append(messages, chat.Message{Role: chat.RoleUser, Content: strings.Join(descriptions, "\n")})
	}
	messages = append(messages, chat.Message{
		Role:    chat.RoleUser,
		Content: m.Author.Username + ": " + m.Content,
	})

	reply, err := b.chatClient.Complete(ctx, chat.Request{Messages: messages, Temperature: chatTemperature})
	if err != nil {
		b.log.Errorf("failed to generate reply for %s: %s", m.Author.Username, err)
		return
	}
	if err := b.stats.Increment(ctx, m.Author.ID, m.Author.Username, m.GuildID, stats.ChatResponses); err != nil {
		b.log.Errorf("failed to record chat response: %s", err)
	}
	if b.metricsReporter != nil {
		b.metricsReporter.IncrementChatResponse(m.GuildID)
	}

	b.sendReply(s, m.ChannelID, reply)
}

// sendReply splits long replies into chunks and paces them out to stay
// under the channel rate limit.
func (b *Bot) sendReply(s *discordgo.Session, channelId string, reply string) {
	delay := time.Duration(b.conf.Discord.ReplyDelayMs) * time.Millisecond
	for _, chunk := range chat.SplitMessage(reply, 1500) {
		cleaned := chat.CleanResponse(chat.RemoveAllBeforeColon(chunk))
		if cleaned == "" {
			continue
		}
		if _, err := s.ChannelMessageSend(channelId, cleaned); err != nil {
			b.log.Errorf("failed to send reply chunk: %s", err)
			return
		}
		time.Sleep(delay)
	}
}

func (b *Bot) systemPrompt(guildId string) string {
	behaviour := b.conf.Discord.Behaviour
	if guildBehaviour, ok := b.conf.Discord.GuildBehaviours[guildId]; ok && guildBehaviour != "" {
		behaviour = guildBehaviour
	}
	if style := chat.SelectResponseStyle(b.conf.Chat.Styles); style != "" {
		behaviour += "\n\n" + style
	}
	return behaviour
}

// buildHistory fetches the recent channel messages and maps them into
// conversation turns, oldest first.
func (b *Bot) buildHistory(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) []chat.Message {
	recent, err := s.ChannelMessages(m.ChannelID, b.conf.Discord.RecentMessageLimit, "", "", "")
	if err != nil {
		b.log.Errorf("failed to fetch channel history: %s", err)
		return nil
	}
	history := b.mapHistory(ctx, recent, s.State.User.ID, m.ID)
	reverse(history)
	return history
}

func (b *Bot) mapHistory(ctx context.Context, recent []*discordgo.Message, botUserId string, currentMessageId string) []chat.Message {
	var history []chat.Message
	seen := make(map[string]bool)
	for _, msg := range recent {
		if msg.ID == currentMessageId {
			continue
		}
		if strings.HasPrefix(msg.Content, "!") {
			continue
		}
		fromBot := msg.Author != nil && msg.Author.ID == botUserId
		if fromBot && strings.Contains(msg.Content, "Generated Image") {
			continue
		}

		content := msg.Content
		if b.summarizer != nil {
			if summaries := b.summarizer.SummarizeAll(ctx, content); len(summaries) > 0 {
				content = content + "\n" + strings.Join(summaries, " ")
			}
		}
		if b.vision != nil {
			if description, ok := b.vision.Recall(ctx, msg.ID); ok {
				if strings.TrimSpace(content) == "" {
					content = "[shares an image: " + description + "]"
				} else {
					content = content + " [shares an image: " + description + "]"
				}
			}
		}

		author := "unknown"
		if msg.Author != nil {
			author = msg.Author.Username
		}
		key := author + ":" + content
		if seen[key] {
			continue
		}
		seen[key] = true

		role := chat.RoleUser
		if fromBot {
			role = chat.RoleAssistant
		}
		history = append(history, chat.Message{Role: role, Content: author + ": " + content})
	}
	return history
}

func (b *Bot) isOwner(userId string) bool {
	return b.owners[userId]
}

func (b *Bot) hasExemptRole(member *discordgo.Member, guildId string) bool {
	if member == nil || len(b.exemptRoles) == 0 {
		return false
	}
	guild, err := b.session.State.Guild(guildId)
	if err != nil {
		return false
	}
	for _, roleId := range member.Roles {
		for _, role := range guild.Roles {
			if role.ID == roleId && b.exemptRoles[strings.ToLower(role.Name)] {
				return true
			}
		}
	}
	return false
}

func reverse(messages []chat.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	return set
}

func toLowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[strings.ToLower(v)] = true
		}
	}
	return set
}
