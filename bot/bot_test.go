package bot

import (
	"bytes"
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sneezeparty/soupy/chat"
	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/log"
	"github.com/sneezeparty/soupy/stats"
)

func newTestBot(conf *config.Config) *Bot {
	return &Bot{
		conf: conf,
		log:  log.NewNullLogger(),
	}
}

func TestNewBot_ObfuscatesToken(t *testing.T) {
	var out bytes.Buffer
	conf := &config.Config{}
	conf.Discord.Token = "abcdefghijkl"
	conf.Discord.TriggerWord = "soup"

	_, err := NewBot(conf, Dependencies{}, log.NewLogger(&out, &out, log.Info))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "********ijkl")
	assert.NotContains(t, out.String(), "abcdefghijkl")
}

func TestMapHistory(t *testing.T) {
	b := newTestBot(&config.Config{})
	botId := "bot"
	recent := []*discordgo.Message{
		{ID: "5", Content: "current message", Author: &discordgo.User{ID: "u1", Username: "alice"}},
		{ID: "4", Content: "!estado Sellae", Author: &discordgo.User{ID: "u1", Username: "alice"}},
		{ID: "3", Content: "@alice 🖼️ Generated Image:", Author: &discordgo.User{ID: botId, Username: "soupy"}},
		{ID: "2", Content: "hello there", Author: &discordgo.User{ID: botId, Username: "soupy"}},
		{ID: "1", Content: "hi soupy", Author: &discordgo.User{ID: "u1", Username: "alice"}},
	}

	history := b.mapHistory(context.Background(), recent, botId, "5")

	assert.Len(t, history, 2)
	assert.Equal(t, chat.RoleAssistant, history[0].Role)
	assert.Equal(t, "soupy: hello there", history[0].Content)
	assert.Equal(t, chat.RoleUser, history[1].Role)
	assert.Equal(t, "alice: hi soupy", history[1].Content)
}

func TestMapHistory_Dedupe(t *testing.T) {
	b := newTestBot(&config.Config{})
	recent := []*discordgo.Message{
		{ID: "2", Content: "same thing", Author: &discordgo.User{ID: "u1", Username: "alice"}},
		{ID: "1", Content: "same thing", Author: &discordgo.User{ID: "u1", Username: "alice"}},
	}

	history := b.mapHistory(context.Background(), recent, "bot", "")
	assert.Len(t, history, 1)
}

func TestMapHistory_ChronologicalOrder(t *testing.T) {
	b := newTestBot(&config.Config{})
	recent := []*discordgo.Message{
		{ID: "3", Content: "third", Author: &discordgo.User{ID: "u1", Username: "alice"}},
		{ID: "2", Content: "second", Author: &discordgo.User{ID: "u2", Username: "bob"}},
		{ID: "1", Content: "first", Author: &discordgo.User{ID: "u1", Username: "alice"}},
	}

	history := b.mapHistory(context.Background(), recent, "bot", "")
	reverse(history)
	assert.Equal(t, "alice: first", history[0].Content)
	assert.Equal(t, "bob: second", history[1].Content)
	assert.Equal(t, "alice: third", history[2].Content)
}

func TestSystemPrompt(t *testing.T) {
	conf := &config.Config{}
	conf.Discord.Behaviour = "You are Soupy."
	conf.Discord.GuildBehaviours = map[string]string{"g1": "You are formal."}
	b := newTestBot(conf)

	assert.Equal(t, "You are Soupy.", b.systemPrompt("g2"))
	assert.Equal(t, "You are formal.", b.systemPrompt("g1"))
}

func TestSystemPrompt_WithStyle(t *testing.T) {
	conf := &config.Config{}
	conf.Discord.Behaviour = "You are Soupy."
	conf.Chat.Styles = []config.ResponseStyleConfig{
		{Name: "terse", Weight: 1, Instruction: "Keep it short."},
	}
	b := newTestBot(conf)

	assert.Equal(t, "You are Soupy.\n\nKeep it short.", b.systemPrompt(""))
}

func TestSplitPrefixCommand(t *testing.T) {
	tests := []struct {
		content  string
		name     string
		argument string
	}{
		{"!estado Sellae", "estado", "Sellae"},
		{"!catalogo", "catalogo", ""},
		{"!RESUMEN Nick Con Espacios", "resumen", "Nick Con Espacios"},
		{"no command", "", ""},
	}
	for _, test := range tests {
		name, argument := splitPrefixCommand(test.content)
		assert.Equal(t, test.name, name)
		assert.Equal(t, test.argument, argument)
	}
}

func TestFormatLeaderboard(t *testing.T) {
	entries := []stats.Entry{
		{Username: "alice", Counters: stats.Counters{ImagesGenerated: 10, ChatResponses: 3}},
		{Username: "bob", Counters: stats.Counters{ImagesGenerated: 4, ChatResponses: 8}},
	}

	images := formatLeaderboard(entries, stats.ImagesGenerated)
	assert.Contains(t, images, "1. **alice** - 10 images")
	assert.Contains(t, images, "2. **bob** - 4 images")

	chats := formatLeaderboard(entries, stats.ChatResponses)
	assert.Contains(t, chats, "1. **alice** - 3 responses")

	assert.Equal(t, "No data yet.", formatLeaderboard(nil, stats.ImagesGenerated))
}

func TestEightBallAnswer(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		answer := eightBallAnswer()
		assert.Contains(t, eightBallResponses, answer)
		seen[answer] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestToSet(t *testing.T) {
	assert.Equal(t, map[string]bool{"a": true, "b": true}, toSet([]string{"a", "", "b"}))
	assert.Equal(t, map[string]bool{"mod": true}, toLowerSet([]string{"Mod"}))
}
