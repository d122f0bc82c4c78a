package config

import (
	"testing"

	"github.com/sneezeparty/soupy/internal/testutils"
	"github.com/sneezeparty/soupy/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	conf, err := LoadConfigFromFileAndEnvironment("")
	require.NoError(t, err)

	assert.Equal(t, "soup", conf.Discord.TriggerWord)
	assert.Equal(t, 0.015, conf.Discord.RespondChance)
	assert.Equal(t, 25, conf.Discord.RecentMessageLimit)
	assert.Equal(t, 250, conf.Discord.ReplyDelayMs)

	assert.Equal(t, "https://openrouter.ai/api/v1", conf.Chat.BaseUrl)
	assert.Equal(t, 800, conf.Chat.MaxTokens)

	assert.Equal(t, 4, conf.Flux.Steps)
	assert.Equal(t, 3.5, conf.Flux.Guidance)
	assert.Equal(t, 120, conf.Flux.Timeout)

	assert.Equal(t, 4, conf.RateLimit.PerMinute)

	assert.Equal(t, 3600, conf.Cache.UrlTtl)
	assert.Equal(t, 0, conf.Cache.Redis.DB)
	assert.Equal(t, "localhost:6379", conf.Cache.Redis.Addresses[0])
	assert.False(t, conf.Cache.IsSet())

	assert.Equal(t, 8080, conf.Diag.Port)
	assert.True(t, conf.Diag.Status.Enabled)
	assert.True(t, conf.Diag.Metrics.Enabled)

	assert.Equal(t, log.Warn, conf.Log.GetLevel())
}

func TestConfig_FromFile(t *testing.T) {
	testutils.UseTempFile(`
discord:
  token: tok
  trigger_word: noodle
  channel_ids: ["123", "456"]
  owner_ids: ["789"]
  guild_behaviours:
    "42": "be nice"
chat:
  model: llama
  base_url: http://localhost:5000/v1
flux:
  url: http://localhost:7860
cache:
  redis:
    enabled: true
    addresses: ["redis:6379"]
log:
  level: "info"
`, func(file string) {
		conf, err := LoadConfigFromFileAndEnvironment(file)
		require.NoError(t, err)

		assert.Equal(t, "tok", conf.Discord.Token)
		assert.Equal(t, "noodle", conf.Discord.TriggerWord)
		assert.Equal(t, []string{"123", "456"}, conf.Discord.ChannelIds)
		assert.Equal(t, []string{"789"}, conf.Discord.OwnerIds)
		assert.Equal(t, "be nice", conf.Discord.GuildBehaviours["42"])
		assert.Equal(t, "llama", conf.Chat.Model)
		assert.Equal(t, "http://localhost:5000/v1", conf.Chat.BaseUrl)
		assert.Equal(t, "http://localhost:7860", conf.Flux.Url)
		assert.True(t, conf.Cache.Redis.Enabled)
		assert.True(t, conf.Cache.IsSet())
		assert.Equal(t, []string{"redis:6379"}, conf.Cache.Redis.Addresses)
		assert.Equal(t, log.Info, conf.Log.GetLevel())
	})
}

func TestConfig_LogLevelFixup(t *testing.T) {
	t.Run("valid base level", func(t *testing.T) {
		testutils.UseTempFile(`
log:
  level: "info"
`, func(file string) {
			conf, err := LoadConfigFromFileAndEnvironment(file)
			require.NoError(t, err)

			assert.Equal(t, log.Info, conf.Log.GetLevel())
			assert.Equal(t, log.Info, conf.Discord.Log.GetLevel())
			assert.Equal(t, log.Info, conf.Chat.Log.GetLevel())
			assert.Equal(t, log.Info, conf.Flux.Log.GetLevel())
			assert.Equal(t, log.Info, conf.Diag.Log.GetLevel())
		})
	})
	t.Run("invalid base level", func(t *testing.T) {
		testutils.UseTempFile(`
log:
  level: "invalid"
`, func(file string) {
			conf, err := LoadConfigFromFileAndEnvironment(file)
			require.NoError(t, err)

			assert.Equal(t, log.Warn, conf.Log.GetLevel())
			assert.Equal(t, log.Warn, conf.Discord.Log.GetLevel())
		})
	})
	t.Run("component level override", func(t *testing.T) {
		testutils.UseTempFile(`
log:
  level: "warn"
chat:
  log:
    level: "debug"
`, func(file string) {
			conf, err := LoadConfigFromFileAndEnvironment(file)
			require.NoError(t, err)

			assert.Equal(t, log.Warn, conf.Log.GetLevel())
			assert.Equal(t, log.Debug, conf.Chat.Log.GetLevel())
		})
	})
}

func TestConfig_NonExistent(t *testing.T) {
	_, err := LoadConfigFromFileAndEnvironment("nonexistent.yml")
	assert.Error(t, err)
}

func TestConfig_InvalidYaml(t *testing.T) {
	testutils.UseTempFile(`{{invalid`, func(file string) {
		_, err := LoadConfigFromFileAndEnvironment(file)
		assert.Error(t, err)
	})
}
