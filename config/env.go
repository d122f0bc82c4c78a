package config

import (
	"encoding/json"
	"os"
	"strconv"
)

var envPrefix = "SOUPY"

var toInt = func(s string) (int, error) { return strconv.Atoi(s) }
var toBool = func(s string) (bool, error) { return strconv.ParseBool(s) }
var toFloat = func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
var toStringSlice = func(s string) ([]string, error) {
	var r []string
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, err
	}
	return r, nil
}
var toStringMap = func(s string) (map[string]string, error) {
	var r map[string]string
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Config) loadEnv() {
	c.Discord.loadEnv(envPrefix)
	c.Chat.loadEnv(envPrefix)
	c.Flux.loadEnv(envPrefix)
	c.Vision.loadEnv(envPrefix)
	c.Prompt.loadEnv(envPrefix)
	c.RateLimit.loadEnv(envPrefix)
	c.Cache.loadEnv(envPrefix)
	c.Diag.loadEnv(envPrefix)
	c.Log.loadEnv(envPrefix)
}

func (d *DiscordConfig) loadEnv(prefix string) {
	prefix = concatPrefix(prefix, "DISCORD")
	readEnvString(prefix, "TOKEN", &d.Token)
	readEnvString(prefix, "TRIGGER_WORD", &d.TriggerWord)
	readEnvString(prefix, "BEHAVIOUR", &d.Behaviour)
	readEnv(prefix, "CHANNEL_IDS", &d.ChannelIds, toStringSlice)
	readEnv(prefix, "OWNER_IDS", &d.OwnerIds, toStringSlice)
	readEnv(prefix, "GUILD_BEHAVIOURS", &d.GuildBehaviours, toStringMap)
	readEnv(prefix, "RESPOND_CHANCE", &d.RespondChance, toFloat)
	readEnv(prefix, "RECENT_MESSAGE_LIMIT", &d.RecentMessageLimit, toInt)
	readEnv(prefix, "REPLY_DELAY_MS", &d.ReplyDelayMs, toInt)
	d.Log.loadEnv(prefix)
}

func (ch *ChatConfig) loadEnv(prefix string) {
	prefix = concatPrefix(prefix, "CHAT")
	readEnvString(prefix, "BASE_URL", &ch.BaseUrl)
	readEnvString(prefix, "API_KEY", &ch.ApiKey)
	readEnvString(prefix, "MODEL", &ch.Model)
	readEnv(prefix, "MAX_TOKENS", &ch.MaxTokens, toInt)
	readEnvString(prefix, "NINE_BALL_BEHAVIOUR", &ch.NineBallBehaviour)
	readEnvString(prefix, "FANCY_INSTRUCTIONS", &ch.FancyInstructions)
	readEnvString(prefix, "RANDOM_PROMPT", &ch.RandomPrompt)
	ch.Log.loadEnv(prefix)
}

func (f *FluxConfig) loadEnv(prefix string) {
	prefix = concatPrefix(prefix, "FLUX")
	readEnvString(prefix, "URL", &f.Url)
	readEnv(prefix, "STEPS", &f.Steps, toInt)
	readEnv(prefix, "GUIDANCE", &f.Guidance, toFloat)
	readEnv(prefix, "TIMEOUT", &f.Timeout, toInt)
	f.Log.loadEnv(prefix)
}

func (v *VisionConfig) loadEnv(prefix string) {
	prefix = concatPrefix(prefix, "VISION")
	readEnvString(prefix, "URL", &v.Url)
	readEnv(prefix, "TIMEOUT", &v.Timeout, toInt)
}

func (p *PromptConfig) loadEnv(prefix string) {
	prefix = concatPrefix(prefix, "PROMPT")
	readEnvString(prefix, "THEMES_FILE", &p.ThemesFile)
	readEnvString(prefix, "CHARACTERS_FILE", &p.CharactersFile)
	readEnvString(prefix, "STYLES_FILE", &p.StylesFile)
	readEnv(prefix, "WATCH", &p.Watch, toBool)
}

func (r *RateLimitConfig) loadEnv(prefix string) {
	prefix = concatPrefix(prefix, "RATE_LIMIT")
	readEnv(prefix, "PER_MINUTE", &r.PerMinute, toInt)
	readEnv(prefix, "EXEMPT_ROLES", &r.ExemptRoles, toStringSlice)
}

func (c *CacheConfig) loadEnv(prefix string) {
	prefix = concatPrefix(prefix, "CACHE")
	readEnv(prefix, "URL_TTL", &c.UrlTtl, toInt)
	c.Redis.loadEnv(prefix)
	c.MongoDb.loadEnv(prefix)
	c.DynamoDb.loadEnv(prefix)
}

func (r *RedisConfig) loadEnv(prefix string) {
	prefix = concatPrefix(prefix, "REDIS")
	readEnv(prefix, "ENABLED", &r.Enabled, toBool)
	readEnv(prefix, "ADDRESSES", &r.Addresses, toStringSlice)
	readEnv(prefix, "DB", &r.DB, toInt)
	readEnvString(prefix, "USER", &r.User)
	readEnvString(prefix, "PASSWORD", &r.Password)
}

func (m *MongoDbConfig) loadEnv(prefix string) {
	prefix = concatPrefix(prefix, "MONGODB")
	readEnv(prefix, "ENABLED", &m.Enabled, toBool)
	readEnvString(prefix, "URL", &m.Url)
	readEnvString(prefix, "DATABASE", &m.Database)
	readEnvString(prefix, "COLLECTION", &m.Collection)
}

func (d *DynamoDbConfig) loadEnv(prefix string) {
	prefix = concatPrefix(prefix, "DYNAMODB")
	readEnv(prefix, "ENABLED", &d.Enabled, toBool)
	readEnvString(prefix, "URL", &d.Url)
	readEnvString(prefix, "TABLE", &d.Table)
}

func (d *DiagConfig) loadEnv(prefix string) {
	prefix = concatPrefix(prefix, "DIAG")
	readEnv(prefix, "PORT", &d.Port, toInt)
	readEnv(prefix, "STATUS_ENABLED", &d.Status.Enabled, toBool)
	readEnv(prefix, "METRICS_ENABLED", &d.Metrics.Enabled, toBool)
	d.Log.loadEnv(prefix)
}

func (l *LogConfig) loadEnv(prefix string) {
	prefix = concatPrefix(prefix, "LOG")
	readEnvString(prefix, "LEVEL", &l.Level)
}

func readEnv[T any](prefix string, key string, in *T, conv func(string) (T, error)) {
	if env := os.Getenv(prefix + "_" + key); env != "" {
		if r, err := conv(env); err == nil {
			*in = r
		}
	}
}

func readEnvString(prefix string, key string, in *string) {
	if env := os.Getenv(prefix + "_" + key); env != "" {
		*in = env
	}
}

func concatPrefix(p1 string, p2 string) string {
	return p1 + "_" + p2
}
