package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sneezeparty/soupy/log"
	"gopkg.in/yaml.v3"
)

var allowedLogLevels = map[string]log.Level{
	"debug": log.Debug,
	"info":  log.Info,
	"warn":  log.Warn,
	"error": log.Error,
}

type Config struct {
	Discord   DiscordConfig
	Chat      ChatConfig
	Flux      FluxConfig
	Vision    VisionConfig
	Prompt    PromptConfig
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig
	Diag      DiagConfig
	Log       LogConfig
}

type DiscordConfig struct {
	Token              string            `yaml:"token"`
	TriggerWord        string            `yaml:"trigger_word"`
	ChannelIds         []string          `yaml:"channel_ids"`
	OwnerIds           []string          `yaml:"owner_ids"`
	Behaviour          string            `yaml:"behaviour"`
	GuildBehaviours    map[string]string `yaml:"guild_behaviours"`
	RespondChance      float64           `yaml:"respond_chance"`
	RecentMessageLimit int               `yaml:"recent_message_limit"`
	ReplyDelayMs       int               `yaml:"reply_delay_ms"`
	Log                LogConfig
}

type ChatConfig struct {
	BaseUrl           string                `yaml:"base_url"`
	ApiKey            string                `yaml:"api_key"`
	Model             string                `yaml:"model"`
	MaxTokens         int                   `yaml:"max_tokens"`
	NineBallBehaviour string                `yaml:"nine_ball_behaviour"`
	FancyInstructions string                `yaml:"fancy_instructions"`
	RandomPrompt      string                `yaml:"random_prompt"`
	Styles            []ResponseStyleConfig `yaml:"styles"`
	Log               LogConfig
}

type ResponseStyleConfig struct {
	Name        string  `yaml:"name"`
	Weight      float64 `yaml:"weight"`
	Instruction string  `yaml:"instruction"`
}

type FluxConfig struct {
	Url      string  `yaml:"url"`
	Steps    int     `yaml:"steps"`
	Guidance float64 `yaml:"guidance"`
	Timeout  int     `yaml:"timeout"`
	Log      LogConfig
}

type VisionConfig struct {
	Url     string `yaml:"url"`
	Timeout int    `yaml:"timeout"`
}

type PromptConfig struct {
	ThemesFile     string `yaml:"themes_file"`
	CharactersFile string `yaml:"characters_file"`
	StylesFile     string `yaml:"styles_file"`
	Watch          bool   `yaml:"watch"`
}

type RateLimitConfig struct {
	PerMinute   int      `yaml:"per_minute"`
	ExemptRoles []string `yaml:"exempt_roles"`
}

type CacheConfig struct {
	Redis    RedisConfig
	MongoDb  MongoDbConfig  `yaml:"mongodb"`
	DynamoDb DynamoDbConfig `yaml:"dynamodb"`
	UrlTtl   int            `yaml:"url_ttl"`
}

type RedisConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Addresses []string `yaml:"addresses"`
	DB        int      `yaml:"db"`
	User      string   `yaml:"user"`
	Password  string   `yaml:"password"`
}

type MongoDbConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Url        string `yaml:"url"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type DynamoDbConfig struct {
	Enabled bool   `yaml:"enabled"`
	Url     string `yaml:"url"`
	Table   string `yaml:"table"`
}

type DiagConfig struct {
	Port    int `yaml:"port"`
	Status  StatusConfig
	Metrics MetricsConfig
	Log     LogConfig
}

type StatusConfig struct {
	Enabled bool `yaml:"enabled"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func LoadConfigFromFileAndEnvironment(filePath string) (Config, error) {
	var config Config
	config.setDefaults()

	if filePath != "" {
		_, err := os.Stat(filePath)
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config file %s does not exist: %s", filePath, err)
		}
		realPath, err := filepath.EvalSymlinks(filePath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to eval symlink for %s: %s", realPath, err)
		}
		data, err := os.ReadFile(realPath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %s", realPath, err)
		}

		err = yaml.Unmarshal(data, &config)
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML from config file %s: %s", realPath, err)
		}
	}

	config.loadEnv()
	if config.Log.GetLevel() == log.None {
		config.Log.Level = "warn"
	}
	config.fixupLogLevels(config.Log.Level)
	return config, nil
}

func (l *LogConfig) GetLevel() log.Level {
	if lvl, ok := allowedLogLevels[l.Level]; ok {
		return lvl
	}
	return log.None
}

func (c *CacheConfig) IsSet() bool {
	return c.Redis.Enabled || c.MongoDb.Enabled || c.DynamoDb.Enabled
}

func (c *Config) setDefaults() {
	c.Discord.TriggerWord = "soup"
	c.Discord.RespondChance = 0.015
	c.Discord.RecentMessageLimit = 25
	c.Discord.ReplyDelayMs = 250

	c.Chat.BaseUrl = "https://openrouter.ai/api/v1"
	c.Chat.MaxTokens = 800

	c.Flux.Steps = 4
	c.Flux.Guidance = 3.5
	c.Flux.Timeout = 120

	c.Vision.Timeout = 60

	c.RateLimit.PerMinute = 4

	c.Cache.UrlTtl = 3600
	c.Cache.Redis.DB = 0
	c.Cache.Redis.Addresses = []string{"localhost:6379"}

	c.Diag.Port = 8080
	c.Diag.Status.Enabled = true
	c.Diag.Metrics.Enabled = true
}

func (c *Config) fixupLogLevels(defLevel string) {
	if c.Discord.Log.GetLevel() == log.None {
		c.Discord.Log.Level = defLevel
	}
	if c.Chat.Log.GetLevel() == log.None {
		c.Chat.Log.Level = defLevel
	}
	if c.Flux.Log.GetLevel() == log.None {
		c.Flux.Log.Level = defLevel
	}
	if c.Diag.Log.GetLevel() == log.None {
		c.Diag.Log.Level = defLevel
	}
}
