package config

import (
	"fmt"
)

func (c *Config) Validate() error {
	if err := c.Discord.validate(); err != nil {
		return err
	}
	if err := c.Chat.validate(); err != nil {
		return err
	}
	if err := c.Flux.validate(); err != nil {
		return err
	}
	if err := c.RateLimit.validate(); err != nil {
		return err
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}
	if err := c.Diag.validate(); err != nil {
		return err
	}
	return nil
}

func (d *DiscordConfig) validate() error {
	if d.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}
	if d.RespondChance < 0 || d.RespondChance > 1 {
		return fmt.Errorf("discord: respond chance must be between 0 and 1")
	}
	if d.RecentMessageLimit < 1 {
		return fmt.Errorf("discord: recent message limit must be at least 1")
	}
	return nil
}

func (ch *ChatConfig) validate() error {
	if ch.Model == "" {
		return fmt.Errorf("chat: model is required")
	}
	if ch.MaxTokens < 1 {
		return fmt.Errorf("chat: max tokens must be at least 1")
	}
	for _, style := range ch.Styles {
		if style.Weight < 0 {
			return fmt.Errorf("chat: response style '%s' has a negative weight", style.Name)
		}
	}
	return nil
}

func (f *FluxConfig) validate() error {
	if f.Url == "" {
		return fmt.Errorf("flux: server url is required")
	}
	if f.Steps < 1 {
		return fmt.Errorf("flux: steps must be at least 1")
	}
	if f.Timeout < 1 {
		return fmt.Errorf("flux: timeout must be at least 1 second")
	}
	return nil
}

func (r *RateLimitConfig) validate() error {
	if r.PerMinute < 1 {
		return fmt.Errorf("rate_limit: per minute cap must be at least 1")
	}
	return nil
}

func (c *CacheConfig) validate() error {
	if c.UrlTtl < 1 {
		return fmt.Errorf("cache: url ttl must be at least 1 second")
	}
	if err := c.Redis.validate(); err != nil {
		return err
	}
	if err := c.MongoDb.validate(); err != nil {
		return err
	}
	if err := c.DynamoDb.validate(); err != nil {
		return err
	}
	return nil
}

func (r *RedisConfig) validate() error {
	if !r.Enabled {
		return nil
	}
	if len(r.Addresses) == 0 {
		return fmt.Errorf("redis: at least 1 server address required")
	}
	return nil
}

func (m *MongoDbConfig) validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Url == "" {
		return fmt.Errorf("mongodb: connection url required")
	}
	if m.Database == "" {
		return fmt.Errorf("mongodb: database name required")
	}
	if m.Collection == "" {
		return fmt.Errorf("mongodb: collection name required")
	}
	return nil
}

func (d *DynamoDbConfig) validate() error {
	if !d.Enabled {
		return nil
	}
	if d.Table == "" {
		return fmt.Errorf("dynamodb: table name required")
	}
	return nil
}

func (d *DiagConfig) validate() error {
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("diag: invalid port %d", d.Port)
	}
	return nil
}
