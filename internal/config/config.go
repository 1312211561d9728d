package config

import "fmt"

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"` // "text" or "json"
}

// HNConfig holds Hacker News API client settings.
type HNConfig struct {
	BaseAPI   string `mapstructure:"base_api"`
	Timeout   string `mapstructure:"timeout"` // duration string, e.g., "10s"
	Retries   int    `mapstructure:"retries"`
	UserAgent string `mapstructure:"user_agent"`
}

// DigestConfig holds the default digest parameters. The fetch command and
// watch channels start from these; channels inherit any value they leave
// unset.
type DigestConfig struct {
	List       string `mapstructure:"list"`
	Limit      int    `mapstructure:"limit"`
	Hours      int    `mapstructure:"hours"`
	Scan       int    `mapstructure:"scan"`
	BatchSize  int    `mapstructure:"batch_size"`
	MaxWorkers int    `mapstructure:"max_workers"`
	Type       string `mapstructure:"type"`
	Format     string `mapstructure:"format"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"` // PUBLISH target for watch mode
}

// WatchConfig controls the watch workers.
type WatchConfig struct {
	Interval  string          `mapstructure:"interval"` // duration string, e.g., "30m"
	OutputDir string          `mapstructure:"output_dir"`
	Channels  []ChannelConfig `mapstructure:"channels"`
}

// ChannelConfig defines one periodically regenerated digest.
type ChannelConfig struct {
	Name       string `mapstructure:"name"` // e.g., morning_top
	List       string `mapstructure:"list"`
	Limit      int    `mapstructure:"limit"`
	Hours      int    `mapstructure:"hours"`
	Scan       int    `mapstructure:"scan"`
	BatchSize  int    `mapstructure:"batch_size"`
	MaxWorkers int    `mapstructure:"max_workers"`
	Type       string `mapstructure:"type"`
	Format     string `mapstructure:"format"`
	Title      string `mapstructure:"title"`    // markdown title; {.CurrentDate} expands
	Interval   string `mapstructure:"interval"` // overrides default
	OutputDir  string `mapstructure:"output_dir"`
	Publish    bool   `mapstructure:"publish"` // also PUBLISH each digest to redis
}

// Config is the top-level configuration structure.
type Config struct {
	App    AppConfig    `mapstructure:"app"`
	HN     HNConfig     `mapstructure:"hn"`
	Digest DigestConfig `mapstructure:"digest"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Watch  WatchConfig  `mapstructure:"watch"`
}

// FillDefaults applies default values if not provided.
func (c *Config) FillDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.LogFormat == "" {
		c.App.LogFormat = "text"
	}
	if c.HN.BaseAPI == "" {
		c.HN.BaseAPI = "https://hacker-news.firebaseio.com/v0"
	}
	if c.HN.Timeout == "" {
		c.HN.Timeout = "10s"
	}
	if c.HN.Retries == 0 {
		c.HN.Retries = 2
	}
	if c.HN.UserAgent == "" {
		c.HN.UserAgent = "hn-digest/1.0"
	}
	if c.Digest.List == "" {
		c.Digest.List = "topstories"
	}
	if c.Digest.Limit == 0 {
		c.Digest.Limit = 25
	}
	if c.Digest.Hours == 0 {
		c.Digest.Hours = 24
	}
	if c.Digest.Scan == 0 {
		c.Digest.Scan = 200
	}
	if c.Digest.BatchSize == 0 {
		c.Digest.BatchSize = 25
	}
	if c.Digest.MaxWorkers == 0 {
		c.Digest.MaxWorkers = 10
	}
	if c.Digest.Type == "" {
		c.Digest.Type = "story"
	}
	if c.Digest.Format == "" {
		c.Digest.Format = "json"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "hn:digest"
	}
	if c.Watch.Interval == "" {
		c.Watch.Interval = "30m"
	}
	if c.Watch.OutputDir == "" {
		c.Watch.OutputDir = "./out"
	}
	// Fill channel defaults from the digest/watch sections
	for i := range c.Watch.Channels {
		ch := &c.Watch.Channels[i]
		if ch.Name == "" {
			ch.Name = fmt.Sprintf("digest-%d", i+1)
		}
		if ch.List == "" {
			ch.List = c.Digest.List
		}
		if ch.Limit == 0 {
			ch.Limit = c.Digest.Limit
		}
		if ch.Hours == 0 {
			ch.Hours = c.Digest.Hours
		}
		if ch.Scan == 0 {
			ch.Scan = c.Digest.Scan
		}
		if ch.BatchSize == 0 {
			ch.BatchSize = c.Digest.BatchSize
		}
		if ch.MaxWorkers == 0 {
			ch.MaxWorkers = c.Digest.MaxWorkers
		}
		if ch.Type == "" {
			ch.Type = c.Digest.Type
		}
		if ch.Format == "" {
			ch.Format = c.Digest.Format
		}
		if ch.Interval == "" {
			ch.Interval = c.Watch.Interval
		}
		if ch.OutputDir == "" {
			ch.OutputDir = c.Watch.OutputDir
		}
	}
}
