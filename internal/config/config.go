package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// LoggerConfig controls the zap logger.
type LoggerConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputPath string `yaml:"output_path"`
}

// ServerConfig holds HTTP server settings for cmd/server.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeoutSec  int           `yaml:"read_timeout_sec"`
	WriteTimeoutSec int           `yaml:"write_timeout_sec"`
	IdleTimeoutSec  int           `yaml:"idle_timeout_sec"`
	ShutdownTimeout time.Duration `yaml:"-"`
}

// DBConfig holds MongoDB settings.
type DBConfig struct {
	Connection  string `yaml:"connection"`
	Database    string `yaml:"database"`
	Collections struct {
		Problems string `yaml:"problems"`
		Topics   string `yaml:"topics"`
		Users    string `yaml:"users"`
	} `yaml:"collections"`
}

// CacheConfig holds Redis settings for the existence cache.
type CacheConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLHours int    `yaml:"ttl_hours"`
}

// AuthConfig holds token issuing settings.
type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	Issuer          string `yaml:"issuer"`
	AccessTTLMin    int    `yaml:"access_ttl_min"`
	RefreshTTLHours int    `yaml:"refresh_ttl_hours"`
}

// FetchConfig holds page-fetch settings shared by the tracker and the refresher.
type FetchConfig struct {
	UserAgent     string `yaml:"user_agent"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	RespectRobots bool   `yaml:"respect_robots"`
}

// RefreshConfig holds the saved-problem metadata recrawl settings.
type RefreshConfig struct {
	Enabled            bool `yaml:"enabled"`
	IntervalMin        int  `yaml:"interval_min"`
	StaleAfterHours    int  `yaml:"stale_after_hours"`
	BatchSize          int  `yaml:"batch_size"`
	DelayMS            int  `yaml:"delay_ms"`
	MaxParallelFetches int  `yaml:"max_parallel_fetches"`
}

// TopicRule maps scraped topic keywords to a canonical topic slug.
// Rules are order-sensitive: the first matching rule wins.
type TopicRule struct {
	Slug     string   `yaml:"slug"`
	Keywords []string `yaml:"keywords"`
}

// TrackerConfig holds cmd/tracker settings.
type TrackerConfig struct {
	APIBaseURL string      `yaml:"api_base_url"`
	StatePath  string      `yaml:"state_path"`
	Fetch      FetchConfig `yaml:"fetch"`
	TopicRules []TopicRule `yaml:"topic_rules"`
}

// Config is the root configuration for both binaries; each reads the
// sections it needs.
type Config struct {
	Logger  LoggerConfig  `yaml:"logger"`
	Server  ServerConfig  `yaml:"server"`
	DB      DBConfig      `yaml:"db"`
	Cache   CacheConfig   `yaml:"cache"`
	Auth    AuthConfig    `yaml:"auth"`
	Tracker TrackerConfig `yaml:"tracker"`
	Refresh RefreshConfig `yaml:"refresh"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "console"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "0.0.0.0:8080"
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = 5
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = 10
	}
	if c.Server.IdleTimeoutSec == 0 {
		c.Server.IdleTimeoutSec = 60
	}
	c.Server.ShutdownTimeout = 10 * time.Second
	if c.DB.Collections.Problems == "" {
		c.DB.Collections.Problems = "problems"
	}
	if c.DB.Collections.Topics == "" {
		c.DB.Collections.Topics = "topics"
	}
	if c.DB.Collections.Users == "" {
		c.DB.Collections.Users = "users"
	}
	if c.Cache.TTLHours == 0 {
		c.Cache.TTLHours = 24
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "codetracker"
	}
	if c.Auth.AccessTTLMin == 0 {
		c.Auth.AccessTTLMin = 30
	}
	if c.Auth.RefreshTTLHours == 0 {
		c.Auth.RefreshTTLHours = 24 * 7
	}
	if c.Tracker.APIBaseURL == "" {
		c.Tracker.APIBaseURL = "http://localhost:8080"
	}
	if c.Tracker.Fetch.UserAgent == "" {
		c.Tracker.Fetch.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if c.Tracker.Fetch.TimeoutSec == 0 {
		c.Tracker.Fetch.TimeoutSec = 15
	}
	if c.Refresh.IntervalMin == 0 {
		c.Refresh.IntervalMin = 5
	}
	if c.Refresh.StaleAfterHours == 0 {
		c.Refresh.StaleAfterHours = 24 * 7
	}
	if c.Refresh.BatchSize == 0 {
		c.Refresh.BatchSize = 50
	}
	if c.Refresh.DelayMS == 0 {
		c.Refresh.DelayMS = 1500
	}
	if c.Refresh.MaxParallelFetches == 0 {
		c.Refresh.MaxParallelFetches = 2
	}
}
