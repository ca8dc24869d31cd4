// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port         int  `yaml:"port"`
	CORSAllowAll bool `yaml:"cors_allow_all"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

// CustomerDBConfig points at the read-only analysis target, typically a
// Yugabyte or Postgres cluster reachable over the postgres wire protocol.
type CustomerDBConfig struct {
	URL           string `yaml:"url"`
	MaxConns      int    `yaml:"max_conns"`
	QueryRowLimit int    `yaml:"query_row_limit"` // max rows fetched per customer query
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	DefaultModel    string `yaml:"default_model"`
	MetisKey        string `yaml:"metis_key"`
	MetisBaseURL    string `yaml:"metis_base_url"`
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent AI calls
	MaxToolRounds   int    `yaml:"max_tool_rounds"`  // cap on tool-call loop iterations
}

// RedisConfig is optional; an empty URL disables the request rate limiter.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AnalysisConfig struct {
	MaxSessions   int           `yaml:"max_sessions"`
	TeardownGrace time.Duration `yaml:"teardown_grace"`
	RateLimit     int           `yaml:"rate_limit"`  // requests per window per client
	RateWindow    time.Duration `yaml:"rate_window"` // rate limiter window
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	CustomerDB CustomerDBConfig `yaml:"customer_db"`
	AI         AIConfig         `yaml:"ai"`
	Redis      RedisConfig      `yaml:"redis"`
	Analysis   AnalysisConfig   `yaml:"analysis"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()

	// Minimal validation
	if cfg.CustomerDB.URL == "" {
		return nil, errors.New("customer_db.url is required")
	}
	if cfg.AI.OpenAIKey == "" && cfg.AI.MetisKey == "" && cfg.AI.GeminiKey == "" && !dev {
		return nil, errors.New("at least one of ai.openai_key, ai.metis_key, ai.gemini_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// ApplyDefaults fills zero values in place. Exposed so tests and the demo
// tools can build configs without a file.
func (cfg *Config) ApplyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.CustomerDB.MaxConns <= 0 {
		cfg.CustomerDB.MaxConns = 10
	}
	if cfg.CustomerDB.QueryRowLimit <= 0 {
		cfg.CustomerDB.QueryRowLimit = 100
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.AI.MaxToolRounds <= 0 {
		cfg.AI.MaxToolRounds = 12
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.MetisBaseURL == "" {
		cfg.AI.MetisBaseURL = "https://api.metisai.ir/openai/v1"
	}
	if cfg.Analysis.MaxSessions <= 0 {
		cfg.Analysis.MaxSessions = 64
	}
	if cfg.Analysis.TeardownGrace <= 0 {
		cfg.Analysis.TeardownGrace = 10 * time.Second
	}
	if cfg.Analysis.RateLimit <= 0 {
		cfg.Analysis.RateLimit = 30
	}
	if cfg.Analysis.RateWindow <= 0 {
		cfg.Analysis.RateWindow = time.Minute
	}
}
