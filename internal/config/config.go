// Package config loads the tutor's settings from an optional YAML file and
// TUTOR_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Devprenuer/ai-tutor/internal/auth"
	"github.com/Devprenuer/ai-tutor/internal/hints"
	"github.com/Devprenuer/ai-tutor/internal/lessons"
	"github.com/Devprenuer/ai-tutor/internal/llm"
	"github.com/Devprenuer/ai-tutor/internal/logging"
	"github.com/Devprenuer/ai-tutor/internal/questions"
	"github.com/Devprenuer/ai-tutor/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. TUTOR_SERVER_ADDR.
const EnvPrefix = "TUTOR"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database store.Config   `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      logging.Config `mapstructure:"log"`
	LLM      llm.Config     `mapstructure:"llm"`

	Questions questions.Config `mapstructure:"questions"`
	Hints     hints.Config     `mapstructure:"hints"`
	Lessons   lessons.Config   `mapstructure:"lessons"`
}

type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	Mode        string   `mapstructure:"mode"`
	CORSOrigins []string `mapstructure:"cors_origins"`

	// RateLimit is requests per second per user on generating endpoints.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			RateLimit:       1,
			RateBurst:       5,
			ShutdownTimeout: 10 * time.Second,
		},
		Database:  store.Config{Driver: "sqlite"},
		Auth:      AuthConfig{TokenTTL: auth.DefaultTTL},
		Log:       logging.DefaultConfig(),
		LLM:       llm.DefaultConfig(),
		Questions: questions.DefaultConfig(),
		Hints:     hints.DefaultConfig(),
		Lessons:   lessons.DefaultConfig(),
	}
}

// Load reads path, or tutor.yaml from the working directory or the user
// config directory when path is empty. A missing default file is not an
// error. Environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.dsn", EnvPrefix+"_DATABASE_DSN", EnvPrefix+"_DB")
	_ = v.BindEnv("auth.jwt_secret", EnvPrefix+"_AUTH_JWT_SECRET", EnvPrefix+"_JWT_SECRET")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("tutor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "ai-tutor"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if !cfg.LLM.HasKey() {
		if found, ok := llm.DiscoverConfig(cfg.LLM); ok {
			cfg.LLM = found
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings every command depends on. Provider keys and
// the JWT secret are checked by the commands that need them.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return errors.New("database.dsn is required for postgres")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// no config file mentions.
func setDefaults(v *viper.Viper, d Config) {
	defaults := map[string]any{
		"server.addr":             d.Server.Addr,
		"server.mode":             d.Server.Mode,
		"server.cors_origins":     d.Server.CORSOrigins,
		"server.rate_limit":       d.Server.RateLimit,
		"server.rate_burst":       d.Server.RateBurst,
		"server.shutdown_timeout": d.Server.ShutdownTimeout,

		"database.driver": d.Database.Driver,
		"database.dsn":    d.Database.DSN,

		"auth.jwt_secret": d.Auth.JWTSecret,
		"auth.token_ttl":  d.Auth.TokenTTL,

		"log.level":        d.Log.Level,
		"log.file":         d.Log.File,
		"log.max_size_mb":  d.Log.MaxSizeMB,
		"log.max_backups":  d.Log.MaxBackups,
		"log.max_age_days": d.Log.MaxAgeDays,
		"log.compress":     d.Log.Compress,

		"llm.provider":            d.LLM.Provider,
		"llm.timeout":             d.LLM.Timeout,
		"llm.anthropic.api_key":   d.LLM.Anthropic.APIKey,
		"llm.anthropic.model":     d.LLM.Anthropic.Model,
		"llm.openai.api_key":      d.LLM.OpenAI.APIKey,
		"llm.openai.model":        d.LLM.OpenAI.Model,
		"llm.openai.base_url":     d.LLM.OpenAI.BaseURL,
		"llm.gemini.api_key":      d.LLM.Gemini.APIKey,
		"llm.gemini.model":        d.LLM.Gemini.Model,
		"llm.gemini.base_url":     d.LLM.Gemini.BaseURL,
		"llm.openrouter.api_key":  d.LLM.OpenRouter.APIKey,
		"llm.openrouter.model":    d.LLM.OpenRouter.Model,
		"llm.openrouter.base_url": d.LLM.OpenRouter.BaseURL,
		"llm.openrouter.app_name": d.LLM.OpenRouter.AppName,
		"llm.openrouter.app_url":  d.LLM.OpenRouter.AppURL,
		"llm.retry.max_attempts":  d.LLM.Retry.MaxAttempts,
		"llm.retry.initial_wait":  d.LLM.Retry.InitialWait,
		"llm.retry.max_wait":      d.LLM.Retry.MaxWait,
		"llm.retry.multiplier":    d.LLM.Retry.Multiplier,

		"questions.max_tokens":    d.Questions.MaxTokens,
		"questions.temperature":   d.Questions.Temperature,
		"questions.history_limit": d.Questions.HistoryLimit,
		"hints.max_tokens":        d.Hints.MaxTokens,
		"hints.temperature":       d.Hints.Temperature,
		"lessons.max_tokens":      d.Lessons.MaxTokens,
		"lessons.temperature":     d.Lessons.Temperature,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}
