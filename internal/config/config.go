// Package config resolves settings from defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var (
	// ErrMissingOAuthClient indicates the Google OAuth client credentials are not set.
	ErrMissingOAuthClient = errors.New("env variables OAUTH_GOOGLE_CLIENT_ID and OAUTH_GOOGLE_CLIENT_SECRET must be set")
	// ErrMissingAPIKey indicates no language model API key is set for the default endpoint.
	ErrMissingAPIKey = errors.New("env variable OPENAI_API_KEY must be set")
)

type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenFile    string `mapstructure:"token_file"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

type GmailConfig struct {
	MaxUnread int64 `mapstructure:"max_unread"`
}

type SessionConfig struct {
	Backend  string        `mapstructure:"backend"`
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type ChatLogConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the full application configuration.
type Config struct {
	HTTPAddr string        `mapstructure:"http_addr"`
	OAuth    OAuthConfig   `mapstructure:"oauth"`
	LLM      LLMConfig     `mapstructure:"llm"`
	Gmail    GmailConfig   `mapstructure:"gmail"`
	Session  SessionConfig `mapstructure:"session"`
	ChatLog  ChatLogConfig `mapstructure:"chatlog"`
	Log      LogConfig     `mapstructure:"log"`
}

var envBindings = map[string]string{
	"http_addr":           "HTTP_ADDR",
	"oauth.client_id":     "OAUTH_GOOGLE_CLIENT_ID",
	"oauth.client_secret": "OAUTH_GOOGLE_CLIENT_SECRET",
	"oauth.token_file":    "OAUTH_TOKEN_FILE",
	"oauth.redirect_url":  "OAUTH_REDIRECT_URL",
	"llm.api_key":         "OPENAI_API_KEY",
	"llm.base_url":        "OPENAI_BASE_URL",
	"llm.model":           "OPENAI_MODEL",
	"gmail.max_unread":    "GMAIL_MAX_UNREAD",
	"session.backend":     "SESSION_BACKEND",
	"session.redis_url":   "REDIS_URL",
	"session.ttl":         "SESSION_TTL",
	"chatlog.path":        "CHATLOG_PATH",
	"log.level":           "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", "localhost:0")
	v.SetDefault("oauth.token_file", "./data/gmail-assistant-token.json")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("gmail.max_unread", 5)
	v.SetDefault("session.backend", BackendMemory)
	v.SetDefault("session.redis_url", "redis://localhost:6379/0")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("chatlog.path", "./data/gmail-assistant.db")
	v.SetDefault("log.level", "info")
}

// Load reads envFile into the process environment when set, then resolves the
// configuration from defaults, the YAML file at path (a missing file is ignored)
// and environment variables, in increasing priority.
func Load(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("godotenv.Load failed: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("v.BindEnv %s failed: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("v.Unmarshal failed: %w", err)
	}

	return cfg, nil
}

// Validate reports settings the binary cannot start without.
func (c *Config) Validate() error {
	if c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" {
		return ErrMissingOAuthClient
	}
	if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
		return ErrMissingAPIKey
	}

	switch c.Session.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Session.RedisURL == "" {
			return errors.New("session.redis_url must be set for the redis backend")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}

	return nil
}
