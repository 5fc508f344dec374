package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-assistant/internal/config"
)

var allEnv = []string{
	"HTTP_ADDR", "OAUTH_GOOGLE_CLIENT_ID", "OAUTH_GOOGLE_CLIENT_SECRET", "OAUTH_TOKEN_FILE",
	"OAUTH_REDIRECT_URL", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "GMAIL_MAX_UNREAD",
	"SESSION_BACKEND", "REDIS_URL", "SESSION_TTL", "CHATLOG_PATH", "LOG_LEVEL",
}

// clearEnv unsets every bound variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allEnv {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("", "")
	require.NoError(t, err)

	assert.Equal(t, "localhost:0", cfg.HTTPAddr)
	assert.Equal(t, "./data/gmail-assistant-token.json", cfg.OAuth.TokenFile)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 0.001)
	assert.Equal(t, int64(5), cfg.Gmail.MaxUnread)
	assert.Equal(t, config.BackendMemory, cfg.Session.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "info", cfg.Log.Level)

	require.ErrorIs(t, cfg.Validate(), config.ErrMissingOAuthClient)
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: localhost:8080
llm:
  model: file-model
  max_tokens: 2048
  temperature: 0
gmail:
  max_unread: 10
session:
  backend: redis
  ttl: 1h
`), 0600))

	t.Setenv("OPENAI_MODEL", "env-model")
	t.Setenv("OAUTH_GOOGLE_CLIENT_ID", "id")
	t.Setenv("OAUTH_GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := config.Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.HTTPAddr)
	assert.Equal(t, "env-model", cfg.LLM.Model, "env wins over file")
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Zero(t, cfg.LLM.Temperature, "an explicit zero temperature is kept")
	assert.Equal(t, int64(10), cfg.Gmail.MaxUnread)
	assert.Equal(t, config.BackendRedis, cfg.Session.Backend)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Session.RedisURL)

	require.NoError(t, cfg.Validate())
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"OAUTH_GOOGLE_CLIENT_ID=env-file-id\nOAUTH_GOOGLE_CLIENT_SECRET=env-file-secret\nOPENAI_BASE_URL=http://localhost:11434/v1\n",
	), 0600))

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), envFile)
	require.NoError(t, err)

	assert.Equal(t, "env-file-id", cfg.OAuth.ClientID)
	assert.Equal(t, "env-file-secret", cfg.OAuth.ClientSecret)
	assert.Equal(t, "http://localhost:11434/v1", cfg.LLM.BaseURL)
	require.NoError(t, cfg.Validate(), "a custom endpoint does not need an api key")

	_, err = config.Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := config.Config{
		OAuth:   config.OAuthConfig{ClientID: "id", ClientSecret: "secret"},
		LLM:     config.LLMConfig{APIKey: "sk"},
		Session: config.SessionConfig{Backend: config.BackendMemory},
	}
	require.NoError(t, base.Validate())

	noKey := base
	noKey.LLM = config.LLMConfig{}
	require.ErrorIs(t, noKey.Validate(), config.ErrMissingAPIKey)

	badBackend := base
	badBackend.Session.Backend = "etcd"
	require.Error(t, badBackend.Validate())

	noRedis := base
	noRedis.Session = config.SessionConfig{Backend: config.BackendRedis}
	require.Error(t, noRedis.Validate())
}
