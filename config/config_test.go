package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ai_gallery_simulator/generator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearKeys(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearKeys(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, generator.DefaultModel, cfg.LLM.Model)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "memory://", cfg.StoreURL)
	assert.Equal(t, 3*time.Minute, cfg.RequestTimeout)
	assert.Equal(t, generator.DefaultRetryPolicy(), cfg.Retry)
	assert.Equal(t, generator.DefaultLimits(), cfg.Limits)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearKeys(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
}

func TestLoadFile(t *testing.T) {
	clearKeys(t)
	path := writeConfig(t, `{
		"llm": {"provider": "deepseek", "model": "deepseek-chat", "api_key": "sk-test", "base_url": "https://api.deepseek.com"},
		"server_addr": ":9090",
		"store_url": "sqlite://gallery.db",
		"request_timeout": "90s",
		"retry": {"attempts": 5, "initial_interval": "10ms"},
		"limits": {"posts": 7}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "sqlite://gallery.db", cfg.StoreURL)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.Equal(t, uint(5), cfg.Retry.Attempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Retry.InitialInterval)
	assert.Equal(t, 7, cfg.Limits.Posts)
	assert.Equal(t, 30, cfg.Limits.MaxCommentsPerPost)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearKeys(t)
	t.Setenv("GALLERY_LLM_PROVIDER", "mock")
	t.Setenv("GALLERY_SERVER_ADDR", "127.0.0.1:7000")
	t.Setenv("GEMINI_API_KEY", "gem-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.LLM.Provider)
	assert.Equal(t, "127.0.0.1:7000", cfg.ServerAddr)
	assert.Equal(t, "gem-key", cfg.LLM.APIKey)
}

func TestAPIKeyFallbackOrder(t *testing.T) {
	clearKeys(t)
	t.Setenv("API_KEY", "generic")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "generic", cfg.LLM.APIKey)

	t.Setenv("GEMINI_API_KEY", "gemini")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.APIKey)
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearKeys(t)
	path := writeConfig(t, `{"llm": {"provider": "claude"}}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `llm provider "claude" not supported`)

	_, err = Load(writeConfig(t, `{not json`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			LLM:            LLMConfig{Provider: "gemini"},
			ServerAddr:     ":8080",
			RequestTimeout: time.Minute,
			Retry:          generator.DefaultRetryPolicy(),
			Limits:         generator.DefaultLimits(),
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"deepseek without base url", func(c *Config) { c.LLM = LLMConfig{Provider: "deepseek", Model: "m"} }, "requires base_url"},
		{"openai without model", func(c *Config) { c.LLM = LLMConfig{Provider: "openai"} }, "llm model is required"},
		{"zero attempts", func(c *Config) { c.Retry.Attempts = 0 }, "retry.attempts"},
		{"burst missing", func(c *Config) { c.RateLimit = RateLimitConfig{RPS: 2} }, "rate_limit.burst"},
		{"inverted range", func(c *Config) { c.Limits.FollowUps = generator.Range{Min: 9, Max: 3} }, "limits.follow_ups"},
		{"cap below best", func(c *Config) { c.Limits.MaxCommentsPerPost = 10 }, "max_comments_per_post"},
		{"no posts", func(c *Config) { c.Limits.Posts = 0 }, "limits.posts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLLMSettings(t *testing.T) {
	s := LLMConfig{Provider: "openai", Model: "gpt-4o", APIKey: "k", BaseURL: "u"}.Settings()
	assert.Equal(t, &generator.LLMSettings{Provider: "openai", Model: "gpt-4o", APIKey: "k", BaseURL: "u"}, s)
}
