package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2*time.Minute, cfg.Budget(false))
	assert.Equal(t, 30*time.Minute, cfg.Budget(true))
	assert.Equal(t, 45*time.Second, cfg.Session.FeedbackTimeout)
	assert.Equal(t, 10*time.Second, cfg.Session.VisionTimeout)
	assert.Equal(t, 1100*time.Millisecond, cfg.Session.Pacing.Type)
	assert.Equal(t, 25000, cfg.Browser.MaxContentLength)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	path := writeConfig(t, `
llm:
  model: gpt-4o-mini
session:
  time_budget: 90s
  pacing:
    scroll: 100ms
browser:
  denied_urls:
    - "*://*.ads.example/*"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, 90*time.Second, cfg.Session.TimeBudget)
	assert.Equal(t, 100*time.Millisecond, cfg.Session.Pacing.Scroll)
	assert.Equal(t, 2*time.Second, cfg.Session.Pacing.Click, "unset values keep defaults")
	assert.Equal(t, []string{"*://*.ads.example/*"}, cfg.Browser.DeniedURLs)
}

func TestLoadFileKeyBeatsEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	cfg, err := Load(writeConfig(t, "llm:\n  api_key: file-key\n"))
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.LLM.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		mutate func(*Config)
		name   string
	}{
		{name: "empty model", mutate: func(c *Config) { c.LLM.Model = "" }},
		{name: "zero budget", mutate: func(c *Config) { c.Session.TimeBudget = 0 }},
		{name: "negative pacing", mutate: func(c *Config) { c.Session.Pacing.Click = -time.Second }},
		{name: "bad vision provider", mutate: func(c *Config) { c.Vision.Provider = "claude" }},
		{name: "bad feedback policy", mutate: func(c *Config) { c.Output.Feedback = "maybe" }},
		{name: "bad verbosity", mutate: func(c *Config) { c.Output.Verbosity = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestBuildProvider(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	cfg := Default()
	cfg.LLM.APIKey = ""

	_, err := BuildProvider(cfg, ProviderOverrides{})
	require.Error(t, err)

	p, err := BuildProvider(cfg, ProviderOverrides{APIKey: "k", Model: "gpt-4o-mini", BaseURL: "http://localhost:1/v1"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", p.GetModel())
	assert.Equal(t, "http://localhost:1/v1", p.GetBaseURL())
}

func TestBuildVisionProvider(t *testing.T) {
	cfg := Default()
	planner, err := BuildProvider(cfg, ProviderOverrides{APIKey: "k"})
	require.NoError(t, err)

	cfg.Vision.Provider = VisionDisabled
	vp, err := BuildVisionProvider(context.Background(), cfg, planner)
	require.NoError(t, err)
	assert.Nil(t, vp)

	cfg.Vision.Provider = VisionOpenAI
	cfg.Vision.Model = "gpt-4o-mini"
	vp, err = BuildVisionProvider(context.Background(), cfg, planner)
	require.NoError(t, err)
	assert.NotNil(t, vp)
}
