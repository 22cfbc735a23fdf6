package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Defaults --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 300*time.Second, cfg.Server.MaxDuration)
	assert.Equal(t, "https://www.browserbase.com", cfg.Browserbase.BaseURL)
	assert.Equal(t, 900, cfg.Browserbase.SessionTimeout)
	assert.Equal(t, "gpt-4o", cfg.LLM.AssistModel)
	assert.Equal(t, 12000, cfg.LLM.SummaryMaxTokens)
	assert.Equal(t, 10, cfg.Agent.MaxSteps)
	assert.Equal(t, 16, cfg.Tools.MaxConcurrent)
	assert.Equal(t, 15*time.Second, cfg.Tools.ActionTimeout)
	assert.Equal(t, 45*time.Second, cfg.Tools.NavigationTimeout)
	assert.Equal(t, 10*time.Second, cfg.Tools.LoadTimeout)
	assert.Equal(t, 7500*time.Millisecond, cfg.Tools.NetworkIdleTimeout)
	assert.Equal(t, 15*time.Second, cfg.Tools.SelectorTimeout)
	assert.Equal(t, 60*time.Second, cfg.Tools.DOMSettleTimeout)
	assert.True(t, cfg.Tools.SelfHeal)
	assert.Equal(t, "https://html.duckduckgo.com/html/?q=", cfg.Tools.SearchURL)

	assert.NoError(t, cfg.Validate())
}

// -- Validation --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		mutate  func(*Config)
		name    string
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero steps", mutate: func(c *Config) { c.Agent.MaxSteps = 0 }, wantErr: "agent.max_steps"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Tools.MaxConcurrent = 0 }, wantErr: "tools.max_concurrent"},
		{name: "session timeout too short", mutate: func(c *Config) { c.Browserbase.SessionTimeout = 59 }, wantErr: "browserbase.session_timeout"},
		{name: "session timeout too long", mutate: func(c *Config) { c.Browserbase.SessionTimeout = 21601 }, wantErr: "browserbase.session_timeout"},
		{name: "negative load timeout", mutate: func(c *Config) { c.Tools.LoadTimeout = -time.Second }, wantErr: "tools.load_timeout"},
		{name: "zero duration", mutate: func(c *Config) { c.Server.MaxDuration = 0 }, wantErr: "server.max_duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Agent.MaxSteps = 0
	cfg.Tools.MaxConcurrent = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent.max_steps")
	assert.Contains(t, err.Error(), "tools.max_concurrent")
}

func TestRequireSecrets(t *testing.T) {
	cfg := NewDefaultConfig()

	err := cfg.RequireSecrets()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BROWSERBASE_API_KEY")
	assert.Contains(t, err.Error(), "BROWSERBASE_PROJECT_ID")
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	cfg.Browserbase.APIKey = "bb"
	cfg.Browserbase.ProjectID = "proj"
	cfg.LLM.APIKey = "sk"
	assert.NoError(t, cfg.RequireSecrets())
}

// -- Loading --

func TestNewConfigFromViperYAML(t *testing.T) {
	yamlBytes := []byte(`
server:
  addr: ":9090"
agent:
  max_steps: 4
tools:
  blocked_hosts:
    - "*.internal"
`)
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Agent.MaxSteps)
	assert.Equal(t, []string{"*.internal"}, cfg.Tools.BlockedHosts)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestNewConfigFromViperValidationFailure(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("agent.max_steps", 0)

	cfg, err := NewConfigFromViper(v)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestEnvironmentBinding(t *testing.T) {
	t.Setenv("BROWSERBASE_API_KEY", "bb-key")
	t.Setenv("BROWSERBASE_PROJECT_ID", "proj-1")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:1234/v1")
	t.Setenv("WEBPILOT_AGENT_MAX_STEPS", "3")

	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "bb-key", cfg.Browserbase.APIKey)
	assert.Equal(t, "proj-1", cfg.Browserbase.ProjectID)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "http://localhost:1234/v1", cfg.LLM.BaseURL)
	assert.Equal(t, 3, cfg.Agent.MaxSteps)
	assert.NoError(t, cfg.RequireSecrets())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "webpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tools:\n  max_concurrent: 2\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Tools.MaxConcurrent)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
