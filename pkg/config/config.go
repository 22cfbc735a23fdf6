// Package config loads webpilot settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/entrhq/webpilot/pkg/logging"
)

// EnvPrefix prefixes environment overrides such as WEBPILOT_SERVER_ADDR.
const EnvPrefix = "WEBPILOT"

// Config is the complete process configuration.
type Config struct {
	Logger      logging.Config    `mapstructure:"logger" yaml:"logger"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Browserbase BrowserbaseConfig `mapstructure:"browserbase" yaml:"browserbase"`
	LLM         LLMConfig         `mapstructure:"llm" yaml:"llm"`
	Agent       AgentConfig       `mapstructure:"agent" yaml:"agent"`
	Tools       ToolsConfig       `mapstructure:"tools" yaml:"tools"`
}

// ServerConfig configures the chat HTTP endpoint.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	MaxDuration     time.Duration `mapstructure:"max_duration" yaml:"max_duration"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// BrowserbaseConfig holds the remote session service credentials and endpoints.
type BrowserbaseConfig struct {
	APIKey         string        `mapstructure:"api_key" yaml:"api_key"`
	ProjectID      string        `mapstructure:"project_id" yaml:"project_id"`
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	ConnectURL     string        `mapstructure:"connect_url" yaml:"connect_url"`
	SessionTimeout int           `mapstructure:"session_timeout" yaml:"session_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// LLMConfig selects the models used for chat, page actions and summaries.
type LLMConfig struct {
	APIKey           string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL          string `mapstructure:"base_url" yaml:"base_url"`
	Model            string `mapstructure:"model" yaml:"model"`
	AssistModel      string `mapstructure:"assist_model" yaml:"assist_model"`
	SummaryModel     string `mapstructure:"summary_model" yaml:"summary_model"`
	SummaryMaxTokens int    `mapstructure:"summary_max_tokens" yaml:"summary_max_tokens"`
}

// AgentConfig bounds the conversation driver.
type AgentConfig struct {
	MaxSteps     int    `mapstructure:"max_steps" yaml:"max_steps"`
	SystemPrompt string `mapstructure:"system_prompt" yaml:"system_prompt"`
}

// ToolsConfig holds browser tool timeouts and policies.
type ToolsConfig struct {
	MaxConcurrent      int           `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	ActionTimeout      time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	NavigationTimeout  time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	LoadTimeout        time.Duration `mapstructure:"load_timeout" yaml:"load_timeout"`
	NetworkIdleTimeout time.Duration `mapstructure:"network_idle_timeout" yaml:"network_idle_timeout"`
	SelectorTimeout    time.Duration `mapstructure:"selector_timeout" yaml:"selector_timeout"`
	DOMSettleTimeout   time.Duration `mapstructure:"dom_settle_timeout" yaml:"dom_settle_timeout"`
	SelfHeal           bool          `mapstructure:"self_heal" yaml:"self_heal"`
	SearchURL          string        `mapstructure:"search_url" yaml:"search_url"`
	AllowedHosts       []string      `mapstructure:"allowed_hosts" yaml:"allowed_hosts"`
	BlockedHosts       []string      `mapstructure:"blocked_hosts" yaml:"blocked_hosts"`
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_duration", "300s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("browserbase.base_url", "https://www.browserbase.com")
	v.SetDefault("browserbase.connect_url", "wss://connect.browserbase.com")
	v.SetDefault("browserbase.session_timeout", 900)
	v.SetDefault("browserbase.request_timeout", "30s")

	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("llm.assist_model", "gpt-4o")
	v.SetDefault("llm.summary_model", "gpt-4o")
	v.SetDefault("llm.summary_max_tokens", 12000)

	v.SetDefault("agent.max_steps", 10)
	v.SetDefault("agent.system_prompt", "")

	v.SetDefault("tools.max_concurrent", 16)
	v.SetDefault("tools.action_timeout", "15s")
	v.SetDefault("tools.navigation_timeout", "45s")
	v.SetDefault("tools.load_timeout", "10s")
	v.SetDefault("tools.network_idle_timeout", "7500ms")
	v.SetDefault("tools.selector_timeout", "15s")
	v.SetDefault("tools.dom_settle_timeout", "60s")
	v.SetDefault("tools.self_heal", true)
	v.SetDefault("tools.search_url", "https://html.duckduckgo.com/html/?q=")
	v.SetDefault("tools.allowed_hosts", []string{})
	v.SetDefault("tools.blocked_hosts", []string{})
}

// BindEnv wires the well-known secret variables and WEBPILOT_* overrides into v.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"browserbase.api_key":    {"BROWSERBASE_API_KEY", EnvPrefix + "_BROWSERBASE_API_KEY"},
		"browserbase.project_id": {"BROWSERBASE_PROJECT_ID", EnvPrefix + "_BROWSERBASE_PROJECT_ID"},
		"llm.api_key":            {"OPENAI_API_KEY", EnvPrefix + "_LLM_API_KEY"},
		"llm.base_url":           {"OPENAI_BASE_URL", EnvPrefix + "_LLM_BASE_URL"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// NewDefaultConfig returns the configuration produced by defaults alone.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads the optional YAML file at path and the environment.
// An empty path looks for ./webpilot.yaml and tolerates its absence.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("webpilot")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return NewConfigFromViper(v)
}

// NewConfigFromViper binds the environment, decodes v and validates the result.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	if err := BindEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges. Secrets are checked separately by RequireSecrets
// so that commands which never reach a remote service can run without them.
func (c *Config) Validate() error {
	var errs []error

	if c.Agent.MaxSteps <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_steps must be a positive integer"))
	}
	if c.Tools.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("tools.max_concurrent must be a positive integer"))
	}
	if c.Browserbase.SessionTimeout < 60 || c.Browserbase.SessionTimeout > 21600 {
		errs = append(errs, fmt.Errorf("browserbase.session_timeout must be between 60 and 21600 seconds"))
	}
	if c.Server.MaxDuration <= 0 {
		errs = append(errs, fmt.Errorf("server.max_duration must be a positive duration"))
	}
	if c.LLM.SummaryMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.summary_max_tokens must be a positive integer"))
	}

	timeouts := map[string]time.Duration{
		"tools.action_timeout":       c.Tools.ActionTimeout,
		"tools.navigation_timeout":   c.Tools.NavigationTimeout,
		"tools.load_timeout":         c.Tools.LoadTimeout,
		"tools.network_idle_timeout": c.Tools.NetworkIdleTimeout,
		"tools.selector_timeout":     c.Tools.SelectorTimeout,
		"tools.dom_settle_timeout":   c.Tools.DOMSettleTimeout,
	}
	for _, key := range sortedKeys(timeouts) {
		if timeouts[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be a positive duration", key))
		}
	}

	return errors.Join(errs...)
}

// RequireSecrets reports every missing credential at once.
func (c *Config) RequireSecrets() error {
	var errs []error
	if c.Browserbase.APIKey == "" {
		errs = append(errs, fmt.Errorf("BROWSERBASE_API_KEY is required"))
	}
	if c.Browserbase.ProjectID == "" {
		errs = append(errs, fmt.Errorf("BROWSERBASE_PROJECT_ID is required"))
	}
	if c.LLM.APIKey == "" {
		errs = append(errs, fmt.Errorf("OPENAI_API_KEY is required"))
	}
	return errors.Join(errs...)
}

func sortedKeys(m map[string]time.Duration) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
