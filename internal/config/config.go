// Package config loads and validates relay configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/readlater-relay/internal/relay"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Content    ContentConfig    `mapstructure:"content"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Annotate   AnnotateConfig   `mapstructure:"annotate"`
	Completion CompletionConfig `mapstructure:"completion"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig defines inbound API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ContentConfig points at the content platform's GraphQL endpoint.
//
// APIKey is intentionally not required by Validate: deployments without a
// credential must still accept webhooks and fail each invocation with a
// fatal response before any outbound call is made.
type ContentConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	TagStrategy    string `mapstructure:"tag_strategy"`
}

// RetryConfig bounds the retry loop around outbound mutating calls.
type RetryConfig struct {
	MaxAttempts        int `mapstructure:"max_attempts"`
	BackoffBaseSeconds int `mapstructure:"backoff_base_seconds"`
}

// AnnotateConfig governs the LLM annotation flow.
type AnnotateConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	TriggerLabel     string `mapstructure:"trigger_label"`
	MinContentLength int    `mapstructure:"min_content_length"`
	Prompt           string `mapstructure:"prompt"`
	Model            string `mapstructure:"model"`
}

// CompletionConfig configures access to the completion service.
type CompletionConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every config key. Viper's Unmarshal only sees
// keys it already knows from a default or a config file, so keys that
// default to empty must still be registered or env-only overrides like
// RELAY_CONTENT_API_KEY would be silently dropped.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("content.endpoint", "https://api.omnivore.app/api/graphql")
	v.SetDefault("content.api_key", "")
	v.SetDefault("content.timeout_seconds", 15)
	v.SetDefault("content.tag_strategy", string(relay.StrategyCreateAdd))
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.backoff_base_seconds", 2)
	v.SetDefault("annotate.enabled", false)
	v.SetDefault("annotate.trigger_label", "")
	v.SetDefault("annotate.min_content_length", 280)
	v.SetDefault("annotate.prompt", "")
	v.SetDefault("annotate.model", "")
	v.SetDefault("completion.base_url", "https://api.openai.com/v1")
	v.SetDefault("completion.api_key", "")
	v.SetDefault("completion.model", "gpt-4o-mini")
	v.SetDefault("completion.timeout_seconds", 60)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Content.Endpoint == "" {
		return fmt.Errorf("content.endpoint must be set")
	}
	if _, err := relay.ParseStrategy(c.Content.TagStrategy); err != nil {
		return fmt.Errorf("content.tag_strategy: %w", err)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0")
	}
	if c.Retry.BackoffBaseSeconds < 0 {
		return fmt.Errorf("retry.backoff_base_seconds must be >= 0")
	}
	if c.Annotate.Enabled && c.Completion.APIKey == "" {
		return fmt.Errorf("completion.api_key must be set when annotate is enabled")
	}
	if c.Annotate.MinContentLength < 0 {
		return fmt.Errorf("annotate.min_content_length must be >= 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// Strategy returns the parsed tag-attachment strategy.
func (c Config) Strategy() relay.Strategy {
	s, err := relay.ParseStrategy(c.Content.TagStrategy)
	if err != nil {
		return relay.StrategyCreateAdd
	}
	return s
}

// ContentTimeout converts the content timeout config into a duration.
func (c Config) ContentTimeout() time.Duration {
	return time.Duration(c.Content.TimeoutSeconds) * time.Second
}

// CompletionTimeout converts the completion timeout config into a duration.
func (c Config) CompletionTimeout() time.Duration {
	return time.Duration(c.Completion.TimeoutSeconds) * time.Second
}

// BackoffBase converts the retry backoff config into a duration.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.Retry.BackoffBaseSeconds) * time.Second
}
