// ABOUTME: YAML configuration for both service binaries
// ABOUTME: Supports ${VAR} env expansion and human-readable durations

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/murmurhq/murmur/internal/token"
)

// envVarPattern matches ${VAR} placeholders in config values.
var envVarPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// ServerConfig holds the HTTP listener settings shared by both services.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// AuthConfig configures the identity service.
type AuthConfig struct {
	Server         ServerConfig  `yaml:"server"`
	Logging        LoggingConfig `yaml:"logging"`
	DatabasePath   string        `yaml:"database_path"`
	PrivateKeyPath string        `yaml:"private_key_path"`
	AccessTTL      string        `yaml:"access_ttl"`
	RefreshTTL     string        `yaml:"refresh_ttl"`
	SecureCookies  bool          `yaml:"secure_cookies"`
}

// LLMConfig configures the generation backend client.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	URL     string `yaml:"url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// ChatConfig configures the conversational service. It holds only the
// public verification key; the private key never leaves the auth service.
type ChatConfig struct {
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging"`
	DatabasePath  string        `yaml:"database_path"`
	PublicKeyPath string        `yaml:"public_key_path"`
	LLM           LLMConfig     `yaml:"llm"`
}

// expandEnv replaces ${VAR} placeholders with environment values.
// Unset variables expand to empty strings.
func expandEnv(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envVarPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// LoadAuth reads and validates the auth service config file.
func LoadAuth(path string) (*AuthConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultAuthConfig()
	if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadChat reads and validates the chat service config file.
func LoadChat(path string) (*ChatConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultChatConfig()
	if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultAuthConfig returns the auth service defaults.
func DefaultAuthConfig() *AuthConfig {
	return &AuthConfig{
		Server:         ServerConfig{Addr: ":8040"},
		Logging:        LoggingConfig{Level: "info", Format: "text"},
		DatabasePath:   "data/auth.db",
		PrivateKeyPath: "keys/session.key",
		AccessTTL:      token.DefaultAccessTTL.String(),
		RefreshTTL:     token.DefaultRefreshTTL.String(),
	}
}

// DefaultChatConfig returns the chat service defaults.
func DefaultChatConfig() *ChatConfig {
	return &ChatConfig{
		Server:        ServerConfig{Addr: ":8041"},
		Logging:       LoggingConfig{Level: "info", Format: "text"},
		DatabasePath:  "data/chat.db",
		PublicKeyPath: "keys/session.pub",
		LLM: LLMConfig{
			APIKey:  "${LLM_API_KEY}",
			URL:     "https://api.openai.com/v1/chat/completions",
			Model:   "gpt-4o-mini",
			Timeout: "60s",
		},
	}
}

// Validate checks the auth config for usable values.
func (c *AuthConfig) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.PrivateKeyPath == "" {
		return fmt.Errorf("private_key_path must not be empty")
	}
	access, err := c.AccessTokenTTL()
	if err != nil {
		return err
	}
	refresh, err := c.RefreshTokenTTL()
	if err != nil {
		return err
	}
	if refresh <= access {
		return fmt.Errorf("refresh_ttl must exceed access_ttl")
	}
	return nil
}

// AccessTokenTTL parses the configured access token lifetime.
func (c *AuthConfig) AccessTokenTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.AccessTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid access_ttl %q: %w", c.AccessTTL, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("access_ttl must be positive")
	}
	return d, nil
}

// RefreshTokenTTL parses the configured refresh token lifetime.
func (c *AuthConfig) RefreshTokenTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.RefreshTTL)
	if err != nil {
		return 0, fmt.Errorf("invalid refresh_ttl %q: %w", c.RefreshTTL, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("refresh_ttl must be positive")
	}
	return d, nil
}

// Validate checks the chat config for usable values.
func (c *ChatConfig) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.PublicKeyPath == "" {
		return fmt.Errorf("public_key_path must not be empty")
	}
	if c.LLM.URL == "" {
		return fmt.Errorf("llm.url must not be empty")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	if _, err := c.LLMTimeout(); err != nil {
		return err
	}
	return nil
}

// LLMTimeout parses the configured backend request timeout.
func (c *ChatConfig) LLMTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("llm.timeout must be positive")
	}
	return d, nil
}
