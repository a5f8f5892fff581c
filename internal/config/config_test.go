// ABOUTME: Tests for config loading, env expansion, and validation
// ABOUTME: Uses temp files and t.Setenv for the expansion cases

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadAuthDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")

	cfg, err := LoadAuth(path)
	if err != nil {
		t.Fatalf("LoadAuth: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr = %q, want :9000", cfg.Server.Addr)
	}
	if cfg.DatabasePath != "data/auth.db" {
		t.Errorf("database_path default = %q", cfg.DatabasePath)
	}

	access, err := cfg.AccessTokenTTL()
	if err != nil {
		t.Fatalf("AccessTokenTTL: %v", err)
	}
	if access != 5*time.Minute {
		t.Errorf("access TTL = %v, want 5m", access)
	}
	refresh, err := cfg.RefreshTokenTTL()
	if err != nil {
		t.Fatalf("RefreshTokenTTL: %v", err)
	}
	if refresh != 14*24*time.Hour {
		t.Errorf("refresh TTL = %v, want 336h", refresh)
	}
}

func TestLoadChatEnvExpansion(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "sk-secret")
	path := writeConfig(t, "llm:\n  api_key: \"${TEST_LLM_KEY}\"\n")

	cfg, err := LoadChat(path)
	if err != nil {
		t.Fatalf("LoadChat: %v", err)
	}
	if cfg.LLM.APIKey != "sk-secret" {
		t.Errorf("api_key = %q, want expanded env value", cfg.LLM.APIKey)
	}
}

func TestLoadChatUnsetEnvExpandsEmpty(t *testing.T) {
	path := writeConfig(t, "llm:\n  api_key: \"${DEFINITELY_NOT_SET_ANYWHERE}\"\n")

	cfg, err := LoadChat(path)
	if err != nil {
		t.Fatalf("LoadChat: %v", err)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("api_key = %q, want empty", cfg.LLM.APIKey)
	}
}

func TestAuthValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad access ttl", "access_ttl: \"five minutes\"\n"},
		{"refresh not longer", "access_ttl: \"1h\"\nrefresh_ttl: \"30m\"\n"},
		{"empty addr", "server:\n  addr: \"\"\n"},
		{"empty key path", "private_key_path: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadAuth(writeConfig(t, tt.yaml)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestChatValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"empty model", "llm:\n  model: \"\"\n"},
		{"bad timeout", "llm:\n  timeout: \"soon\"\n"},
		{"empty public key path", "public_key_path: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadChat(writeConfig(t, tt.yaml)); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := LoadAuth(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
