package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRejectsInsecurePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "duskd.yaml")
	if err := os.WriteFile(path, []byte("identity:\n  key_file: id.key\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for world-readable config file")
	}
}

func TestLoadParsesConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "duskd.yaml")
	content := "identity:\n  key_file: id.key\nnetwork:\n  listen_addresses:\n    - /ip4/0.0.0.0/tcp/4001\nstorage:\n  database_path: dusk.db\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Version != 1 {
		t.Fatalf("expected default version 1, got %d", cfg.Version)
	}
}

func TestValidateRequiresFields(t *testing.T) {
	if err := Validate(&NodeConfig{}); err == nil {
		t.Fatal("expected error for empty config")
	}
}

func TestResolveRelayAddrPrecedence(t *testing.T) {
	if got := ResolveRelayAddr("env-addr", "settings-addr"); got != "env-addr" {
		t.Fatalf("expected env to win, got %q", got)
	}
	if got := ResolveRelayAddr("", "settings-addr"); got != "settings-addr" {
		t.Fatalf("expected settings to win over default, got %q", got)
	}
	if got := ResolveRelayAddr("", ""); got != CompiledDefaultRelayAddr {
		t.Fatalf("expected compiled default, got %q", got)
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.Status != "online" || s.MessageDisplay != "cozy" || s.FontSize == 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}
