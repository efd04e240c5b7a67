package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// checkConfigFilePermissions returns an error if a config file has overly
// permissive permissions (group/world readable), which makes Load fail.
func checkConfigFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil // file access errors are handled by the caller
	}
	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		return fmt.Errorf("config file %s has overly permissive mode %04o; expected 0600 — fix with: chmod 600 %s", path, mode, path)
	}
	return nil
}

// Load reads and parses a Dusk node config file.
func Load(path string) (*NodeConfig, error) {
	if err := checkConfigFilePermissions(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg NodeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Version > CurrentConfigVersion {
		return nil, fmt.Errorf("%w: version %d is newer than supported version %d; please upgrade duskd", ErrConfigVersionTooNew, cfg.Version, CurrentConfigVersion)
	}
	return &cfg, nil
}

// Validate checks that a NodeConfig has the fields required to start a node.
func Validate(cfg *NodeConfig) error {
	if cfg.Identity.KeyFile == "" {
		return fmt.Errorf("identity.key_file is required")
	}
	if len(cfg.Network.ListenAddresses) == 0 {
		return fmt.Errorf("network.listen_addresses must contain at least one address")
	}
	if cfg.Storage.DatabasePath == "" {
		return fmt.Errorf("storage.database_path is required")
	}
	return nil
}

// FindConfigFile searches for a duskd config file in standard locations.
func FindConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, explicitPath)
		}
		return explicitPath, nil
	}

	searchPaths := []string{"duskd.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "duskd", "config.yaml"))
	}
	searchPaths = append(searchPaths, filepath.Join("/etc", "duskd", "config.yaml"))

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w; searched:\n  %s\n\nRun 'duskd init' to create one, or use --config <path>", ErrConfigNotFound, strings.Join(searchPaths, "\n  "))
}

// ResolveConfigPaths resolves relative file paths in the config to be
// relative to the config file's directory.
func ResolveConfigPaths(cfg *NodeConfig, configDir string) {
	if cfg.Identity.KeyFile != "" && !filepath.IsAbs(cfg.Identity.KeyFile) {
		cfg.Identity.KeyFile = filepath.Join(configDir, cfg.Identity.KeyFile)
	}
	if cfg.Storage.DatabasePath != "" && !filepath.IsAbs(cfg.Storage.DatabasePath) {
		cfg.Storage.DatabasePath = filepath.Join(configDir, cfg.Storage.DatabasePath)
	}
}

// DefaultConfigDir returns the default duskd config directory (~/.config/duskd).
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "duskd"), nil
}

// CompiledDefaultRelayAddr is the fallback relay address used when neither
// DUSK_RELAY_ADDR nor settings.custom_relay_addr is set.
const CompiledDefaultRelayAddr = "/dns4/relay.dusk.chat/tcp/4001/p2p/12D3KooWGRujD3z3fRYxqEEjJEmTGY3nFKJbbEcfJPhFt8rXBbrq"

// ResolveRelayAddr resolves the effective relay address: DUSK_RELAY_ADDR
// (env) wins over settings.custom_relay_addr, which wins over the compiled
// default.
func ResolveRelayAddr(envVal, settingsVal string) string {
	if envVal != "" {
		return envVal
	}
	if settingsVal != "" {
		return settingsVal
	}
	return CompiledDefaultRelayAddr
}
