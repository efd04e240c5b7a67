// Package config holds YAML-backed node configuration plus the durable
// Settings blob (a single-row JSON document owned by internal/storage but
// typed here so both packages share one definition).
package config

// CurrentConfigVersion is the latest configuration schema version. Bump
// this when adding fields that require migration.
const CurrentConfigVersion = 1

// NodeConfig is the unified YAML configuration for a Dusk node.
type NodeConfig struct {
	Version   int             `yaml:"version,omitempty"`
	Identity  IdentityConfig  `yaml:"identity"`
	Network   NetworkConfig   `yaml:"network"`
	Relay     RelayConfig     `yaml:"relay"`
	Discovery DiscoveryConfig `yaml:"discovery,omitempty"`
	Storage   StorageConfig   `yaml:"storage"`
	CLI       CLIConfig       `yaml:"cli,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
}

// IdentityConfig names a key file path. Load requires it and resolves it
// relative to the config file; the node's keypair itself is loaded from and
// saved to the database, not this file.
type IdentityConfig struct {
	KeyFile string `yaml:"key_file"`
}

// NetworkConfig holds libp2p listen/transport configuration.
type NetworkConfig struct {
	ListenAddresses    []string `yaml:"listen_addresses"`
	EnableNATPortMap   bool     `yaml:"enable_nat_port_map"`
	EnableHolePunching bool     `yaml:"enable_hole_punching"`
}

// RelayConfig names a circuit-relay address. start_node does not read Addr:
// it resolves the relay from DUSK_RELAY_ADDR (env, highest priority), then
// settings.custom_relay_addr, then the compiled default.
type RelayConfig struct {
	Addr string `yaml:"addr"`
}

// DiscoveryConfig controls LAN and WAN peer discovery.
type DiscoveryConfig struct {
	MDNSEnabled *bool `yaml:"mdns_enabled,omitempty"` // default true
}

// IsMDNSEnabled defaults to true when not explicitly set.
func (d DiscoveryConfig) IsMDNSEnabled() bool {
	if d.MDNSEnabled == nil {
		return true
	}
	return *d.MDNSEnabled
}

// StorageConfig locates the durable SQLite database and legacy migration roots.
type StorageConfig struct {
	DatabasePath  string `yaml:"database_path"`
	LegacyDataDir string `yaml:"legacy_data_dir,omitempty"`
}

// CLIConfig holds settings for CLI subcommand behavior.
type CLIConfig struct {
	NoColor bool `yaml:"no_color,omitempty"`
}

// TelemetryConfig holds observability settings. All opt-in, disabled by default.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
	Audit   AuditConfig   `yaml:"audit,omitempty"`
}

// MetricsConfig controls Prometheus metrics exposure.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"` // no default is applied
}

// AuditConfig controls structured audit logging.
type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Settings is the durable, user-editable preferences blob: a single-row
// JSON document with defaults filled when absent.
type Settings struct {
	DisplayName                string `json:"display_name"`
	Status                     string `json:"status"` // online, idle, dnd, invisible
	StatusMessage              string `json:"status_message"`
	EnableSounds               bool   `json:"enable_sounds"`
	EnableDesktopNotifications bool   `json:"enable_desktop_notifications"`
	EnableMessagePreview       bool   `json:"enable_message_preview"`
	ShowOnlineStatus           bool   `json:"show_online_status"`
	AllowDMsFromAnyone         bool   `json:"allow_dms_from_anyone"`
	MessageDisplay             string `json:"message_display"` // cozy, compact
	FontSize                   int    `json:"font_size"`
	CustomRelayAddr            string `json:"custom_relay_addr,omitempty"`
	RelayDiscoverable          bool   `json:"relay_discoverable"`
}

// DefaultSettings returns the recognized-option defaults filled in when a
// Settings row is absent.
func DefaultSettings() Settings {
	return Settings{
		Status:                     "online",
		EnableSounds:               true,
		EnableDesktopNotifications: true,
		EnableMessagePreview:       true,
		ShowOnlineStatus:           true,
		AllowDMsFromAnyone:         true,
		MessageDisplay:             "cozy",
		FontSize:                   14,
		RelayDiscoverable:          true,
	}
}
