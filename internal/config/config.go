package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration
type Config struct {
	AuditLog  string    `yaml:"audit_log"`
	StatusDir string    `yaml:"status_dir"`
	HistoryDB string    `yaml:"history_db"`
	SSH       SSHConfig `yaml:"ssh"`
	S3        S3Config  `yaml:"s3"`
}

// SSHConfig holds settings for SSH destinations
type SSHConfig struct {
	User                  string `yaml:"user"`
	Port                  int    `yaml:"port"`
	IdentityFile          string `yaml:"identity_file"`
	KnownHostsFile        string `yaml:"known_hosts_file"`
	InsecureIgnoreHostKey bool   `yaml:"insecure_ignore_host_key"`
}

// S3Config holds settings for object-storage destinations.
// Credentials come from the S3_ACCESS_KEY / S3_SECRET_KEY environment
// variables when set, otherwise the SDK default chain is used.
type S3Config struct {
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		AuditLog:  "/var/log/uplink/audit.log",
		StatusDir: "/var/lib/uplink/status",
		HistoryDB: "",
		SSH: SSHConfig{
			Port:           22,
			KnownHostsFile: defaultKnownHosts(),
		},
		S3: S3Config{
			Region:         "us-east-1",
			ForcePathStyle: true,
		},
	}
}

// EffectiveHistoryDB returns the configured history database path, or the
// default location inside the status directory when unset.
func (c *Config) EffectiveHistoryDB() string {
	if c.HistoryDB != "" {
		return c.HistoryDB
	}
	return filepath.Join(c.StatusDir, "history.db")
}

// Load reads a config file from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"uplink.yaml",
		"/etc/uplink/uplink.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "uplink", "uplink.yaml"))
	}

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no config file found in %v", searchPaths)
}

// Save writes the config to the given path in YAML format
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func defaultKnownHosts() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh", "known_hosts")
}
