package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies that DefaultConfig returns sensible defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		getValue func(*Config) string
		want     string
	}{
		{"audit log", func(c *Config) string { return c.AuditLog }, "/var/log/uplink/audit.log"},
		{"status dir", func(c *Config) string { return c.StatusDir }, "/var/lib/uplink/status"},
		{"history db", func(c *Config) string { return c.HistoryDB }, ""},
		{"s3 region", func(c *Config) string { return c.S3.Region }, "us-east-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.getValue(cfg)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if cfg.SSH.Port != 22 {
		t.Errorf("SSH.Port = %d, want 22", cfg.SSH.Port)
	}
	if !cfg.S3.ForcePathStyle {
		t.Error("S3.ForcePathStyle = false, want true")
	}
}

// TestLoad tests loading a valid config file
func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "uplink.yaml")

	configContent := `
audit_log: /custom/audit.log
status_dir: /custom/status
history_db: /custom/history.db
ssh:
  user: deploy
  port: 2222
  identity_file: /home/deploy/.ssh/id_ed25519
s3:
  endpoint: http://minio.local:9000
  region: eu-west-1
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AuditLog != "/custom/audit.log" {
		t.Errorf("AuditLog = %q", cfg.AuditLog)
	}
	if cfg.StatusDir != "/custom/status" {
		t.Errorf("StatusDir = %q", cfg.StatusDir)
	}
	if cfg.SSH.User != "deploy" {
		t.Errorf("SSH.User = %q", cfg.SSH.User)
	}
	if cfg.SSH.Port != 2222 {
		t.Errorf("SSH.Port = %d", cfg.SSH.Port)
	}
	if cfg.S3.Endpoint != "http://minio.local:9000" {
		t.Errorf("S3.Endpoint = %q", cfg.S3.Endpoint)
	}
	if cfg.S3.Region != "eu-west-1" {
		t.Errorf("S3.Region = %q", cfg.S3.Region)
	}
}

// TestLoadPartial verifies unset fields keep defaults
func TestLoadPartial(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "uplink.yaml")
	if err := os.WriteFile(configFile, []byte("status_dir: /tmp/status\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StatusDir != "/tmp/status" {
		t.Errorf("StatusDir = %q", cfg.StatusDir)
	}
	if cfg.AuditLog != "/var/log/uplink/audit.log" {
		t.Errorf("AuditLog = %q, want default", cfg.AuditLog)
	}
	if cfg.SSH.Port != 22 {
		t.Errorf("SSH.Port = %d, want default 22", cfg.SSH.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configFile, []byte("audit_log: [unclosed\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	if _, err := Load(configFile); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestEffectiveHistoryDB(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StatusDir = "/data/status"

	if got := cfg.EffectiveHistoryDB(); got != "/data/status/history.db" {
		t.Errorf("EffectiveHistoryDB = %q", got)
	}

	cfg.HistoryDB = "/elsewhere/h.db"
	if got := cfg.EffectiveHistoryDB(); got != "/elsewhere/h.db" {
		t.Errorf("EffectiveHistoryDB = %q", got)
	}
}

// TestSaveRoundTrip writes a config and loads it back
func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "uplink.yaml")

	cfg := DefaultConfig()
	cfg.AuditLog = "/srv/audit.log"
	cfg.SSH.User = "uploader"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.AuditLog != "/srv/audit.log" {
		t.Errorf("AuditLog = %q", loaded.AuditLog)
	}
	if loaded.SSH.User != "uploader" {
		t.Errorf("SSH.User = %q", loaded.SSH.User)
	}
}
