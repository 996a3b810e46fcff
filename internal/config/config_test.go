package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/newthinker/signalbook/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestLoad_FromFile(t *testing.T) {
	cfgPath := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9090

storage:
  driver: sqlite
  dsn: "/tmp/signalbook.db"

archive:
  enabled: true
  type: s3
  s3:
    bucket: signals
    endpoint: "http://localhost:9000"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected sqlite, got %s", cfg.Storage.Driver)
	}
	if cfg.Archive.Type != "s3" || cfg.Archive.S3.Bucket != "signals" {
		t.Errorf("unexpected archive config %+v", cfg.Archive)
	}
	// Unset keys keep defaults
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("expected default metrics path, got %q", cfg.Metrics.Path)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("expected default read timeout, got %s", cfg.Server.ReadTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("SIGNALBOOK_TEST_KEY", "secret-key")
	cfgPath := writeConfig(t, `
server:
  api_key: "${SIGNALBOOK_TEST_KEY}"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.APIKey != "secret-key" {
		t.Errorf("expected expanded api key, got %q", cfg.Server.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("expected memory driver, got %s", cfg.Storage.Driver)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("unexpected addr %s", cfg.Server.Addr())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestArchiveConfig_Backend(t *testing.T) {
	a := ArchiveConfig{Type: "s3", S3: S3Config{Bucket: "b", Prefix: "p"}}
	b := a.Backend()
	if b.Type != "s3" || b.S3.Bucket != "b" || b.S3.Prefix != "p" {
		t.Errorf("unexpected backend config %+v", b)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mod func(*Config)) Config {
		c := *Defaults()
		mod(&c)
		return c
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"valid config", valid(func(c *Config) {}), nil},
		{"invalid port - zero", valid(func(c *Config) { c.Server.Port = 0 }), core.ErrConfigInvalid},
		{"invalid port - too high", valid(func(c *Config) { c.Server.Port = 70000 }), core.ErrConfigInvalid},
		{"unknown driver", valid(func(c *Config) { c.Storage.Driver = "postgres" }), core.ErrConfigInvalid},
		{"sqlite without dsn", valid(func(c *Config) { c.Storage.Driver = "sqlite" }), core.ErrConfigMissing},
		{"negative max signals", valid(func(c *Config) { c.Storage.MaxSignals = -1 }), core.ErrConfigInvalid},
		{"archive localfs without path", valid(func(c *Config) { c.Archive.Enabled = true }), core.ErrConfigMissing},
		{"archive s3 without bucket", valid(func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Type = "s3"
		}), core.ErrConfigMissing},
		{"archive unknown type", valid(func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Type = "gcs"
		}), core.ErrConfigInvalid},
		{"disabled archive is not checked", valid(func(c *Config) { c.Archive.Type = "gcs" }), nil},
		{"metrics path without slash", valid(func(c *Config) { c.Metrics.Path = "metrics" }), core.ErrConfigInvalid},
		{"telegram without chat id", valid(func(c *Config) {
			c.Notify.Channels = map[string]NotifierConfig{"telegram": {Enabled: true, BotToken: "t"}}
		}), core.ErrConfigMissing},
		{"webhook without url", valid(func(c *Config) {
			c.Notify.Channels = map[string]NotifierConfig{"webhook": {Enabled: true}}
		}), core.ErrConfigMissing},
		{"unknown notifier", valid(func(c *Config) {
			c.Notify.Channels = map[string]NotifierConfig{"email": {Enabled: true}}
		}), core.ErrConfigInvalid},
		{"disabled notifier is not checked", valid(func(c *Config) {
			c.Notify.Channels = map[string]NotifierConfig{"email": {}}
		}), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Notify(t *testing.T) {
	cfgPath := writeConfig(t, `
notify:
  closed_only: true
  channels:
    webhook:
      enabled: true
      url: "http://localhost:9999/hook"
      headers:
        X-Token: abc
    telegram:
      enabled: false
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if !cfg.Notify.ClosedOnly {
		t.Error("expected closed_only")
	}
	hook, ok := cfg.Notify.Channels["webhook"]
	if !ok || !hook.Enabled {
		t.Fatalf("expected enabled webhook channel, got %+v", cfg.Notify.Channels)
	}

	nc := hook.Notifier("webhook")
	if nc.Type != "webhook" || nc.Params["url"] != "http://localhost:9999/hook" {
		t.Errorf("unexpected notifier config %+v", nc)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config should validate: %v", err)
	}
}
