package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bigtime.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SyncInterval != 30*time.Second {
		t.Errorf("sync_interval = %s", cfg.SyncInterval)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("http_timeout = %s", cfg.HTTPTimeout)
	}
	if cfg.DBPath != "bigtime.db" || cfg.Listen != ":8320" {
		t.Errorf("paths: db=%q listen=%q", cfg.DBPath, cfg.Listen)
	}
	if cfg.Configured() {
		t.Error("empty config reports configured")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server_url: http://timeclock.example.com:8320
api_key: sekrit
sync_interval: 45s
db_path: /var/lib/bigtime/bigtime.db
log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerURL != "http://timeclock.example.com:8320" || cfg.APIKey != "sekrit" {
		t.Errorf("server settings: %+v", cfg)
	}
	if cfg.SyncInterval != 45*time.Second {
		t.Errorf("sync_interval = %s", cfg.SyncInterval)
	}
	if !cfg.Configured() {
		t.Error("configured file reports unconfigured")
	}
}

func TestIntervalClamping(t *testing.T) {
	path := writeConfig(t, `
sync_interval: 1s
http_timeout: 10m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SyncInterval != MinSyncInterval {
		t.Errorf("sync_interval = %s, want clamped to %s", cfg.SyncInterval, MinSyncInterval)
	}
	if cfg.HTTPTimeout != MaxHTTPTimeout {
		t.Errorf("http_timeout = %s, want clamped to %s", cfg.HTTPTimeout, MaxHTTPTimeout)
	}
}

func TestInvalidServerURLRejected(t *testing.T) {
	path := writeConfig(t, "server_url: not-a-url\n")
	if _, err := Load(path); err == nil {
		t.Error("accepted a server_url with no scheme")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("BIGTIME_API_KEY", "from-env")
	path := writeConfig(t, "api_key: from-file\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "from-env" {
		t.Errorf("api_key = %q, want env override", cfg.APIKey)
	}
}

func TestGenerateDeviceID(t *testing.T) {
	id := GenerateDeviceID()
	if !strings.HasPrefix(id, "bigtime-") {
		t.Errorf("device id %q missing prefix", id)
	}
	parts := strings.Split(id, "-")
	if len(parts) < 3 || len(parts[len(parts)-1]) != 8 {
		t.Errorf("device id %q not of form bigtime-<host>-<8hex>", id)
	}
	if GenerateDeviceID() == id {
		t.Error("two generated ids collided")
	}
}
