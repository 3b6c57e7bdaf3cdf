// Package config loads and validates BigTime client configuration.
//
// Configuration comes from a YAML file (bigtime.yaml next to the database by
// default) with BIGTIME_* environment variable overrides. Interval and
// timeout values are clamped to safe bounds rather than rejected, so a bad
// hand-edit never leaves the client unable to start.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Bounds for clamped settings.
const (
	MinSyncInterval = 5 * time.Second
	MaxSyncInterval = time.Hour
	MinHTTPTimeout  = 1 * time.Second
	MaxHTTPTimeout  = 2 * time.Minute
)

// Config is the read-only configuration consumed by the sync machinery.
type Config struct {
	// ServerURL is the base URL of the remote API, e.g. http://host:8080.
	// Empty means sync is not configured and the daemon stays idle.
	ServerURL string `mapstructure:"server_url"`
	// APIKey is the bearer token for every authenticated call.
	APIKey string `mapstructure:"api_key"`
	// DeviceID identifies this client on the server. Auto-generated on
	// first run when empty.
	DeviceID string `mapstructure:"device_id"`

	// SyncInterval is the cadence of the periodic inbound pull.
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	// HTTPTimeout bounds every outbound API call.
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	// DBPath locates the embedded database file.
	DBPath string `mapstructure:"db_path"`

	// Listen is the companion server's bind address (serve command only).
	Listen string `mapstructure:"listen"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// Configured reports whether enough is set for sync to run at all.
func (c *Config) Configured() bool {
	return c.ServerURL != "" && c.APIKey != ""
}

func defaults(v *viper.Viper) {
	// Empty defaults register the keys so env-only overrides are seen by
	// Unmarshal.
	v.SetDefault("server_url", "")
	v.SetDefault("api_key", "")
	v.SetDefault("device_id", "")
	v.SetDefault("sync_interval", 30*time.Second)
	v.SetDefault("http_timeout", 10*time.Second)
	v.SetDefault("db_path", "bigtime.db")
	v.SetDefault("listen", ":8320")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

// Load reads configuration from path (optional) and the environment.
// A missing file is not an error; defaults plus BIGTIME_* env vars apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("BIGTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.clamp()

	return &cfg, nil
}

// validate rejects settings that cannot be repaired by clamping.
func (c *Config) validate() error {
	if c.ServerURL != "" {
		u, err := url.Parse(c.ServerURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid server_url %q: must be an http(s) URL", c.ServerURL)
		}
	}
	return nil
}

// clamp pulls interval settings into their documented bounds.
func (c *Config) clamp() {
	if c.SyncInterval < MinSyncInterval {
		slog.Warn("sync_interval below minimum, clamping",
			"requested", c.SyncInterval, "minimum", MinSyncInterval)
		c.SyncInterval = MinSyncInterval
	} else if c.SyncInterval > MaxSyncInterval {
		slog.Warn("sync_interval above maximum, clamping",
			"requested", c.SyncInterval, "maximum", MaxSyncInterval)
		c.SyncInterval = MaxSyncInterval
	}

	if c.HTTPTimeout < MinHTTPTimeout {
		c.HTTPTimeout = MinHTTPTimeout
	} else if c.HTTPTimeout > MaxHTTPTimeout {
		c.HTTPTimeout = MaxHTTPTimeout
	}
}

// GenerateDeviceID builds a device identifier of the form
// bigtime-<hostname>-<8 hex chars>, matching what existing deployments use.
func GenerateDeviceID() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("bigtime-%s-%s", hostname, suffix)
}
