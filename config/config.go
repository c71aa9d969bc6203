// Package config handles loading and managing application configuration
// from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ShortenerConfig selects and tunes the URL shortening service.
type ShortenerConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Service  string   `yaml:"service"`  // tinyurl, isgd, vgd or custom
	Endpoint string   `yaml:"endpoint"` // only used when service is custom
	Timeout  Duration `yaml:"timeout"`
}

// FaviconConfig tunes favicon discovery and loading.
type FaviconConfig struct {
	ProbeTimeout Duration `yaml:"probe_timeout"`
	MaxBytes     int64    `yaml:"max_bytes"`
}

// QRConfig selects the QR encoder backend.
type QRConfig struct {
	Encoder string `yaml:"encoder"` // skip2 or yeqown
}

// WidgetConfig holds the floating widget timings.
type WidgetConfig struct {
	HoverDelay      Duration `yaml:"hover_delay"`
	TooltipDuration Duration `yaml:"tooltip_duration"`
	RetryDelay      Duration `yaml:"retry_delay"`
	Clipboard       string   `yaml:"clipboard"` // auto, command, file or none
	ClipboardFile   string   `yaml:"clipboard_file"`
	SessionTTL      Duration `yaml:"session_ttl"` // idle HTTP widget sessions are unmounted after this
}

// Config holds all application configuration values.
type Config struct {
	Port      int             `yaml:"port"`
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
	Shortener ShortenerConfig `yaml:"shortener"`
	Favicon   FaviconConfig   `yaml:"favicon"`
	QR        QRConfig        `yaml:"qr"`
	Widget    WidgetConfig    `yaml:"widget"`
}

// Duration is a wrapper around time.Duration that supports YAML unmarshalling
// from human-readable strings like "300ms", "5s", "1m".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return &Config{
		Port:     8556,
		DataDir:  filepath.Join(homeDir, ".pageqr"),
		LogLevel: "info",
		Shortener: ShortenerConfig{
			Enabled: true,
			Service: "tinyurl",
			Timeout: Duration{5 * time.Second},
		},
		Favicon: FaviconConfig{
			ProbeTimeout: Duration{3 * time.Second},
			MaxBytes:     1 << 20,
		},
		QR: QRConfig{
			Encoder: "skip2",
		},
		Widget: WidgetConfig{
			HoverDelay:      Duration{300 * time.Millisecond},
			TooltipDuration: Duration{2 * time.Second},
			RetryDelay:      Duration{time.Second},
			Clipboard:       "auto",
			SessionTTL:      Duration{30 * time.Minute},
		},
	}
}

// Load reads configuration from the YAML file at path, falling back to
// defaults if the file does not exist. Environment variables with the
// PAGEQR_ prefix override any file or default values.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies PAGEQR_* environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PAGEQR_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("PAGEQR_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PAGEQR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PAGEQR_SHORTENER"); v != "" {
		switch strings.ToLower(v) {
		case "off", "false", "0", "no":
			cfg.Shortener.Enabled = false
		default:
			cfg.Shortener.Enabled = true
			cfg.Shortener.Service = strings.ToLower(v)
		}
	}
	if v := os.Getenv("PAGEQR_SHORTENER_ENDPOINT"); v != "" {
		cfg.Shortener.Endpoint = v
	}
	if v := os.Getenv("PAGEQR_QR_ENCODER"); v != "" {
		cfg.QR.Encoder = strings.ToLower(v)
	}
	if v := os.Getenv("PAGEQR_HOVER_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Widget.HoverDelay = Duration{d}
		}
	}
	if v := os.Getenv("PAGEQR_CLIPBOARD"); v != "" {
		cfg.Widget.Clipboard = strings.ToLower(v)
	}
	if v := os.Getenv("PAGEQR_CLIPBOARD_FILE"); v != "" {
		cfg.Widget.ClipboardFile = v
	}
}

func (c *Config) validate() error {
	switch c.QR.Encoder {
	case "skip2", "yeqown":
	default:
		return fmt.Errorf("unknown qr encoder %q", c.QR.Encoder)
	}
	if c.Shortener.Service == "custom" && c.Shortener.Endpoint == "" {
		return fmt.Errorf("shortener service custom requires an endpoint")
	}
	switch c.Widget.Clipboard {
	case "auto", "command", "file", "none":
	default:
		return fmt.Errorf("unknown clipboard %q", c.Widget.Clipboard)
	}
	if c.Widget.Clipboard == "file" && c.Widget.ClipboardFile == "" {
		return fmt.Errorf("clipboard file requires clipboard_file")
	}
	return nil
}

// EnsureDataDir creates the DataDir if it does not already exist.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", c.DataDir, err)
	}
	return nil
}

// SettingsPath returns the location of the SQLite settings database.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.db")
}
