package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8556 {
		t.Errorf("Port = %d, want 8556", cfg.Port)
	}
	if cfg.Widget.HoverDelay.Duration != 300*time.Millisecond {
		t.Errorf("HoverDelay = %v", cfg.Widget.HoverDelay)
	}
	if cfg.Widget.TooltipDuration.Duration != 2*time.Second {
		t.Errorf("TooltipDuration = %v", cfg.Widget.TooltipDuration)
	}
	if !cfg.Shortener.Enabled || cfg.Shortener.Service != "tinyurl" {
		t.Errorf("Shortener = %+v", cfg.Shortener)
	}
	if cfg.QR.Encoder != "skip2" {
		t.Errorf("Encoder = %q", cfg.QR.Encoder)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
port: 9000
log_level: debug
shortener:
  service: isgd
  timeout: 2s
widget:
  hover_delay: 150ms
qr:
  encoder: yeqown
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PAGEQR_PORT", "9100")
	t.Setenv("PAGEQR_SHORTENER", "off")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want env override 9100", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Shortener.Enabled {
		t.Error("shortener should be disabled by env")
	}
	if cfg.Shortener.Service != "isgd" || cfg.Shortener.Timeout.Duration != 2*time.Second {
		t.Errorf("Shortener = %+v", cfg.Shortener)
	}
	if cfg.Widget.HoverDelay.Duration != 150*time.Millisecond {
		t.Errorf("HoverDelay = %v", cfg.Widget.HoverDelay)
	}
	if cfg.QR.Encoder != "yeqown" {
		t.Errorf("Encoder = %q", cfg.QR.Encoder)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad duration", "widget:\n  hover_delay: soon\n"},
		{"bad encoder", "qr:\n  encoder: zxing\n"},
		{"custom without endpoint", "shortener:\n  service: custom\n"},
		{"file clipboard without path", "widget:\n  clipboard: file\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
