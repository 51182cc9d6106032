package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigIsValidWithSpeaker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SpeakerName = "Living Room"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Backend != "sonos" {
		t.Errorf("expected sonos backend default, got %q", cfg.Backend)
	}
	if cfg.VolumeStep != defaultVolumeStep {
		t.Errorf("expected default volume step %d, got %d", defaultVolumeStep, cfg.VolumeStep)
	}
	if cfg.Style.DurationMS != defaultDurationMS {
		t.Errorf("expected default duration %d, got %d", defaultDurationMS, cfg.Style.DurationMS)
	}
}

func TestValidateRequiresSpeakerIdentifier(t *testing.T) {
	cfg := DefaultConfig()

	err := cfg.Validate()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration without speaker identifier, got %v", err)
	}

	cfg.SpeakerIP = "192.168.1.50"
	if err := cfg.Validate(); err != nil {
		t.Errorf("speaker_ip alone should suffice: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
speaker_name: "Living Room"
volume_step: 4
style:
  background_color: "#112233"
  background_opacity: 0.7
  font_color: "#FFFFFF"
  corner_radius: 8
  duration_ms: 2000
logging:
  level: debug
`)

	cfg, err := LoadConfigFile(path, true)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}

	if cfg.SpeakerName != "Living Room" {
		t.Errorf("expected speaker name, got %q", cfg.SpeakerName)
	}
	if cfg.VolumeStep != 4 {
		t.Errorf("expected volume_step 4, got %d", cfg.VolumeStep)
	}
	if cfg.Style.BackgroundColor != "#112233" {
		t.Errorf("expected background color override, got %q", cfg.Style.BackgroundColor)
	}
	if cfg.Style.DurationMS != 2000 {
		t.Errorf("expected duration 2000, got %d", cfg.Style.DurationMS)
	}

	// Unset fields keep their defaults.
	if cfg.TimeoutMS != defaultTimeoutMS {
		t.Errorf("expected default timeout, got %d", cfg.TimeoutMS)
	}
	if cfg.Backend != "sonos" {
		t.Errorf("expected default backend, got %q", cfg.Backend)
	}
}

func TestLoadConfigFileRejectsUnknownFields(t *testing.T) {
	path := writeConfigFile(t, "speaker_nmae: \"Living Room\"\n")

	_, err := LoadConfigFile(path, true)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for unknown key, got %v", err)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yml")

	// Not required (default path): defaults apply.
	cfg, err := LoadConfigFile(missing, false)
	if err != nil {
		t.Fatalf("missing optional config should not fail: %v", err)
	}
	if cfg.Backend != "sonos" {
		t.Errorf("expected defaults, got backend %q", cfg.Backend)
	}

	// Required (explicit -config flag): hard error.
	if _, err := LoadConfigFile(missing, true); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for missing required config, got %v", err)
	}
}

func TestLoadConfigFileRejectsTrailingDocument(t *testing.T) {
	path := writeConfigFile(t, "speaker_name: \"Kitchen\"\n---\nspeaker_name: \"Attic\"\n")

	if _, err := LoadConfigFile(path, true); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for trailing document, got %v", err)
	}
}

func TestValidateStyle(t *testing.T) {
	base := func() Config {
		cfg := DefaultConfig()
		cfg.SpeakerIP = "192.168.1.50"
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad background color", func(c *Config) { c.Style.BackgroundColor = "red" }},
		{"opacity above 1", func(c *Config) { c.Style.BackgroundOpacity = 1.5 }},
		{"negative opacity", func(c *Config) { c.Style.BackgroundOpacity = -0.1 }},
		{"negative radius", func(c *Config) { c.Style.CornerRadius = -1 }},
		{"zero duration", func(c *Config) { c.Style.DurationMS = 0 }},
		{"zero volume step", func(c *Config) { c.VolumeStep = 0 }},
		{"oversized volume step", func(c *Config) { c.VolumeStep = 101 }},
		{"unknown backend", func(c *Config) { c.Backend = "airplay" }},
		{"zero timeout", func(c *Config) { c.TimeoutMS = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestValidateCamillaDSPBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "camilladsp"

	// No speaker identifier needed for this backend.
	if err := cfg.Validate(); err != nil {
		t.Fatalf("camilladsp defaults should validate: %v", err)
	}

	cfg.CamillaDSP.WsURL = ""
	if err := cfg.Validate(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for empty ws_url, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Backend = "camilladsp"
	cfg.CamillaDSP.MinDB = 0
	cfg.CamillaDSP.MaxDB = -60
	if err := cfg.Validate(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for inverted dB window, got %v", err)
	}
}

func TestFlagOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SpeakerName = "Living Room"

	ip := "192.168.1.60"
	step := 10
	duration := 900
	level := "debug"

	overrides := FlagOverrides{
		SpeakerIP:  &ip,
		VolumeStep: &step,
		DurationMS: &duration,
		LogLevel:   &level,
	}
	overrides.Apply(&cfg)

	if cfg.SpeakerIP != ip {
		t.Errorf("expected speaker IP override, got %q", cfg.SpeakerIP)
	}
	if cfg.VolumeStep != 10 {
		t.Errorf("expected volume step override, got %d", cfg.VolumeStep)
	}
	if cfg.Style.DurationMS != 900 {
		t.Errorf("expected duration override, got %d", cfg.Style.DurationMS)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level override, got %q", cfg.Logging.Level)
	}

	// Nil pointers leave fields untouched.
	if cfg.SpeakerName != "Living Room" {
		t.Errorf("expected speaker name untouched, got %q", cfg.SpeakerName)
	}
	if cfg.TimeoutMS != defaultTimeoutMS {
		t.Errorf("expected timeout untouched, got %d", cfg.TimeoutMS)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := ExpandPath("~/fonts/fa.otf"); got != filepath.Join(home, "fonts/fa.otf") {
		t.Errorf("unexpected expansion: %q", got)
	}
	if got := ExpandPath("/tmp/x.sock"); got != "/tmp/x.sock" {
		t.Errorf("absolute path should pass through, got %q", got)
	}
	if got := ExpandPath(""); got != "" {
		t.Errorf("empty path should pass through, got %q", got)
	}
	if got := ExpandPath("~"); got != home {
		t.Errorf("bare tilde should expand to home, got %q", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, s := range []string{"error", "warn", "info", "debug"} {
		if _, err := parseLogLevel(s); err != nil {
			t.Errorf("parseLogLevel(%q) failed: %v", s, err)
		}
	}
	if _, err := parseLogLevel("loud"); err == nil {
		t.Error("expected error for unknown log level")
	}
	if _, err := parseLogLevel(strings.ToUpper("info")); err != nil {
		t.Error("expected level parsing to be case-insensitive")
	}
}
