package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for sonos-overlay.
//
// The config file is the primary configuration surface; flags exist for small
// ad-hoc overrides (and for passing the speaker identifier straight from the
// keyboard-remapper binding). Defaults and validation are centralized here so
// the rest of the code can assume a well-formed config.
type Config struct {
	// SpeakerIP is the resolved network address of the target player.
	// When empty, SpeakerName is resolved via SSDP discovery.
	SpeakerIP string `yaml:"speaker_ip"`

	// SpeakerName is the player's room name, used for discovery when no
	// address is configured.
	SpeakerName string `yaml:"speaker_name"`

	// Backend selects the device control protocol.
	Backend string `yaml:"backend" validate:"oneof=sonos camilladsp"`

	// VolumeStep is the volume delta per keypress in percent points.
	VolumeStep int `yaml:"volume_step" validate:"gte=1,lte=100"`

	// TimeoutMS bounds each device round trip.
	TimeoutMS int `yaml:"timeout_ms" validate:"gte=1"`

	// FontPath points the renderer at the glyph face for icons.
	FontPath string `yaml:"font_path"`

	// SocketPath is the overlay renderer's Unix domain socket.
	SocketPath string `yaml:"socket_path"`

	// CamillaDSP configures the camilladsp backend (ignored for sonos).
	CamillaDSP CamillaDSPConfig `yaml:"camilladsp"`

	// Style configures the overlay appearance.
	Style OverlayStyle `yaml:"style"`

	// Logging configures diagnostics.
	Logging LoggingConfig `yaml:"logging"`
}

// CamillaDSPConfig holds the websocket endpoint and the dB window that the
// 0-100 volume scale is mapped onto.
type CamillaDSPConfig struct {
	WsURL string  `yaml:"ws_url"`
	MinDB float64 `yaml:"min_db"`
	MaxDB float64 `yaml:"max_db"`
}

// OverlayStyle is the overlay appearance configuration. It is loaded once per
// invocation and owned by the overlay session for the invocation's lifetime.
type OverlayStyle struct {
	BackgroundColor   string  `yaml:"background_color" json:"background_color" validate:"hexcolor"`
	BackgroundOpacity float64 `yaml:"background_opacity" json:"background_opacity" validate:"gte=0,lte=1"`
	FontColor         string  `yaml:"font_color" json:"font_color" validate:"hexcolor"`
	CornerRadius      int     `yaml:"corner_radius" json:"corner_radius" validate:"gte=0"`
	DurationMS        int     `yaml:"duration_ms" json:"duration_ms" validate:"gte=1"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go and the documented config file.
func DefaultConfig() Config {
	return Config{
		Backend:    "sonos",
		VolumeStep: defaultVolumeStep,
		TimeoutMS:  defaultTimeoutMS,
		FontPath:   "~/Library/Fonts/Font Awesome 7 Free-Solid-900.otf",
		SocketPath: "/tmp/sonos-overlay.sock",
		CamillaDSP: CamillaDSPConfig{
			WsURL: "ws://127.0.0.1:1234",
			MinDB: -65.0,
			MaxDB: 0.0,
		},
		Style: OverlayStyle{
			BackgroundColor:   defaultBackgroundColor,
			BackgroundOpacity: defaultBackgroundOpacity,
			FontColor:         defaultFontColor,
			CornerRadius:      defaultCornerRadius,
			DurationMS:        defaultDurationMS,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultConfigPath is where LoadConfigFile looks when no -config flag is set.
func DefaultConfigPath() string {
	return ExpandPath("~/.sonos-overlay.yml")
}

// LoadConfigFile reads and parses a YAML config file on top of defaults.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
// A missing file at the default path is not an error: defaults apply.
func LoadConfigFile(path string, required bool) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return Config{}, fmt.Errorf("%w: config path is empty", ErrConfiguration)
	}

	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("%w: read config file: %v", ErrConfiguration, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: decode config yaml: %v", ErrConfiguration, err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("%w: decode config yaml: unexpected trailing document", ErrConfiguration)
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
// Each override is only applied if its pointer is non-nil.
type FlagOverrides struct {
	SpeakerIP   *string
	SpeakerName *string
	Backend     *string
	VolumeStep  *int
	TimeoutMS   *int
	SocketPath  *string
	DurationMS  *int
	LogLevel    *string
}

// Apply merges the overrides into cfg. Nil pointers are ignored.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.SpeakerIP != nil {
		cfg.SpeakerIP = *o.SpeakerIP
	}
	if o.SpeakerName != nil {
		cfg.SpeakerName = *o.SpeakerName
	}
	if o.Backend != nil {
		cfg.Backend = *o.Backend
	}
	if o.VolumeStep != nil {
		cfg.VolumeStep = *o.VolumeStep
	}
	if o.TimeoutMS != nil {
		cfg.TimeoutMS = *o.TimeoutMS
	}
	if o.SocketPath != nil {
		cfg.SocketPath = *o.SocketPath
	}
	if o.DurationMS != nil {
		cfg.Style.DurationMS = *o.DurationMS
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// validate is the shared validator instance for struct-tag validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks config invariants and returns a user-friendly error.
// Called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("%w: %s fails %q validation (value %v)",
				ErrConfiguration, e.Namespace(), e.Tag(), e.Value())
		}
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	switch c.Backend {
	case "sonos":
		if c.SpeakerIP == "" && c.SpeakerName == "" {
			return fmt.Errorf("%w: speaker identifier is required (set speaker_ip or speaker_name, or pass it as an argument)", ErrConfiguration)
		}
	case "camilladsp":
		if c.CamillaDSP.WsURL == "" {
			return fmt.Errorf("%w: camilladsp.ws_url must not be empty", ErrConfiguration)
		}
		if c.CamillaDSP.MinDB >= c.CamillaDSP.MaxDB {
			return fmt.Errorf("%w: camilladsp.min_db must be < camilladsp.max_db", ErrConfiguration)
		}
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("%w: logging.level must not be empty", ErrConfiguration)
	}

	return nil
}

// ExpandPath expands a leading "~" in a path using $HOME.
// Handy for config values like font_path.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
