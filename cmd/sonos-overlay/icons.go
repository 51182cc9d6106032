package main

import "fmt"

// Font Awesome solid glyph codepoints used by the overlay renderer.
// The renderer loads the face from config font_path.
const (
	iconVolumeHigh   = "\uf028"
	iconVolumeLow    = "\uf027"
	iconVolumeXmark  = "\uf6a9"
	iconVolumeOff    = "\uf026"
	iconPlay         = "\uf04b"
	iconPause        = "\uf04c"
	iconForwardStep  = "\uf051"
	iconBackwardStep = "\uf048"
)

// volumeIcon picks the glyph tier for a volume level.
func volumeIcon(level int, muted bool) string {
	switch {
	case muted:
		return iconVolumeXmark
	case level == 0:
		return iconVolumeOff
	case level < 33:
		return iconVolumeLow
	default:
		return iconVolumeHigh
	}
}

// ============================================================================
// Overlay descriptors and templates
// ============================================================================

// OverlayDescriptor is the content the overlay renders: a glyph, an optional
// caption, and an optional 0-100 progress value (volume bar).
type OverlayDescriptor struct {
	Icon     string `json:"icon"`
	Text     string `json:"text,omitempty"`
	Progress *int   `json:"progress,omitempty"`
}

// overlayKind discriminates how a template turns a DeviceState into content.
type overlayKind int

const (
	overlayVolume overlayKind = iota
	overlayMute
	overlayTransport
	overlayStatic
)

// OverlayTemplate is produced by the Command Resolver before the device round
// trip. Render combines it with the observed DeviceState once that state is
// known; the overlay never renders speculative content.
type OverlayTemplate struct {
	kind overlayKind

	// Static content for commands whose overlay does not depend on the
	// resulting state (next/prev).
	icon string
	text string
}

// templateFor maps a command to its overlay template.
func templateFor(cmd ControlCommand) OverlayTemplate {
	switch cmd {
	case CommandVolumeUp, CommandVolumeDown:
		return OverlayTemplate{kind: overlayVolume}
	case CommandMute:
		return OverlayTemplate{kind: overlayMute}
	case CommandPlayPause:
		return OverlayTemplate{kind: overlayTransport}
	case CommandNext:
		return OverlayTemplate{kind: overlayStatic, icon: iconForwardStep, text: "Next Track"}
	case CommandPrev:
		return OverlayTemplate{kind: overlayStatic, icon: iconBackwardStep, text: "Previous Track"}
	default:
		return OverlayTemplate{kind: overlayStatic}
	}
}

// Render derives the overlay content from the observed device state.
func (t OverlayTemplate) Render(state DeviceState) OverlayDescriptor {
	switch t.kind {
	case overlayVolume:
		if vs, ok := state.(VolumeState); ok {
			level := vs.Level
			return OverlayDescriptor{
				Icon:     volumeIcon(level, false),
				Text:     fmt.Sprintf("%d%%", level),
				Progress: &level,
			}
		}

	case overlayMute:
		if ms, ok := state.(MuteState); ok {
			if ms.Active {
				return OverlayDescriptor{Icon: iconVolumeXmark, Text: "Muted"}
			}
			return OverlayDescriptor{Icon: iconVolumeHigh, Text: "Unmuted"}
		}

	case overlayTransport:
		if ts, ok := state.(TransportState); ok {
			// Mirror the system style: while playing, show the pause glyph.
			if ts.Action == TransportPlayed {
				return OverlayDescriptor{Icon: iconPause, Text: "Playing"}
			}
			return OverlayDescriptor{Icon: iconPlay, Text: "Paused"}
		}
	}

	return OverlayDescriptor{Icon: t.icon, Text: t.text}
}
