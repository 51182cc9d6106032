package main

import (
	"fmt"
	"strings"
)

// ============================================================================
// Control Commands
// ============================================================================
// The command set is closed: every keypress maps to exactly one of these.
// Parsing an arbitrary CLI string can fail; once parsed, a ControlCommand is
// always resolvable.
// ============================================================================

// ControlCommand identifies one speaker control operation.
type ControlCommand int

const (
	CommandVolumeUp ControlCommand = iota
	CommandVolumeDown
	CommandMute
	CommandPlayPause
	CommandNext
	CommandPrev
)

// controlCommandNames maps commands to their CLI spelling.
var controlCommandNames = map[ControlCommand]string{
	CommandVolumeUp:   "volume_up",
	CommandVolumeDown: "volume_down",
	CommandMute:       "mute",
	CommandPlayPause:  "playpause",
	CommandNext:       "next",
	CommandPrev:       "prev",
}

func (c ControlCommand) String() string {
	if name, ok := controlCommandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ControlCommand(%d)", int(c))
}

// IsVolume reports whether the command adjusts the volume level.
func (c ControlCommand) IsVolume() bool {
	return c == CommandVolumeUp || c == CommandVolumeDown
}

// ParseControlCommand maps a CLI command string to a ControlCommand.
// This is the only place an unknown command can surface; everything past
// this boundary operates on the closed enum.
func ParseControlCommand(s string) (ControlCommand, error) {
	for cmd, name := range controlCommandNames {
		if name == strings.ToLower(s) {
			return cmd, nil
		}
	}
	return 0, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownCommand, s, validCommandList())
}

func validCommandList() string {
	return "volume_up, volume_down, mute, playpause, next, prev"
}

// ============================================================================
// Command Resolver
// ============================================================================

// CommandPlan is the resolved form of a ControlCommand: the operation the
// device client should perform, the volume step to apply (volume commands
// only), and the overlay template that will render the resulting state.
type CommandPlan struct {
	Command ControlCommand
	Step    int
	Overlay OverlayTemplate
}

// ResolveCommand is a pure mapping from command + configuration to a plan.
// It performs no I/O. The step defaults to the built-in when the config
// leaves volume_step unset.
func ResolveCommand(cmd ControlCommand, cfg Config) CommandPlan {
	step := cfg.VolumeStep
	if step <= 0 {
		step = defaultVolumeStep
	}

	return CommandPlan{
		Command: cmd,
		Step:    step,
		Overlay: templateFor(cmd),
	}
}
