package main

import (
	"context"
	"errors"
	"fmt"
)

// ============================================================================
// Device Client contract
// ============================================================================
// A DeviceClient applies exactly one control command to one speaker and
// reports the observable result. Volume commands perform a read before the
// write (two round trips); the read-then-write is not atomic and a concurrent
// external change is an accepted race. There are no retries anywhere: a
// failed round trip surfaces immediately.
// ============================================================================

// Error taxonomy. Callers classify with errors.Is and map to exit codes.
var (
	// ErrDeviceUnreachable indicates the speaker could not be contacted
	// within the configured timeout.
	ErrDeviceUnreachable = errors.New("device unreachable")

	// ErrDeviceProtocol indicates the speaker responded but the response
	// could not be interpreted as a valid state.
	ErrDeviceProtocol = errors.New("device protocol error")

	// ErrUnknownCommand indicates a command string outside the closed set.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUnsupportedCommand indicates the selected backend has no operation
	// for the command (e.g. transport control on a DSP backend).
	ErrUnsupportedCommand = errors.New("unsupported command for backend")

	// ErrConfiguration indicates missing or malformed configuration.
	ErrConfiguration = errors.New("configuration error")
)

// DeviceClient sends control commands to one speaker endpoint.
// The endpoint is bound at construction and immutable for the invocation.
type DeviceClient interface {
	// Send applies cmd and returns the resulting state. step is the volume
	// delta in percent points and is ignored for non-volume commands.
	Send(ctx context.Context, cmd ControlCommand, step int) (DeviceState, error)

	Close() error
}

// ============================================================================
// Device State
// ============================================================================
// DeviceState is a closed union over the three observable outcomes. It is
// produced fresh on every call and never cached across invocations.
// ============================================================================

// DeviceState is the result of applying a command to the speaker.
type DeviceState interface {
	deviceStateMarker()
	String() string
}

// VolumeState reports the volume level after a volume command.
type VolumeState struct {
	Level int // 0-100
}

func (VolumeState) deviceStateMarker() {}
func (s VolumeState) String() string   { return fmt.Sprintf("Volume(%d)", s.Level) }

// MuteState reports the mute flag after a mute toggle.
type MuteState struct {
	Active bool
}

func (MuteState) deviceStateMarker() {}
func (s MuteState) String() string   { return fmt.Sprintf("Mute(%v)", s.Active) }

// TransportAction is the playback transition outcome of a transport command.
type TransportAction string

const (
	TransportPlayed  TransportAction = "played"
	TransportPaused  TransportAction = "paused"
	TransportSkipped TransportAction = "skipped"
)

// TransportState reports the transport transition after playpause/next/prev.
// For skips no attempt is made to report the new track.
type TransportState struct {
	Action TransportAction
}

func (TransportState) deviceStateMarker() {}
func (s TransportState) String() string   { return fmt.Sprintf("Transport(%s)", s.Action) }

// clampVolume bounds a volume level to the valid 0-100 range.
func clampVolume(level int) int {
	if level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}
