package main

import (
	"fmt"
	"time"
)

// ============================================================================
// Overlay State Machine
// ============================================================================
// The overlay lifecycle is a small reducer:
//
//   - Events: begin (a DeviceState is available) and frame ticks
//   - Commands: surface side effects (show, set opacity, release)
//   - reduceOverlay(): computes next session + commands, without performing I/O
//
// The session runner executes the commands and owns the real clock; the
// reducer only ever sees timestamps carried by events, which keeps every
// transition deterministic under test.
//
// Phases: Hidden -> FadingIn -> Visible -> FadingOut -> Hidden (terminal).
// The fade-out always begins duration_ms after the first frame appeared, so
// the on-screen time is consistent across invocations no matter how long the
// fade-in took.
// ============================================================================

// OverlayPhase is the overlay's animation phase.
type OverlayPhase int

const (
	PhaseHidden OverlayPhase = iota
	PhaseFadingIn
	PhaseVisible
	PhaseFadingOut
)

func (p OverlayPhase) String() string {
	switch p {
	case PhaseHidden:
		return "hidden"
	case PhaseFadingIn:
		return "fading_in"
	case PhaseVisible:
		return "visible"
	case PhaseFadingOut:
		return "fading_out"
	default:
		return fmt.Sprintf("OverlayPhase(%d)", int(p))
	}
}

// overlaySession is the reducer-owned state of the single overlay instance
// for one invocation. Done marks the terminal Hidden state.
type overlaySession struct {
	Phase      OverlayPhase
	Done       bool
	Opacity    float64
	Descriptor OverlayDescriptor

	// AppearedAt is when the surface was first shown (fade-in start).
	AppearedAt time.Time

	// FadeOutBegan is when the fade-out started.
	FadeOutBegan time.Time
}

// newOverlaySession creates a session in the initial Hidden phase.
// A session is only ever created once a DeviceState has been observed; the
// overlay never renders speculative content.
func newOverlaySession(desc OverlayDescriptor) overlaySession {
	return overlaySession{Phase: PhaseHidden, Descriptor: desc}
}

// ==============================
// Events
// ==============================

// overlayEvent is the input to the overlay reducer.
type overlayEvent interface {
	overlayEventMarker()
}

// overlayBegin starts the session: the device round trip has completed and
// the resulting state is ready to display.
type overlayBegin struct {
	Now time.Time
}

func (overlayBegin) overlayEventMarker() {}

// overlayTick is emitted by the session runner at the frame cadence.
type overlayTick struct {
	Now time.Time
}

func (overlayTick) overlayEventMarker() {}

// ==============================
// Commands (surface side effects)
// ==============================

// surfaceCommand is a side effect the session runner must apply to the
// overlay surface.
type surfaceCommand interface {
	surfaceCommandMarker()
	String() string
}

// cmdShowSurface materializes the surface at zero opacity.
type cmdShowSurface struct {
	Descriptor OverlayDescriptor
}

func (cmdShowSurface) surfaceCommandMarker() {}
func (c cmdShowSurface) String() string      { return "cmdShowSurface(" + c.Descriptor.Text + ")" }

// cmdSetOpacity updates the surface opacity (0..max).
type cmdSetOpacity struct {
	Opacity float64
}

func (cmdSetOpacity) surfaceCommandMarker() {}
func (c cmdSetOpacity) String() string      { return fmt.Sprintf("cmdSetOpacity(%.3f)", c.Opacity) }

// cmdReleaseSurface tears the surface down.
type cmdReleaseSurface struct{}

func (cmdReleaseSurface) surfaceCommandMarker() {}
func (cmdReleaseSurface) String() string        { return "cmdReleaseSurface()" }

// ==============================
// Reducer
// ==============================

// reduceOverlay is the pure overlay reducer. It must not perform I/O, block,
// or read the clock: time arrives only through events.
func reduceOverlay(s overlaySession, ev overlayEvent, style OverlayStyle) (overlaySession, []surfaceCommand) {
	var cmds []surfaceCommand

	maxOpacity := style.BackgroundOpacity
	holdFor := time.Duration(style.DurationMS) * time.Millisecond

	switch ev := ev.(type) {
	case overlayBegin:
		if s.Phase != PhaseHidden || s.Done {
			return s, nil
		}
		s.Phase = PhaseFadingIn
		s.AppearedAt = ev.Now
		s.Opacity = 0
		cmds = append(cmds, cmdShowSurface{Descriptor: s.Descriptor})

	case overlayTick:
		switch s.Phase {
		case PhaseFadingIn:
			elapsed := ev.Now.Sub(s.AppearedAt)
			if elapsed >= overlayFadeInDuration {
				s.Phase = PhaseVisible
				s.Opacity = maxOpacity
			} else {
				s.Opacity = maxOpacity * float64(elapsed) / float64(overlayFadeInDuration)
			}
			cmds = append(cmds, cmdSetOpacity{Opacity: s.Opacity})

		case PhaseVisible:
			// Fade-out is scheduled relative to first appearance, not to the
			// end of the fade-in, so the hold absorbs any fade-in overrun.
			if ev.Now.Sub(s.AppearedAt) >= holdFor {
				s.Phase = PhaseFadingOut
				s.FadeOutBegan = ev.Now
			}

		case PhaseFadingOut:
			elapsed := ev.Now.Sub(s.FadeOutBegan)
			if elapsed >= overlayFadeOutDuration {
				s.Phase = PhaseHidden
				s.Done = true
				s.Opacity = 0
				cmds = append(cmds, cmdSetOpacity{Opacity: 0}, cmdReleaseSurface{})
			} else {
				s.Opacity = maxOpacity * (1 - float64(elapsed)/float64(overlayFadeOutDuration))
				cmds = append(cmds, cmdSetOpacity{Opacity: s.Opacity})
			}

		case PhaseHidden:
			// Terminal (or not yet begun): nothing to do.
		}
	}

	return s, cmds
}
