package main

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"
)

// ============================================================================
// Overlay Surface - renderer socket
// ============================================================================
// The drawing side of the overlay lives in a separate renderer process (the
// piece that owns the actual window). This process talks to it over a Unix
// domain socket with line-delimited JSON frames:
//
//   {"type": "show", "data": {"descriptor": {...}, "style": {...}}}
//   {"type": "opacity", "data": {"value": 0.42}}
//   {"type": "hide"}
//
// Frames are one-way; at frame cadence a request/response exchange per frame
// would add nothing but latency.
// ============================================================================

// OverlaySurface is the visual surface owned by one overlay session.
type OverlaySurface interface {
	// Show materializes the surface with the given content at zero opacity.
	Show(desc OverlayDescriptor, style OverlayStyle) error

	// SetOpacity updates the surface opacity.
	SetOpacity(opacity float64) error

	// Release tears the surface down. Safe to call more than once and
	// before Show.
	Release() error
}

// surfaceFrame wraps a frame with a type discriminator, mirroring the
// envelope shape used elsewhere in this codebase's JSON protocols.
type surfaceFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type showFrameData struct {
	Descriptor OverlayDescriptor `json:"descriptor"`
	Style      OverlayStyle      `json:"style"`
	FontPath   string            `json:"font_path,omitempty"`
}

type opacityFrameData struct {
	Value float64 `json:"value"`
}

// rendererSurface streams frames to the overlay renderer process.
type rendererSurface struct {
	socketPath string
	fontPath   string
	conn       net.Conn
}

// newRendererSurface creates a surface backed by the renderer socket.
// The socket is dialed lazily on Show, after the device round trip succeeded.
func newRendererSurface(socketPath, fontPath string) *rendererSurface {
	return &rendererSurface{
		socketPath: socketPath,
		fontPath:   fontPath,
	}
}

func (s *rendererSurface) Show(desc OverlayDescriptor, style OverlayStyle) error {
	if s.conn == nil {
		conn, err := net.DialTimeout("unix", s.socketPath, time.Second)
		if err != nil {
			return fmt.Errorf("connect to overlay renderer at %s: %w", s.socketPath, err)
		}
		s.conn = conn
	}

	return s.writeFrame("show", showFrameData{
		Descriptor: desc,
		Style:      style,
		FontPath:   ExpandPath(s.fontPath),
	})
}

func (s *rendererSurface) SetOpacity(opacity float64) error {
	if s.conn == nil {
		return fmt.Errorf("overlay surface not shown")
	}
	return s.writeFrame("opacity", opacityFrameData{Value: opacity})
}

func (s *rendererSurface) Release() error {
	if s.conn == nil {
		return nil
	}

	// Best effort: the renderer also hides on disconnect.
	err := s.writeFrame("hide", nil)

	closeErr := s.conn.Close()
	s.conn = nil

	if err != nil {
		return err
	}
	return closeErr
}

func (s *rendererSurface) writeFrame(frameType string, data any) error {
	frame := surfaceFrame{Type: frameType}

	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s frame: %w", frameType, err)
		}
		frame.Data = raw
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame envelope: %w", err)
	}

	if _, err := fmt.Fprintf(s.conn, "%s\n", strings.TrimSpace(string(payload))); err != nil {
		return fmt.Errorf("send %s frame: %w", frameType, err)
	}

	return nil
}
