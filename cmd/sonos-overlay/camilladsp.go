package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// CamillaDSP Device Client
// ============================================================================
// Alternate backend for setups where the "speaker" is a CamillaDSP pipeline
// (CamillaDSP must be started with -pPORT). Its control protocol is JSON over
// websocket. CamillaDSP volume is in dB; the 0-100 scale of the overlay is
// mapped linearly onto the configured [min_db, max_db] window.
//
// CamillaDSP has no transport surface, so playpause/next/prev are rejected.
// Unlike volume commands on the sonos backend, mute here really is a single
// round trip: the protocol has a native ToggleMute that returns the new state.
// ============================================================================

// CamillaDSPClient manages websocket communication with CamillaDSP.
type CamillaDSPClient struct {
	mu          sync.Mutex
	conn        *websocket.Conn
	logger      *slog.Logger
	readTimeout time.Duration
	minDB       float64
	maxDB       float64
}

// NewCamillaDSPClient dials the websocket endpoint. One attempt only; a
// failed dial surfaces immediately as DeviceUnreachable.
func NewCamillaDSPClient(cfg CamillaDSPConfig, timeout time.Duration, logger *slog.Logger) (*CamillaDSPClient, error) {
	u, err := url.Parse(cfg.WsURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid websocket URL: %v", ErrConfiguration, err)
	}

	d := websocket.Dialer{
		HandshakeTimeout: timeout,
	}

	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrDeviceUnreachable, cfg.WsURL, err)
	}

	logger.Debug("connected to CamillaDSP", "url", cfg.WsURL)

	return &CamillaDSPClient{
		conn:        conn,
		logger:      logger,
		readTimeout: timeout,
		minDB:       cfg.MinDB,
		maxDB:       cfg.MaxDB,
	}, nil
}

// Send applies one control command and reports the resulting state.
func (c *CamillaDSPClient) Send(ctx context.Context, cmd ControlCommand, step int) (DeviceState, error) {
	switch cmd {
	case CommandVolumeUp:
		return c.adjustVolume(ctx, step)
	case CommandVolumeDown:
		return c.adjustVolume(ctx, -step)
	case CommandMute:
		muted, err := c.toggleMute(ctx)
		if err != nil {
			return nil, err
		}
		return MuteState{Active: muted}, nil
	case CommandPlayPause, CommandNext, CommandPrev:
		return nil, fmt.Errorf("%w: camilladsp has no transport control (%v)", ErrUnsupportedCommand, cmd)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCommand, cmd)
	}
}

// Close closes the websocket connection.
func (c *CamillaDSPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}

func (c *CamillaDSPClient) adjustVolume(ctx context.Context, delta int) (DeviceState, error) {
	db, err := c.getVolumeDB(ctx)
	if err != nil {
		return nil, err
	}

	current := c.dbToPercent(db)
	next := clampVolume(current + delta)

	if err := c.setVolumeDB(ctx, c.percentToDB(next)); err != nil {
		return nil, err
	}

	c.logger.Debug("volume adjusted", "from", current, "to", next, "target_db", c.percentToDB(next))
	return VolumeState{Level: next}, nil
}

// dbToPercent maps a dB value onto the 0-100 scale over [minDB, maxDB].
func (c *CamillaDSPClient) dbToPercent(db float64) int {
	span := c.maxDB - c.minDB
	pct := int(math.Round((db - c.minDB) / span * 100))
	return clampVolume(pct)
}

// percentToDB is the inverse mapping.
func (c *CamillaDSPClient) percentToDB(pct int) float64 {
	span := c.maxDB - c.minDB
	return c.minDB + span*float64(pct)/100
}

func (c *CamillaDSPClient) getVolumeDB(ctx context.Context) (float64, error) {
	response, err := c.sendAndRead(ctx, "GetVolume")
	if err != nil {
		return 0, fmt.Errorf("%w: get volume: %v", ErrDeviceUnreachable, err)
	}

	var volResp struct {
		GetVolume struct {
			Result string  `json:"result"`
			Value  float64 `json:"value"`
		} `json:"GetVolume"`
	}
	if err := json.Unmarshal(response, &volResp); err != nil {
		return 0, fmt.Errorf("%w: parse GetVolume response: %v", ErrDeviceProtocol, err)
	}
	if volResp.GetVolume.Result != "Ok" {
		return 0, fmt.Errorf("%w: GetVolume result %q", ErrDeviceProtocol, volResp.GetVolume.Result)
	}

	return volResp.GetVolume.Value, nil
}

func (c *CamillaDSPClient) setVolumeDB(ctx context.Context, targetDB float64) error {
	response, err := c.sendAndRead(ctx, map[string]any{"SetVolume": targetDB})
	if err != nil {
		return fmt.Errorf("%w: set volume: %v", ErrDeviceUnreachable, err)
	}

	var setResp struct {
		SetVolume struct {
			Result string `json:"result"`
		} `json:"SetVolume"`
	}
	if err := json.Unmarshal(response, &setResp); err != nil {
		return fmt.Errorf("%w: parse SetVolume response: %v", ErrDeviceProtocol, err)
	}
	if setResp.SetVolume.Result != "Ok" {
		return fmt.Errorf("%w: SetVolume result %q", ErrDeviceProtocol, setResp.SetVolume.Result)
	}

	return nil
}

// toggleMute sends ToggleMute and returns the new mute state.
func (c *CamillaDSPClient) toggleMute(ctx context.Context) (bool, error) {
	response, err := c.sendAndRead(ctx, "ToggleMute")
	if err != nil {
		return false, fmt.Errorf("%w: toggle mute: %v", ErrDeviceUnreachable, err)
	}

	var toggleResp struct {
		ToggleMute struct {
			Result string `json:"result"`
			Value  bool   `json:"value"`
		} `json:"ToggleMute"`
	}
	if err := json.Unmarshal(response, &toggleResp); err != nil {
		return false, fmt.Errorf("%w: parse ToggleMute response: %v", ErrDeviceProtocol, err)
	}
	if toggleResp.ToggleMute.Result != "Ok" {
		return false, fmt.Errorf("%w: ToggleMute result %q", ErrDeviceProtocol, toggleResp.ToggleMute.Result)
	}

	return toggleResp.ToggleMute.Value, nil
}

// sendAndRead sends a command and waits for the single response.
func (c *CamillaDSPClient) sendAndRead(ctx context.Context, v any) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, fmt.Errorf("no websocket connection")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.conn = nil // Mark connection as broken
		return nil, err
	}

	deadline := time.Now().Add(c.readTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	c.conn.SetReadDeadline(deadline)
	defer c.conn.SetReadDeadline(time.Time{})

	_, message, err := c.conn.ReadMessage()
	if err != nil {
		c.conn = nil // Mark connection as broken
		return nil, err
	}

	return message, nil
}
