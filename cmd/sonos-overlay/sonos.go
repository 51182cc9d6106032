package main

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// Sonos Device Client
// ============================================================================
// Sonos players are controlled via their native UPnP services over HTTP on
// port 1400: RenderingControl for volume/mute, AVTransport for transport.
// Each operation is one SOAP request/response; nothing is cached between
// invocations and nothing is retried.
// ============================================================================

type soapService struct {
	URN  string
	Path string
}

var (
	renderingControl = soapService{
		URN:  "urn:schemas-upnp-org:service:RenderingControl:1",
		Path: "/MediaRenderer/RenderingControl/Control",
	}
	avTransport = soapService{
		URN:  "urn:schemas-upnp-org:service:AVTransport:1",
		Path: "/MediaRenderer/AVTransport/Control",
	}
)

// SonosClient talks to one Sonos player. The endpoint is fixed at
// construction for the lifetime of the invocation.
type SonosClient struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewSonosClient creates a client for the player at host. The standard Sonos
// control port is implied unless host already carries one.
func NewSonosClient(host string, timeout time.Duration, logger *slog.Logger) *SonosClient {
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, strconv.Itoa(sonosControlPort))
	}
	return &SonosClient{
		baseURL: "http://" + host,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Send applies one control command and reports the resulting state.
//
// Volume commands read the current level first; the read-then-write is not
// atomic and a concurrent change from another controller is an accepted race.
func (c *SonosClient) Send(ctx context.Context, cmd ControlCommand, step int) (DeviceState, error) {
	switch cmd {
	case CommandVolumeUp:
		return c.adjustVolume(ctx, step)
	case CommandVolumeDown:
		return c.adjustVolume(ctx, -step)
	case CommandMute:
		return c.toggleMute(ctx)
	case CommandPlayPause:
		return c.togglePlayback(ctx)
	case CommandNext:
		if err := c.transportCall(ctx, "Next", ""); err != nil {
			return nil, err
		}
		return TransportState{Action: TransportSkipped}, nil
	case CommandPrev:
		if err := c.transportCall(ctx, "Previous", ""); err != nil {
			return nil, err
		}
		return TransportState{Action: TransportSkipped}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCommand, cmd)
	}
}

func (c *SonosClient) Close() error { return nil }

func (c *SonosClient) adjustVolume(ctx context.Context, delta int) (DeviceState, error) {
	current, err := c.getVolume(ctx)
	if err != nil {
		return nil, err
	}

	next := clampVolume(current + delta)
	if err := c.setVolume(ctx, next); err != nil {
		return nil, err
	}

	c.logger.Debug("volume adjusted", "from", current, "to", next, "delta", delta)
	return VolumeState{Level: next}, nil
}

func (c *SonosClient) toggleMute(ctx context.Context) (DeviceState, error) {
	muted, err := c.getMute(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.setMute(ctx, !muted); err != nil {
		return nil, err
	}

	c.logger.Debug("mute toggled", "muted", !muted)
	return MuteState{Active: !muted}, nil
}

// togglePlayback reports the transport outcome per the *new* state: pausing a
// playing speaker yields Transport(paused), resuming yields Transport(played).
func (c *SonosClient) togglePlayback(ctx context.Context) (DeviceState, error) {
	state, err := c.getTransportState(ctx)
	if err != nil {
		return nil, err
	}

	if state == "PLAYING" {
		if err := c.transportCall(ctx, "Pause", ""); err != nil {
			return nil, err
		}
		return TransportState{Action: TransportPaused}, nil
	}

	if err := c.transportCall(ctx, "Play", "<Speed>1</Speed>"); err != nil {
		return nil, err
	}
	return TransportState{Action: TransportPlayed}, nil
}

// --- RenderingControl operations ---

func (c *SonosClient) getVolume(ctx context.Context) (int, error) {
	body, err := c.soapCall(ctx, renderingControl, "GetVolume", "<Channel>Master</Channel>")
	if err != nil {
		return 0, err
	}

	var resp struct {
		Volume string `xml:"Body>GetVolumeResponse>CurrentVolume"`
	}
	if err := xml.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: parse GetVolume response: %v", ErrDeviceProtocol, err)
	}

	level, err := strconv.Atoi(strings.TrimSpace(resp.Volume))
	if err != nil || level < 0 || level > 100 {
		return 0, fmt.Errorf("%w: GetVolume returned %q", ErrDeviceProtocol, resp.Volume)
	}

	return level, nil
}

func (c *SonosClient) setVolume(ctx context.Context, level int) error {
	args := fmt.Sprintf("<Channel>Master</Channel><DesiredVolume>%d</DesiredVolume>", level)
	_, err := c.soapCall(ctx, renderingControl, "SetVolume", args)
	return err
}

func (c *SonosClient) getMute(ctx context.Context) (bool, error) {
	body, err := c.soapCall(ctx, renderingControl, "GetMute", "<Channel>Master</Channel>")
	if err != nil {
		return false, err
	}

	var resp struct {
		Mute string `xml:"Body>GetMuteResponse>CurrentMute"`
	}
	if err := xml.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("%w: parse GetMute response: %v", ErrDeviceProtocol, err)
	}

	switch strings.TrimSpace(resp.Mute) {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, fmt.Errorf("%w: GetMute returned %q", ErrDeviceProtocol, resp.Mute)
	}
}

func (c *SonosClient) setMute(ctx context.Context, mute bool) error {
	desired := "0"
	if mute {
		desired = "1"
	}
	args := fmt.Sprintf("<Channel>Master</Channel><DesiredMute>%s</DesiredMute>", desired)
	_, err := c.soapCall(ctx, renderingControl, "SetMute", args)
	return err
}

// --- AVTransport operations ---

func (c *SonosClient) getTransportState(ctx context.Context) (string, error) {
	body, err := c.soapCall(ctx, avTransport, "GetTransportInfo", "")
	if err != nil {
		return "", err
	}

	var resp struct {
		State string `xml:"Body>GetTransportInfoResponse>CurrentTransportState"`
	}
	if err := xml.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: parse GetTransportInfo response: %v", ErrDeviceProtocol, err)
	}

	state := strings.TrimSpace(resp.State)
	if state == "" {
		return "", fmt.Errorf("%w: GetTransportInfo returned no transport state", ErrDeviceProtocol)
	}

	return state, nil
}

func (c *SonosClient) transportCall(ctx context.Context, action, extraArgs string) error {
	_, err := c.soapCall(ctx, avTransport, action, extraArgs)
	return err
}

// --- SOAP plumbing ---

// soapCall performs one UPnP SOAP action. args is the action-specific
// argument XML; InstanceID 0 is always included.
func (c *SonosClient) soapCall(ctx context.Context, svc soapService, action, args string) ([]byte, error) {
	envelope := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>`+
		`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`+
		`<s:Body><u:%s xmlns:u="%s"><InstanceID>0</InstanceID>%s</u:%s></s:Body>`+
		`</s:Envelope>`, action, svc.URN, args, action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+svc.Path, strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrDeviceProtocol, err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", fmt.Sprintf("%q", svc.URN+"#"+action))

	c.logger.Debug("soap request", "action", action, "service", svc.Path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnreachable, action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read response: %v", ErrDeviceUnreachable, action, err)
	}

	if resp.StatusCode != http.StatusOK {
		if code := parseUPnPErrorCode(body); code != "" {
			return nil, fmt.Errorf("%w: %s: UPnP error %s", ErrDeviceProtocol, action, code)
		}
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrDeviceProtocol, action, resp.StatusCode)
	}

	return body, nil
}

// parseUPnPErrorCode extracts the errorCode from a SOAP fault, if present.
func parseUPnPErrorCode(body []byte) string {
	var fault struct {
		Code string `xml:"Body>Fault>detail>UPnPError>errorCode"`
	}
	if err := xml.Unmarshal(body, &fault); err != nil {
		return ""
	}
	return strings.TrimSpace(fault.Code)
}
