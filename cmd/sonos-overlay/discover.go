package main

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"
)

// ============================================================================
// Speaker discovery
// ============================================================================
// When no speaker_ip is configured, players are discovered via SSDP: an
// M-SEARCH for the Sonos ZonePlayer device type is multicast, each responder's
// LOCATION is fetched, and the device description's roomName is matched
// against the configured speaker name (case-insensitive). On a miss the
// available rooms are reported so the user can fix their config.
// ============================================================================

// discoveredSpeaker is one player found on the local network.
type discoveredSpeaker struct {
	Host     string
	RoomName string
}

// DiscoverSpeaker resolves a room name to a player address.
// Returns ErrDeviceUnreachable when no players answer at all, and
// ErrConfiguration (listing the available rooms) when players answer but none
// matches.
func DiscoverSpeaker(ctx context.Context, name string, logger *slog.Logger) (string, error) {
	speakers, err := discoverAll(ctx, logger)
	if err != nil {
		return "", err
	}
	if len(speakers) == 0 {
		return "", fmt.Errorf("%w: no Sonos speakers found on network", ErrDeviceUnreachable)
	}

	for _, sp := range speakers {
		if strings.EqualFold(sp.RoomName, name) {
			logger.Debug("speaker resolved", "name", sp.RoomName, "host", sp.Host)
			return sp.Host, nil
		}
	}

	rooms := make([]string, 0, len(speakers))
	for _, sp := range speakers {
		rooms = append(rooms, sp.RoomName)
	}
	sort.Strings(rooms)

	return "", fmt.Errorf("%w: speaker %q not found (available: %s)",
		ErrConfiguration, name, strings.Join(rooms, ", "))
}

// discoverAll multicasts one M-SEARCH and collects responders for the search
// window, deduplicated by host.
func discoverAll(ctx context.Context, logger *slog.Logger) ([]discoveredSpeaker, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("%w: open discovery socket: %v", ErrDeviceUnreachable, err)
	}
	defer conn.Close()

	dst, err := net.ResolveUDPAddr("udp4", ssdpMulticastAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve multicast address: %v", ErrDeviceUnreachable, err)
	}

	search := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: " + ssdpMulticastAddr + "\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 1\r\n" +
		"ST: " + ssdpSearchTarget + "\r\n" +
		"\r\n"

	if _, err := conn.WriteTo([]byte(search), dst); err != nil {
		return nil, fmt.Errorf("%w: send discovery search: %v", ErrDeviceUnreachable, err)
	}

	deadline := time.Now().Add(ssdpSearchWindow)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetReadDeadline(deadline)

	seen := make(map[string]bool)
	var speakers []discoveredSpeaker

	buf := make([]byte, ssdpMaxResponseLen)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			// The read deadline bounds the collection window; expiry is the
			// normal way out of this loop.
			break
		}

		location, ok := parseSSDPLocation(buf[:n])
		if !ok {
			continue
		}

		host, err := hostFromLocation(location)
		if err != nil || seen[host] {
			continue
		}
		seen[host] = true

		room, err := fetchRoomName(ctx, location)
		if err != nil {
			logger.Debug("skipping speaker without readable description", "location", location, "error", err)
			continue
		}

		speakers = append(speakers, discoveredSpeaker{Host: host, RoomName: room})
	}

	logger.Debug("discovery finished", "speakers", len(speakers))
	return speakers, nil
}

// parseSSDPLocation extracts the LOCATION header from an SSDP response.
func parseSSDPLocation(raw []byte) (string, bool) {
	reader := textproto.NewReader(bufio.NewReader(strings.NewReader(string(raw))))

	status, err := reader.ReadLine()
	if err != nil || !strings.Contains(status, "200") {
		return "", false
	}

	headers, err := reader.ReadMIMEHeader()
	if err != nil && err != io.EOF {
		return "", false
	}

	location := headers.Get("Location")
	if location == "" {
		return "", false
	}
	return location, true
}

// hostFromLocation extracts the bare host (no port) from a description URL.
func hostFromLocation(location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("no host in location %q", location)
	}
	return host, nil
}

// sonosDeviceDescription is the subset of the player's device description we
// care about.
type sonosDeviceDescription struct {
	XMLName xml.Name `xml:"root"`
	Device  struct {
		FriendlyName string `xml:"friendlyName"`
		RoomName     string `xml:"roomName"`
	} `xml:"device"`
}

// fetchRoomName retrieves the device description and returns its room name.
func fetchRoomName(ctx context.Context, location string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, location)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	room, err := parseRoomName(body)
	if err != nil {
		return "", err
	}
	return room, nil
}

// parseRoomName extracts the room name from a device description document.
// Falls back to friendlyName for non-Sonos renderers that answered anyway.
func parseRoomName(body []byte) (string, error) {
	var desc sonosDeviceDescription
	if err := xml.Unmarshal(body, &desc); err != nil {
		return "", fmt.Errorf("parse device description: %w", err)
	}

	if room := strings.TrimSpace(desc.Device.RoomName); room != "" {
		return room, nil
	}
	if name := strings.TrimSpace(desc.Device.FriendlyName); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("device description has no room name")
}
