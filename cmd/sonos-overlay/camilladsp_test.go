package main

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeCamillaDSP serves the JSON-over-websocket control protocol with an
// in-memory volume/mute state.
type fakeCamillaDSP struct {
	volumeDB float64
	muted    bool
}

func (f *fakeCamillaDSP) serve(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var reply any
			switch {
			case string(msg) == `"GetVolume"`:
				reply = map[string]any{"GetVolume": map[string]any{"result": "Ok", "value": f.volumeDB}}
			case string(msg) == `"ToggleMute"`:
				f.muted = !f.muted
				reply = map[string]any{"ToggleMute": map[string]any{"result": "Ok", "value": f.muted}}
			case strings.Contains(string(msg), "SetVolume"):
				var cmd struct {
					SetVolume float64 `json:"SetVolume"`
				}
				if err := json.Unmarshal(msg, &cmd); err != nil {
					t.Errorf("bad SetVolume payload %s: %v", msg, err)
					return
				}
				f.volumeDB = cmd.SetVolume
				reply = map[string]any{"SetVolume": map[string]any{"result": "Ok"}}
			default:
				t.Errorf("unexpected command: %s", msg)
				return
			}

			payload, _ := json.Marshal(reply)
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestCamillaClient(t *testing.T, fake *fakeCamillaDSP, minDB, maxDB float64) *CamillaDSPClient {
	t.Helper()
	srv := fake.serve(t)

	cfg := CamillaDSPConfig{
		WsURL: "ws" + strings.TrimPrefix(srv.URL, "http"),
		MinDB: minDB,
		MaxDB: maxDB,
	}

	client, err := NewCamillaDSPClient(cfg, 2*time.Second, testLogger())
	if err != nil {
		t.Fatalf("NewCamillaDSPClient failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCamillaDSPScaleMapping(t *testing.T) {
	c := &CamillaDSPClient{minDB: -60, maxDB: 0}

	cases := []struct {
		db  float64
		pct int
	}{
		{-60, 0},
		{0, 100},
		{-30, 50},
		{-75, 0},  // below the window clamps
		{10, 100}, // above the window clamps
	}
	for _, tc := range cases {
		if got := c.dbToPercent(tc.db); got != tc.pct {
			t.Errorf("dbToPercent(%v) = %d, want %d", tc.db, got, tc.pct)
		}
	}

	if got := c.percentToDB(0); got != -60 {
		t.Errorf("percentToDB(0) = %v, want -60", got)
	}
	if got := c.percentToDB(100); got != 0 {
		t.Errorf("percentToDB(100) = %v, want 0", got)
	}
	if got := c.percentToDB(50); got != -30 {
		t.Errorf("percentToDB(50) = %v, want -30", got)
	}
}

func TestCamillaDSPVolumeUp(t *testing.T) {
	fake := &fakeCamillaDSP{volumeDB: -30} // 50% over [-60, 0]
	client := newTestCamillaClient(t, fake, -60, 0)

	state, err := client.Send(context.Background(), CommandVolumeUp, 2)
	if err != nil {
		t.Fatalf("volume_up failed: %v", err)
	}

	vs, ok := state.(VolumeState)
	if !ok {
		t.Fatalf("expected VolumeState, got %T", state)
	}
	if vs.Level != 52 {
		t.Errorf("expected level 52, got %d", vs.Level)
	}
	if want := -28.8; math.Abs(fake.volumeDB-want) > 1e-9 {
		t.Errorf("expected %v dB on the server, got %v", want, fake.volumeDB)
	}
}

func TestCamillaDSPMuteIsSingleRoundTrip(t *testing.T) {
	fake := &fakeCamillaDSP{}
	client := newTestCamillaClient(t, fake, -60, 0)

	state, err := client.Send(context.Background(), CommandMute, 0)
	if err != nil {
		t.Fatalf("mute failed: %v", err)
	}
	if ms := state.(MuteState); !ms.Active {
		t.Error("expected Mute(true) after first toggle")
	}

	state, err = client.Send(context.Background(), CommandMute, 0)
	if err != nil {
		t.Fatalf("second mute failed: %v", err)
	}
	if ms := state.(MuteState); ms.Active {
		t.Error("expected Mute(false) after second toggle")
	}
}

func TestCamillaDSPRejectsTransport(t *testing.T) {
	fake := &fakeCamillaDSP{}
	client := newTestCamillaClient(t, fake, -60, 0)

	for _, cmd := range []ControlCommand{CommandPlayPause, CommandNext, CommandPrev} {
		_, err := client.Send(context.Background(), cmd, 0)
		if !errors.Is(err, ErrUnsupportedCommand) {
			t.Errorf("%v: expected ErrUnsupportedCommand, got %v", cmd, err)
		}
	}
}

func TestCamillaDSPDialFailure(t *testing.T) {
	cfg := CamillaDSPConfig{WsURL: "ws://127.0.0.1:1", MinDB: -60, MaxDB: 0}

	_, err := NewCamillaDSPClient(cfg, 500*time.Millisecond, testLogger())
	if !errors.Is(err, ErrDeviceUnreachable) {
		t.Fatalf("expected ErrDeviceUnreachable, got %v", err)
	}
}
