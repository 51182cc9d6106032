package main

import "time"

// Overlay animation timing
const (
	// overlayFrameInterval is the cadence at which the overlay session is ticked.
	// 60 fps keeps fades smooth while leaving the process idle between frames.
	overlayFrameInterval = time.Second / 60

	// Fade transitions are short and fixed; only the hold time is configurable
	// (style.duration_ms). Total on-screen time before fade-out starts always
	// equals duration_ms regardless of how long the fade-in took.
	overlayFadeInDuration  = 150 * time.Millisecond
	overlayFadeOutDuration = 200 * time.Millisecond
)

// Device communication defaults
const (
	defaultTimeoutMS  = 3000 // device round-trip timeout (ms)
	defaultVolumeStep = 2    // volume change per keypress (percent points)

	// Sonos control listens on this TCP port on every player.
	sonosControlPort = 1400

	// SSDP discovery
	ssdpMulticastAddr  = "239.255.255.250:1900"
	ssdpSearchTarget   = "urn:schemas-upnp-org:device:ZonePlayer:1"
	ssdpSearchWindow   = 2 * time.Second
	ssdpMaxResponseLen = 4096
)

// Overlay style defaults (mirrors the documented config file defaults)
const (
	defaultBackgroundColor   = "#D6D6D7"
	defaultBackgroundOpacity = 0.5
	defaultFontColor         = "#000000"
	defaultCornerRadius      = 16
	defaultDurationMS        = 1500
)
