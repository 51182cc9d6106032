package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("sonos-overlay v%s\n", version)
	fmt.Println("Keyboard-driven Sonos control with an on-screen overlay")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  sonos-overlay [OPTIONS] [speaker] <command>")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Sends one control command to a Sonos speaker and shows a transient")
	fmt.Println("  on-screen overlay with the resulting state. Designed to be invoked")
	fmt.Println("  from a key-remapping utility (e.g. Karabiner-Elements), one process")
	fmt.Println("  per keypress.")
	fmt.Println()
	fmt.Println("COMMANDS:")
	fmt.Println("  volume_up, volume_down, mute, playpause, next, prev")
	fmt.Println()
	fmt.Println("ARGUMENTS:")
	fmt.Println("  speaker")
	fmt.Println("        Optional speaker identifier: an IP address or a room name.")
	fmt.Println("        Omitted when resolvable from configuration.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Config file path (default \"~/.sonos-overlay.yml\")")
	fmt.Println()
	fmt.Println("  -speaker-ip string")
	fmt.Println("        Speaker IP address (overrides config)")
	fmt.Println()
	fmt.Println("  -backend string")
	fmt.Println("        Device backend: sonos|camilladsp (default \"sonos\")")
	fmt.Println()
	fmt.Println("  -volume-step int")
	fmt.Printf("        Volume change per keypress in percent points (default %d)\n", defaultVolumeStep)
	fmt.Println()
	fmt.Println("  -timeout-ms int")
	fmt.Printf("        Device round-trip timeout in ms (default %d)\n", defaultTimeoutMS)
	fmt.Println()
	fmt.Println("  -duration-ms int")
	fmt.Printf("        Overlay on-screen time before fade-out in ms (default %d)\n", defaultDurationMS)
	fmt.Println()
	fmt.Println("  -socket-path string")
	fmt.Println("        Overlay renderer Unix socket path (default \"/tmp/sonos-overlay.sock\")")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Volume up on the configured speaker")
	fmt.Println("  sonos-overlay volume_up")
	fmt.Println()
	fmt.Println("  # Toggle playback on a specific speaker by room name")
	fmt.Println("  sonos-overlay \"Living Room\" playpause")
	fmt.Println()
	fmt.Println("  # Address a speaker directly")
	fmt.Println("  sonos-overlay 192.168.1.50 mute")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - The overlay is shown only after the speaker confirmed the command;")
	fmt.Println("    on any failure the process exits non-zero without an overlay.")
	fmt.Println("  - The overlay renderer must be listening on the configured socket.")
	fmt.Println()
}

func main() {
	// Check for version/help flags early
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath  = flag.String("config", "", "Config file path (default ~/.sonos-overlay.yml)")
		speakerIP   = flag.String("speaker-ip", "", "Speaker IP address (overrides config)")
		backend     = flag.String("backend", "", "Device backend: sonos|camilladsp")
		volumeStep  = flag.Int("volume-step", defaultVolumeStep, "Volume change per keypress in percent points")
		timeoutMS   = flag.Int("timeout-ms", defaultTimeoutMS, "Device round-trip timeout in ms")
		durationMS  = flag.Int("duration-ms", defaultDurationMS, "Overlay on-screen time before fade-out in ms")
		socketPath  = flag.String("socket-path", "", "Overlay renderer Unix socket path")
		logLevelStr = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion = flag.Bool("version", false, "Print version and exit")
		showHelp    = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Positional arguments: [speaker] <command>
	args := flag.Args()
	var speakerArg, commandArg string
	switch len(args) {
	case 1:
		commandArg = args[0]
	case 2:
		speakerArg = args[0]
		commandArg = args[1]
	default:
		fmt.Fprintln(os.Stderr, "error: expected [speaker] <command>")
		fmt.Fprintln(os.Stderr, "commands:", validCommandList())
		os.Exit(1)
	}

	command, err := ParseControlCommand(commandArg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// Load config: defaults, then file, then flag overrides.
	path := *configPath
	required := path != ""
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg, err := LoadConfigFile(path, required)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	var overrides FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "speaker-ip":
			overrides.SpeakerIP = speakerIP
		case "backend":
			overrides.Backend = backend
		case "volume-step":
			overrides.VolumeStep = volumeStep
		case "timeout-ms":
			overrides.TimeoutMS = timeoutMS
		case "duration-ms":
			overrides.DurationMS = durationMS
		case "socket-path":
			overrides.SocketPath = socketPath
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	overrides.Apply(&cfg)

	// A positional speaker identifier beats both config and flags: it is the
	// most deliberate way to name a target.
	if speakerArg != "" {
		if net.ParseIP(speakerArg) != nil {
			cfg.SpeakerIP = speakerArg
		} else {
			cfg.SpeakerIP = ""
			cfg.SpeakerName = speakerArg
		}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	if err := run(cfg, command, logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// run executes the invocation timeline: resolve -> send -> overlay.
func run(cfg Config, command ControlCommand, logger *slog.Logger) error {
	plan := ResolveCommand(command, cfg)
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond

	// Releasing the overlay surface on SIGINT/SIGTERM is the one cleanup
	// this process owes the screen.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := buildDeviceClient(ctx, cfg, timeout, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	state, err := client.Send(sendCtx, plan.Command, plan.Step)
	if err != nil {
		return err
	}

	logger.Debug("device state observed", "state", state.String())

	desc := plan.Overlay.Render(state)
	surface := newRendererSurface(cfg.SocketPath, cfg.FontPath)

	if err := runOverlaySession(ctx, desc, cfg.Style, surface, overlayFrameInterval, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			// Interrupted: surface already released by the runner.
			return fmt.Errorf("interrupted")
		}
		return err
	}

	return nil
}

// buildDeviceClient constructs the backend-specific client, resolving the
// speaker address first when the sonos backend has only a room name.
func buildDeviceClient(ctx context.Context, cfg Config, timeout time.Duration, logger *slog.Logger) (DeviceClient, error) {
	switch cfg.Backend {
	case "camilladsp":
		return NewCamillaDSPClient(cfg.CamillaDSP, timeout, logger)

	default: // "sonos" (Validate has already constrained the value)
		host := cfg.SpeakerIP
		if host == "" {
			resolved, err := DiscoverSpeaker(ctx, cfg.SpeakerName, logger)
			if err != nil {
				return nil, err
			}
			host = resolved
		}
		return NewSonosClient(host, timeout, logger), nil
	}
}
