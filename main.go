// ABOUTME: Entry point for the pcmbox audio appliance
// ABOUTME: Parses CLI flags, wires the audio and network contexts and runs them until shutdown
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/Resonate-Protocol/pcmbox/internal/app"
	"github.com/Resonate-Protocol/pcmbox/internal/audio"
	"github.com/Resonate-Protocol/pcmbox/internal/config"
	"github.com/Resonate-Protocol/pcmbox/internal/discovery"
	"github.com/Resonate-Protocol/pcmbox/internal/hardware"
	"github.com/Resonate-Protocol/pcmbox/internal/mailbox"
	"github.com/Resonate-Protocol/pcmbox/internal/network"
	"github.com/Resonate-Protocol/pcmbox/internal/player"
	"github.com/Resonate-Protocol/pcmbox/internal/ui"
	"github.com/Resonate-Protocol/pcmbox/internal/version"
)

var (
	configPath  = flag.String("config", "config.json", "Configuration file (JSON or YAML)")
	assetPath   = flag.String("asset", "", "Raw PCM asset (overrides audio.asset)")
	output      = flag.String("output", "", "Bus backend: oto, wav or null (overrides audio.output)")
	capturePath = flag.String("capture", "", "WAV capture path for the wav backend")
	port        = flag.Int("port", 0, "Control port (overrides network.server_port)")
	logFile     = flag.String("log-file", "pcmbox.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// startupBlinks is the boot indication on the audio-side LED
const startupBlinks = 5

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	useTUI := !*noTUI && (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = f.Close() }()

	var logOut io.Writer = f
	if !useTUI {
		logOut = io.MultiWriter(os.Stdout, f)
	}
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level})))

	cfg, err := loadConfig()
	if err != nil {
		fatal("configuration error", err)
	}

	if err := run(cfg, useTUI); err != nil && !errors.Is(err, context.Canceled) {
		fatal("appliance stopped", err)
	}
	slog.Info("appliance stopped")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

// loadConfig reads the file, applies flag overrides and validates
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["asset"] {
		cfg.Audio.Asset = *assetPath
	}
	if set["output"] {
		cfg.Audio.Output = *output
	}
	if set["capture"] {
		cfg.Audio.CapturePath = *capturePath
	}
	if set["port"] {
		cfg.Network.ServerPort = *port
	}
	if *debug {
		cfg.Audio.Debug = true
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cfg *config.Config, useTUI bool) error {
	deviceID := uuid.NewString()
	geometry := audio.FrameGeometry{
		SampleRate:    cfg.Audio.SampleRate,
		BitsPerSample: cfg.Audio.BitsPerSample,
		Channels:      cfg.Audio.Channels,
	}

	slog.Info("starting", "product", version.String(), "device_id", deviceID, "format", geometry.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Audio context hardware
	p := cfg.Pins
	bus, err := hardware.NewBus(cfg.Audio.Output, cfg.Audio.CapturePath)
	if err != nil {
		return err
	}
	out := player.NewOutput(player.Config{
		Bus: hardware.BusConfig{
			Geometry:  geometry,
			Pins:      hardware.BusPins{BitClock: p.BCK, WordSelect: p.LRCK, Data: p.Data},
			DMAFrames: cfg.Audio.DMAFrames(),
		},
		GainDB: cfg.Amplifier.GainDB,
	}, player.Pins{
		Mute:        hardware.NewMemoryPin(p.Mute, "mute"),
		AmpShutdown: hardware.NewMemoryPin(p.AmpSD, "amp_sd"),
		Gain0:       hardware.NewMemoryPin(p.AmpGain0, "amp_gain0"),
		Gain1:       hardware.NewMemoryPin(p.AmpGain1, "amp_gain1"),
		LED:         hardware.NewMemoryPin(p.LED, "led"),
	}, bus)
	defer out.Close()

	if err := out.BlinkLED(ctx, startupBlinks); err != nil {
		return err
	}
	if err := out.InitBus(); err != nil {
		return err
	}

	src, err := audio.OpenSource(cfg.Audio.Asset)
	if err != nil {
		return err
	}
	defer src.Close()

	stream, err := audio.NewStreamer(src, geometry)
	if err != nil {
		return err
	}
	defer stream.Close()

	slog.Info("asset loaded", "path", cfg.Audio.Asset, "bytes", src.Len(),
		"duration", geometry.Duration(int(src.Len())),
		"playback_frames", cfg.Audio.PlaybackFrameCount())

	// Network context hardware
	var leds network.LEDBank
	for i, num := range p.StatusLEDs() {
		leds[i] = hardware.NewMemoryPin(num, fmt.Sprintf("led%d", i+1))
	}

	n := cfg.Network
	link := network.NewHostLink(n.Interface)
	if n.SSID == "" {
		slog.Warn("no wifi ssid configured, association will keep failing")
	}
	assoc := network.NewAssociator(link, n.SSID, n.Password, network.RetryPolicy{
		MaxRetries:   n.MaxRetries,
		InitialDelay: n.InitialRetryDelay(),
		MaxDelay:     n.MaxRetryDelay(),
		Factor:       n.BackoffFactor,
		PollCount:    n.PollCount,
		PollInterval: n.PollInterval(),
	})

	var advertiser network.Advertiser
	if n.MDNS {
		advertiser = discovery.NewAdvertiser(discovery.Config{ServiceName: n.Hostname, DeviceID: deviceID})
	}

	mb := mailbox.New()
	plane := network.NewControlPlane(network.Config{
		ListenAddr:    n.ListenAddr(),
		AcceptTimeout: n.AcceptTimeout(),
		ClientTimeout: n.ClientTimeout(),
		HeartbeatLED:  n.HeartbeatLED,
	}, link, assoc, mb, leds, advertiser)

	appliance := app.New(app.Config{
		Frames:         cfg.Audio.PlaybackFrameCount(),
		AggregateCount: cfg.Audio.AggregateCount,
		Debug:          cfg.Audio.Debug,
		PollInterval:   cfg.Audio.PollInterval(),
	}, mb, out, stream, plane)

	// TUI setup
	var tuiProg *tea.Program
	tuiDone := make(chan struct{})
	if useTUI {
		tuiProg = ui.New(ui.Info{Product: version.String(), DeviceID: deviceID, Format: geometry.String()})
		wireTUI(tuiProg, plane, out, appliance, cfg.Amplifier.GainDB)

		go func() {
			defer close(tuiDone)
			if _, err := tuiProg.Run(); err != nil {
				slog.Error("TUI error", "error", err)
			}
			// Quitting the TUI stops the appliance
			stop()
		}()
	} else {
		close(tuiDone)
	}

	err = appliance.Run(ctx)

	if tuiProg != nil {
		tuiProg.Quit()
		select {
		case <-tuiDone:
		case <-time.After(time.Second):
		}
	}

	if errors.Is(err, context.Canceled) {
		slog.Info("shutdown signal received")
		return nil
	}
	return err
}

// wireTUI forwards state changes to the status screen
func wireTUI(prog *tea.Program, plane *network.ControlPlane, out *player.Output, appliance *app.Appliance, gainDB []float64) {
	plane.OnStatus = func(st network.Status) {
		prog.Send(ui.LinkMsg{
			Phase:         st.State.Phase.String(),
			Attempt:       st.State.Attempt,
			Delay:         st.State.Delay,
			IP:            st.State.IP,
			ServerRunning: st.ServerRunning,
			Addr:          st.Addr,
		})
	}
	out.OnStats = func(s player.Stats) {
		prog.Send(ui.DiagMsg{
			Writes:      s.Writes,
			ShortWrites: s.ShortWrites,
			AvgDT:       s.AvgDT,
			LastDT:      s.LastDT,
			LastGap:     s.LastGap,
			Underruns:   s.Underruns,
			Headroom:    s.Headroom,
		})
	}
	appliance.OnPlayback = func(playing bool, req mailbox.PlayRequest) {
		prog.Send(ui.PlaybackMsg{Playing: playing, Duration: req.Duration, Volume: req.Volume})
	}
	appliance.OnGain = func(level int) {
		msg := ui.GainMsg{Level: level}
		if level < len(gainDB) {
			msg.DB = gainDB[level]
		}
		prog.Send(msg)
	}
}
