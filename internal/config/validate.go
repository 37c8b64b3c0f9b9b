// ABOUTME: Declarative configuration validation
// ABOUTME: Rejects missing pins, bad audio geometry and nonsensical retry settings
package config

import (
	"fmt"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	// ------------------------------------------------------------
	// AUDIO GEOMETRY
	// ------------------------------------------------------------

	a := cfg.Audio
	if a.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be > 0 (got %d)", a.SampleRate)
	}
	switch a.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("audio.bits_per_sample must be 8, 16, 24 or 32 (got %d)", a.BitsPerSample)
	}
	if a.Channels != 1 && a.Channels != 2 {
		return fmt.Errorf("audio.channels must be 1 or 2 (got %d)", a.Channels)
	}
	if a.DMAFrames() <= 0 {
		return fmt.Errorf("audio.dma_buffer_frames (or buffer_length) must be > 0")
	}
	if a.PlaybackFrameCount() <= 0 {
		return fmt.Errorf("audio.playback_frames (or buffer_length) must be > 0")
	}
	if a.AggregateCount <= 0 {
		return fmt.Errorf("audio.aggregate_count must be > 0 (got %d)", a.AggregateCount)
	}
	if a.Asset == "" {
		return fmt.Errorf("audio.asset must name the raw PCM file")
	}
	switch a.Output {
	case "oto", "null":
	case "wav":
		if a.CapturePath == "" {
			return fmt.Errorf("audio.capture_path is required for the wav output")
		}
	default:
		return fmt.Errorf("audio.output must be oto, wav or null (got %q)", a.Output)
	}
	if a.PollIntervalMs <= 0 {
		return fmt.Errorf("audio.poll_interval_ms must be > 0")
	}

	// ------------------------------------------------------------
	// AMPLIFIER
	// ------------------------------------------------------------

	if len(cfg.Amplifier.GainDB) != 4 {
		return fmt.Errorf("amplifier.gain_db must have exactly 4 entries (got %d)", len(cfg.Amplifier.GainDB))
	}

	// ------------------------------------------------------------
	// PINS (required, distinct)
	// ------------------------------------------------------------

	p := cfg.Pins
	required := []struct {
		name string
		pin  int
	}{
		{"bck", p.BCK},
		{"lrck", p.LRCK},
		{"data", p.Data},
		{"mute", p.Mute},
		{"amp_sd", p.AmpSD},
		{"amp_gain0", p.AmpGain0},
		{"amp_gain1", p.AmpGain1},
		{"led", p.LED},
		{"led1", p.LED1},
		{"led2", p.LED2},
		{"led3", p.LED3},
		{"led4", p.LED4},
	}

	owner := make(map[int]string)
	for _, r := range required {
		if r.pin < 0 {
			return fmt.Errorf("pins.%s is not set", r.name)
		}
		if prev, exists := owner[r.pin]; exists {
			return fmt.Errorf("pin collision: GPIO %d used by %s and %s", r.pin, prev, r.name)
		}
		owner[r.pin] = r.name
	}

	// ------------------------------------------------------------
	// NETWORK
	// ------------------------------------------------------------

	n := cfg.Network
	if n.ServerPort < 0 || n.ServerPort > 65535 {
		return fmt.Errorf("network.server_port out of range (got %d)", n.ServerPort)
	}
	if n.MaxRetries <= 0 {
		return fmt.Errorf("network.max_retries must be > 0")
	}
	if n.InitialRetryDelayMs <= 0 {
		return fmt.Errorf("network.initial_retry_delay_ms must be > 0")
	}
	if n.MaxRetryDelayMs < n.InitialRetryDelayMs {
		return fmt.Errorf(
			"network.max_retry_delay_ms (%d) must be >= initial_retry_delay_ms (%d)",
			n.MaxRetryDelayMs,
			n.InitialRetryDelayMs,
		)
	}
	if n.BackoffFactor < 1 {
		return fmt.Errorf("network.backoff_factor must be >= 1 (got %g)", n.BackoffFactor)
	}
	if n.PollCount <= 0 || n.PollIntervalMs <= 0 {
		return fmt.Errorf("network.poll_count and poll_interval_ms must be > 0")
	}
	if n.AcceptTimeoutMs <= 0 || n.ClientTimeoutMs <= 0 {
		return fmt.Errorf("network.accept_timeout_ms and client_timeout_ms must be > 0")
	}
	if n.HeartbeatLED < 0 || n.HeartbeatLED > 4 {
		return fmt.Errorf("network.heartbeat_led must be 0 (off) or 1-4 (got %d)", n.HeartbeatLED)
	}

	return nil
}
