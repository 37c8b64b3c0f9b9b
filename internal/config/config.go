// ABOUTME: Appliance configuration types and defaults
// ABOUTME: Mirrors the device config.json shape (audio, amplifier, pins, network)
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full process-boundary configuration.
// It is consumed, never reinterpreted, by the core.
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	Amplifier AmplifierConfig `yaml:"amplifier"`
	Pins      PinConfig       `yaml:"pins"`
	Network   NetworkConfig   `yaml:"network"`
}

// ---- AUDIO ----

type AudioConfig struct {
	SampleRate    int `yaml:"sample_rate"`
	BitsPerSample int `yaml:"bits_per_sample"`
	Channels      int `yaml:"channels"`

	// BufferLength is the generic frame count used when the specific
	// DMA / playback counts are absent.
	BufferLength    int  `yaml:"buffer_length"`
	DMABufferFrames *int `yaml:"dma_buffer_frames"`
	PlaybackFrames  *int `yaml:"playback_frames"`
	AggregateCount  int  `yaml:"aggregate_count"`

	Debug bool `yaml:"debug"`

	Asset          string `yaml:"asset"`
	Output         string `yaml:"output"` // oto | wav | null
	CapturePath    string `yaml:"capture_path"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
}

// DMAFrames returns dma_buffer_frames, falling back to buffer_length.
func (a AudioConfig) DMAFrames() int {
	if a.DMABufferFrames != nil {
		return *a.DMABufferFrames
	}
	return a.BufferLength
}

// PlaybackFrameCount returns playback_frames, falling back to buffer_length.
func (a AudioConfig) PlaybackFrameCount() int {
	if a.PlaybackFrames != nil {
		return *a.PlaybackFrames
	}
	return a.BufferLength
}

func (a AudioConfig) PollInterval() time.Duration {
	return time.Duration(a.PollIntervalMs) * time.Millisecond
}

// ---- AMPLIFIER ----

// AmplifierConfig carries the gain-level to decibel table.
// It is descriptive data only; the gain pins are driven from the level bits.
type AmplifierConfig struct {
	GainDB []float64 `yaml:"gain_db"`
}

// ---- PINS ----

// PinConfig holds GPIO numbers. A negative value means "not wired".
type PinConfig struct {
	BCK      int `yaml:"bck"`
	LRCK     int `yaml:"lrck"`
	Data     int `yaml:"data"`
	Mute     int `yaml:"mute"`
	AmpSD    int `yaml:"amp_sd"`
	AmpGain0 int `yaml:"amp_gain0"`
	AmpGain1 int `yaml:"amp_gain1"`
	LED      int `yaml:"led"`
	LED1     int `yaml:"led1"`
	LED2     int `yaml:"led2"`
	LED3     int `yaml:"led3"`
	LED4     int `yaml:"led4"`
}

// StatusLEDs returns the four network-side LEDs in order 1..4.
func (p PinConfig) StatusLEDs() [4]int {
	return [4]int{p.LED1, p.LED2, p.LED3, p.LED4}
}

// ---- NETWORK ----

type NetworkConfig struct {
	SSID      string `yaml:"ssid"`
	Password  string `yaml:"password"`
	Interface string `yaml:"interface"`

	ListenHost string `yaml:"listen_host"`
	ServerPort int    `yaml:"server_port"`

	MaxRetries          int     `yaml:"max_retries"`
	InitialRetryDelayMs int     `yaml:"initial_retry_delay_ms"`
	MaxRetryDelayMs     int     `yaml:"max_retry_delay_ms"`
	BackoffFactor       float64 `yaml:"backoff_factor"`
	PollCount           int     `yaml:"poll_count"`
	PollIntervalMs      int     `yaml:"poll_interval_ms"`

	AcceptTimeoutMs int `yaml:"accept_timeout_ms"`
	ClientTimeoutMs int `yaml:"client_timeout_ms"`
	HeartbeatLED    int `yaml:"heartbeat_led"`

	MDNS     bool   `yaml:"mdns"`
	Hostname string `yaml:"hostname"`
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (n NetworkConfig) InitialRetryDelay() time.Duration { return ms(n.InitialRetryDelayMs) }
func (n NetworkConfig) MaxRetryDelay() time.Duration     { return ms(n.MaxRetryDelayMs) }
func (n NetworkConfig) PollInterval() time.Duration      { return ms(n.PollIntervalMs) }
func (n NetworkConfig) AcceptTimeout() time.Duration     { return ms(n.AcceptTimeoutMs) }
func (n NetworkConfig) ClientTimeout() time.Duration     { return ms(n.ClientTimeoutMs) }

// ListenAddr is host:port for the control surface.
func (n NetworkConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", n.ListenHost, n.ServerPort)
}

// Default returns the device defaults. Bus and amplifier pins have no
// sensible default and are left unwired so Validate rejects them.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:     44100,
			BitsPerSample:  16,
			Channels:       2,
			BufferLength:   1024,
			AggregateCount: 1,
			Debug:          true,
			Asset:          "my_sound.raw",
			Output:         "oto",
			CapturePath:    "capture.wav",
			PollIntervalMs: 20,
		},
		Amplifier: AmplifierConfig{
			GainDB: []float64{20, 26, 32, 36},
		},
		Pins: PinConfig{
			BCK:      -1,
			LRCK:     -1,
			Data:     -1,
			Mute:     -1,
			AmpSD:    -1,
			AmpGain0: -1,
			AmpGain1: -1,
			LED:      -1,
			LED1:     22,
			LED2:     20,
			LED3:     18,
			LED4:     16,
		},
		Network: NetworkConfig{
			ServerPort:          80,
			MaxRetries:          10,
			InitialRetryDelayMs: 500,
			MaxRetryDelayMs:     30000,
			BackoffFactor:       2,
			PollCount:           10,
			PollIntervalMs:      800,
			AcceptTimeoutMs:     1000,
			ClientTimeoutMs:     3000,
			HeartbeatLED:        3,
			MDNS:                true,
			Hostname:            "pcmbox",
		},
	}
}

// Load reads a YAML (or JSON) file on top of Default.
// It does not validate; call Validate afterwards.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes raw YAML/JSON bytes on top of Default.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
