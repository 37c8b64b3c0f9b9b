// ABOUTME: Audio output driver owning the DAC/amplifier GPIO lines and the serial audio bus
// ABOUTME: Streams triple-buffered PCM through Q15 volume scaling into the bus
package player

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"

	"golang.org/x/time/rate"

	"github.com/Resonate-Protocol/pcmbox/internal/audio"
	"github.com/Resonate-Protocol/pcmbox/internal/hardware"
)

const (
	// prefillWrites is the number of buffers pushed before the timed loop
	prefillWrites = 4

	// avgEvery is the write interval of the rolling-average log line
	avgEvery = 100

	// shortWriteBackoff is the pause after the bus accepted less than a full chunk
	shortWriteBackoff = 2 * time.Millisecond

	// blinkPeriod is the on (and off) time of a status blink
	blinkPeriod = 200 * time.Millisecond

	// DefaultHeapHeadroom triggers a collection when the heap gets this
	// close to its goal during playback.
	DefaultHeapHeadroom = 256 << 10
)

// Stream hands out consecutive PCM buffers. *audio.Streamer satisfies it.
type Stream interface {
	Next(frames int) ([]byte, error)
}

// Pins are the GPIO lines owned by the audio context
type Pins struct {
	Mute        hardware.Pin
	AmpShutdown hardware.Pin
	Gain0       hardware.Pin
	Gain1       hardware.Pin
	LED         hardware.Pin
}

// Config sizes the bus and describes the amplifier
type Config struct {
	Bus hardware.BusConfig

	// GainDB maps levels 0-3 to decibels for log output
	GainDB []float64

	// HeapHeadroom overrides DefaultHeapHeadroom when > 0
	HeapHeadroom uint64
}

// PlayOptions controls a single playback
type PlayOptions struct {
	// Duration bounds the timed loop, measured from before the pre-fill.
	// Zero or less means the pre-fill writes only.
	Duration time.Duration
	// Unbounded ignores Duration and plays until ctx is cancelled
	Unbounded bool
	// Volume in [0,1]
	Volume float64
	// Frames per buffer pulled from the stream
	Frames int
	// AggregateCount scales the expected bytes per write. A write that
	// accepts less than AggregateCount buffers backs off.
	AggregateCount int
	Debug          bool
}

// Stats are the per-playback write diagnostics
type Stats struct {
	Writes      int
	ShortWrites int
	Bytes       int64
	LastDT      time.Duration
	LastGap     time.Duration
	AvgDT       time.Duration
	Headroom    uint64
	Collections int
	Underruns   int
}

// Output drives the DAC mute, amplifier shutdown and gain lines, the
// status LED and the serial audio bus. It belongs to the audio context.
type Output struct {
	cfg  Config
	pins Pins
	bus  hardware.Bus

	busReady bool
	gain     int
	work     []byte

	// OnStats, if set, receives diagnostics during and after playback
	OnStats func(Stats)

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	shortLog rate.Sometimes
	samples  []metrics.Sample
}

// NewOutput creates an output driver. The bus is opened lazily.
func NewOutput(cfg Config, pins Pins, bus hardware.Bus) *Output {
	if cfg.HeapHeadroom == 0 {
		cfg.HeapHeadroom = DefaultHeapHeadroom
	}
	return &Output{
		cfg:      cfg,
		pins:     pins,
		bus:      bus,
		now:      time.Now,
		sleep:    sleepCtx,
		shortLog: rate.Sometimes{Interval: time.Second},
		samples: []metrics.Sample{
			{Name: "/gc/heap/goal:bytes"},
			{Name: "/memory/classes/heap/objects:bytes"},
		},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// InitBus opens the serial audio bus. It is a no-op once the bus is up.
func (o *Output) InitBus() error {
	if o.busReady {
		return nil
	}
	if err := o.cfg.Bus.Geometry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrBusNotReady, err)
	}

	slog.Info("initializing serial audio bus",
		"dma_frames", o.cfg.Bus.DMAFrames,
		"ibuf_bytes", o.cfg.Bus.DMABytes(),
		"format", o.cfg.Bus.Geometry.String())

	if err := o.bus.Open(o.cfg.Bus); err != nil {
		return fmt.Errorf("%w: %v", ErrBusNotReady, err)
	}
	o.busReady = true
	return nil
}

// Enable unmutes the DAC, then releases the amplifier shutdown line
func (o *Output) Enable() error {
	if err := o.pins.Mute.Set(true); err != nil {
		return fmt.Errorf("unmute dac: %w", err)
	}
	if err := o.pins.AmpShutdown.Set(true); err != nil {
		return fmt.Errorf("enable amplifier: %w", err)
	}
	slog.Info("DAC and amplifier enabled")
	return nil
}

// Disable mutes the DAC, then shuts the amplifier down. Both lines are
// driven even if the first one fails.
func (o *Output) Disable() error {
	muteErr := o.pins.Mute.Set(false)
	ampErr := o.pins.AmpShutdown.Set(false)
	if muteErr != nil {
		return fmt.Errorf("mute dac: %w", muteErr)
	}
	if ampErr != nil {
		return fmt.Errorf("disable amplifier: %w", ampErr)
	}
	slog.Info("DAC and amplifier disabled")
	return nil
}

// SetGain drives the two gain lines from the low bits of level
func (o *Output) SetGain(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("%w (got %d)", ErrGainOutOfRange, level)
	}
	if err := o.pins.Gain0.Set(level&0x01 != 0); err != nil {
		return fmt.Errorf("set gain bit 0: %w", err)
	}
	if err := o.pins.Gain1.Set((level>>1)&0x01 != 0); err != nil {
		o.pins.Gain0.Set(o.gain&0x01 != 0)
		return fmt.Errorf("set gain bit 1: %w", err)
	}
	o.gain = level

	attrs := []any{"level", level}
	if level < len(o.cfg.GainDB) {
		attrs = append(attrs, "db", o.cfg.GainDB[level])
	}
	slog.Info("amplifier gain set", attrs...)
	return nil
}

// Gain returns the last level applied
func (o *Output) Gain() int {
	return o.gain
}

// BlinkLED flashes the status LED count times
func (o *Output) BlinkLED(ctx context.Context, count int) error {
	for i := 0; i < count; i++ {
		if err := o.pins.LED.Set(true); err != nil {
			return err
		}
		if err := o.sleep(ctx, blinkPeriod); err != nil {
			o.pins.LED.Set(false)
			return err
		}
		if err := o.pins.LED.Set(false); err != nil {
			return err
		}
		if err := o.sleep(ctx, blinkPeriod); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the bus
func (o *Output) Close() error {
	if !o.busReady {
		return nil
	}
	o.busReady = false
	return o.bus.Close()
}

// Play streams from stream until opts.Duration elapses or ctx is done.
// The pre-fill writes always happen, even for a zero duration.
// The outputs are disabled on every exit path. Bus write errors abort
// the playback and are returned.
func (o *Output) Play(ctx context.Context, stream Stream, opts PlayOptions) (stats Stats, err error) {
	if opts.Frames <= 0 {
		return stats, fmt.Errorf("play: frames must be > 0 (got %d)", opts.Frames)
	}
	if opts.AggregateCount <= 0 {
		opts.AggregateCount = 1
	}

	volQ15 := audio.VolumeToQ15(opts.Volume)
	geometry := o.cfg.Bus.Geometry
	scale := volQ15 < audio.Q15One
	if scale && geometry.BitsPerSample != 16 {
		slog.Warn("volume scaling needs 16-bit samples, playing unscaled",
			"bits_per_sample", geometry.BitsPerSample)
		scale = false
	}

	if err := o.InitBus(); err != nil {
		return stats, err
	}

	if r, ok := o.bus.(interface{ Reset() }); ok {
		r.Reset()
	}

	runtime.GC()
	if err := o.Enable(); err != nil {
		o.Disable()
		return stats, err
	}
	defer func() {
		if derr := o.Disable(); derr != nil && err == nil {
			err = derr
		}
		o.publish(&stats)
	}()

	// The deadline covers the pre-fill
	start := o.now()
	deadline := start.Add(opts.Duration)

	chunk := opts.Frames * geometry.BytesPerFrame()
	expected := opts.AggregateCount * chunk
	if cap(o.work) < chunk {
		o.work = make([]byte, chunk)
	}

	for i := 0; i < prefillWrites; i++ {
		buf, err := o.pull(stream, opts.Frames, chunk)
		if err != nil {
			return stats, err
		}
		if scale {
			audio.ScaleInPlace(buf, volQ15)
		}
		n, err := o.bus.Write(buf)
		if err != nil {
			slog.Error("bus write failed during pre-fill", "error", err)
			return stats, fmt.Errorf("pre-fill write %d: %w", i+1, err)
		}
		stats.Bytes += int64(n)
		if opts.Debug {
			slog.Info("pre-fill", "n", i+1, "written", n, "len", len(buf))
		}
	}

	if opts.Unbounded {
		slog.Info("starting audio output", "volume", opts.Volume)
	} else {
		slog.Info("starting audio output", "duration", opts.Duration, "volume", opts.Volume)
	}

	var totalDT time.Duration
	lastLoop := o.now()

	for opts.Unbounded || o.now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			slog.Info("audio playback interrupted")
			return stats, err
		}

		ws := o.now()
		buf, err := o.pull(stream, opts.Frames, chunk)
		if err != nil {
			return stats, err
		}
		if scale {
			audio.ScaleInPlace(buf, volQ15)
		}

		n, err := o.bus.Write(buf)
		if err != nil {
			slog.Error("bus write failed, aborting playback", "error", err, "writes", stats.Writes)
			return stats, fmt.Errorf("bus write: %w", err)
		}
		we := o.now()

		stats.Writes++
		stats.Bytes += int64(n)
		stats.LastDT = we.Sub(ws)
		stats.LastGap = we.Sub(lastLoop)
		lastLoop = we
		totalDT += stats.LastDT
		stats.AvgDT = totalDT / time.Duration(stats.Writes)

		if opts.Debug {
			slog.Info("[DIAG] write",
				"n", stats.Writes,
				"dt", stats.LastDT,
				"gap", stats.LastGap,
				"bytes", n,
				"headroom", stats.Headroom)
		}

		if n < expected {
			stats.ShortWrites++
			o.shortLog.Do(func() {
				slog.Warn("incomplete bus write, backing off",
					"written", n, "expected", expected, "count", stats.ShortWrites)
			})
			if err := o.sleep(ctx, shortWriteBackoff); err != nil {
				return stats, err
			}
		}

		if stats.Writes%avgEvery == 0 {
			if opts.Debug {
				slog.Info("[DIAG] average write latency", "writes", stats.Writes, "avg", stats.AvgDT)
			}
			o.publish(&stats)
		}

		o.reclaim(&stats)
	}

	slog.Info("audio output finished", "writes", stats.Writes, "bytes", stats.Bytes)
	return stats, nil
}

// pull copies the next buffer into the work buffer so scaling never
// touches the streamer's slots
func (o *Output) pull(stream Stream, frames, chunk int) ([]byte, error) {
	view, err := stream.Next(frames)
	if err != nil {
		return nil, fmt.Errorf("read pcm: %w", err)
	}
	out := o.work[:chunk]
	copy(out, view)
	return out, nil
}

// reclaim collects when the live heap gets within HeapHeadroom of the GC goal
func (o *Output) reclaim(stats *Stats) {
	metrics.Read(o.samples)
	if o.samples[0].Value.Kind() != metrics.KindUint64 || o.samples[1].Value.Kind() != metrics.KindUint64 {
		return
	}
	goal := o.samples[0].Value.Uint64()
	live := o.samples[1].Value.Uint64()
	if goal > live {
		stats.Headroom = goal - live
	} else {
		stats.Headroom = 0
	}
	if stats.Headroom < o.cfg.HeapHeadroom {
		runtime.GC()
		stats.Collections++
	}
}

func (o *Output) publish(stats *Stats) {
	if u, ok := o.bus.(interface{ Underruns() int }); ok {
		stats.Underruns = u.Underruns()
	}
	if o.OnStats != nil {
		o.OnStats(*stats)
	}
}
