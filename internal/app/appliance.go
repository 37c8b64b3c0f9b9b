// ABOUTME: Appliance orchestration: the audio main loop and the control plane
// ABOUTME: The two contexts share nothing but the control mailbox
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Resonate-Protocol/pcmbox/internal/mailbox"
	"github.com/Resonate-Protocol/pcmbox/internal/player"
)

// postPlayPause yields after every playback before polling again
const postPlayPause = 100 * time.Millisecond

// Driver is the audio output as seen by the main loop
type Driver interface {
	Play(ctx context.Context, stream player.Stream, opts player.PlayOptions) (player.Stats, error)
	SetGain(level int) error
}

// ControlPlane is the network context
type ControlPlane interface {
	Run(ctx context.Context) error
}

// Config holds the audio loop settings
type Config struct {
	Frames         int
	AggregateCount int
	Debug          bool
	PollInterval   time.Duration
}

// Appliance owns both execution contexts
type Appliance struct {
	cfg     Config
	mailbox *mailbox.Mailbox
	output  Driver
	stream  player.Stream
	plane   ControlPlane

	// OnPlayback, if set, observes playback start (true) and end (false)
	OnPlayback func(playing bool, req mailbox.PlayRequest)
	// OnGain, if set, observes applied gain levels
	OnGain func(level int)

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an appliance
func New(cfg Config, mb *mailbox.Mailbox, output Driver, stream player.Stream, plane ControlPlane) *Appliance {
	return &Appliance{
		cfg:     cfg,
		mailbox: mb,
		output:  output,
		stream:  stream,
		plane:   plane,
		sleep:   sleepCtx,
	}
}

// Run starts the audio loop and the control plane and waits for both.
// It returns when ctx is cancelled or either side fails.
func (a *Appliance) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.AudioLoop(gctx)
	})
	g.Go(func() error {
		return a.plane.Run(gctx)
	})

	return g.Wait()
}

// AudioLoop polls the mailbox and plays requests synchronously
func (a *Appliance) AudioLoop(ctx context.Context) error {
	slog.Info("audio loop started", "playback_frames", a.cfg.Frames, "poll_interval", a.cfg.PollInterval)

	for {
		if gain, ok := a.mailbox.TakeGain(); ok {
			a.applyGain(gain)
		}

		if req, ok := a.mailbox.TakePlay(); ok {
			a.play(ctx, req)
			if err := a.sleep(ctx, postPlayPause); err != nil {
				return err
			}
			continue
		}

		if err := a.sleep(ctx, a.cfg.PollInterval); err != nil {
			return err
		}
	}
}

func (a *Appliance) applyGain(req mailbox.GainRequest) {
	slog.Info("setting amplifier gain", "level", req.Level)
	if err := a.output.SetGain(req.Level); err != nil {
		slog.Error("gain change rejected", "level", req.Level, "error", err)
		return
	}
	if a.OnGain != nil {
		a.OnGain(req.Level)
	}
}

// play runs one request. The mailbox returns to idle on every path.
func (a *Appliance) play(ctx context.Context, req mailbox.PlayRequest) {
	defer a.mailbox.MarkIdle()

	slog.Info("playing audio", "duration", req.Duration, "volume", req.Volume)
	if a.OnPlayback != nil {
		a.OnPlayback(true, req)
		defer a.OnPlayback(false, req)
	}

	stats, err := a.output.Play(ctx, a.stream, player.PlayOptions{
		Duration:       req.Duration,
		Volume:         req.Volume,
		Frames:         a.cfg.Frames,
		AggregateCount: a.cfg.AggregateCount,
		Debug:          a.cfg.Debug,
	})
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		slog.Info("audio playback interrupted", "writes", stats.Writes)
	default:
		slog.Error("error during audio playback", "error", err, "writes", stats.Writes)
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
