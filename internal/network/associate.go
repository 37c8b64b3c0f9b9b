// ABOUTME: Station association with capped exponential backoff
// ABOUTME: One call runs a full attempt sequence and reports every state transition
package network

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds one association sequence
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64

	// PollCount status checks, PollInterval apart, make up one attempt
	PollCount    int
	PollInterval time.Duration
}

// Associator drives a Link through Connecting to Connected
type Associator struct {
	link     Link
	ssid     string
	password string
	policy   RetryPolicy

	// OnState, if set, observes every transition
	OnState func(ConnectionState)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewAssociator creates an associator for the given credentials
func NewAssociator(link Link, ssid, password string, policy RetryPolicy) *Associator {
	if policy.Factor < 1 {
		policy.Factor = 1
	}
	return &Associator{
		link:     link,
		ssid:     ssid,
		password: password,
		policy:   policy,
		sleep:    sleepCtx,
	}
}

// newBackOff yields min(delay*factor, max) on every NextBackOff, starting
// from the initial delay. No jitter, no elapsed-time cap.
func (a *Associator) newBackOff() *backoff.ExponentialBackOff {
	first := time.Duration(float64(a.policy.InitialDelay) * a.policy.Factor)
	if first > a.policy.MaxDelay {
		first = a.policy.MaxDelay
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     first,
		RandomizationFactor: 0,
		Multiplier:          a.policy.Factor,
		MaxInterval:         a.policy.MaxDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

func (a *Associator) publish(s ConnectionState) {
	if a.OnState != nil {
		a.OnState(s)
	}
}

// Associate runs one attempt sequence. It returns the station IP, or
// ErrRetriesExhausted after MaxRetries failed attempts.
func (a *Associator) Associate(ctx context.Context) (string, error) {
	b := a.newBackOff()
	delay := a.policy.InitialDelay

	slog.Info("connecting to wifi", "ssid", a.ssid, "max_retries", a.policy.MaxRetries)

	a.publish(ConnectionState{Phase: Connecting, Attempt: 0, Delay: delay})

	for attempt := 0; attempt < a.policy.MaxRetries; {
		if err := a.link.Connect(ctx, a.ssid, a.password); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			slog.Warn("association request failed", "attempt", attempt+1, "error", err)
		}

		for i := 0; i < a.policy.PollCount; i++ {
			if a.link.IsConnected() {
				ip := a.link.IP()
				slog.Info("connected to wifi", "ip", ip, "attempt", attempt+1)
				a.publish(ConnectionState{Phase: Connected, IP: ip})
				return ip, nil
			}
			if err := a.sleep(ctx, a.policy.PollInterval); err != nil {
				return "", err
			}
		}

		attempt++
		slog.Warn("connection attempt failed", "attempt", attempt)
		if attempt >= a.policy.MaxRetries {
			break
		}

		delay = b.NextBackOff()
		slog.Info("retrying wifi", "in", delay, "attempt", attempt+1, "of", a.policy.MaxRetries)
		a.publish(ConnectionState{Phase: Connecting, Attempt: attempt, Delay: delay})
		if err := a.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	a.publish(ConnectionState{Phase: Disconnected})
	return "", fmt.Errorf("%w after %d attempts", ErrRetriesExhausted, a.policy.MaxRetries)
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
