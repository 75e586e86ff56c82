package transport

import (
	"context"
	"math/rand/v2"
	"time"
)

const (
	defaultBaseDelay  = time.Second
	defaultMaxDelay   = 30 * time.Second
	defaultMaxRetries = 3
)

// BackoffPolicy computes the delay applied before retry attempt i
// (0-indexed over the retries, not the initial attempt).
type BackoffPolicy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff doubles Base per attempt, adds up to one second of
// jitter, and caps the result at Max.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration

	// Jitter overrides the random jitter source; tests use a fixed value.
	Jitter func() time.Duration
}

func (p ExponentialBackoff) NextDelay(attempt int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = defaultBaseDelay
	}
	maximum := p.Max
	if maximum <= 0 {
		maximum = defaultMaxDelay
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			delay = maximum
			break
		}
	}
	delay += p.jitter()
	if delay > maximum {
		delay = maximum
	}
	return delay
}

func (p ExponentialBackoff) jitter() time.Duration {
	if p.Jitter != nil {
		return p.Jitter()
	}
	return time.Duration(rand.Int64N(int64(time.Second)))
}

// sleepContext blocks for the delay or until the context is done.
func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ BackoffPolicy = ExponentialBackoff{}
