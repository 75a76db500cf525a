package pipeline

import (
	"context"
	"time"
)

// Policy bounds how a caller retries a whole update. The pipeline itself never
// retries; each call is safe to repeat.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Backoff doubles Delay after every failed attempt.
	Backoff bool
}

// DefaultPolicy is three attempts one second apart.
var DefaultPolicy = Policy{MaxAttempts: 3, Delay: time.Second}

// Retry calls fn until it succeeds, the attempts run out or ctx is done. It
// returns the last error from fn, or ctx.Err() if ctx ended first.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if p.Backoff {
			delay *= 2
		}
	}
	return err
}
