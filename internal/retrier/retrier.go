// Package retrier retries failed primary-store operations with exponential
// backoff and jitter.
package retrier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

var (
	// ErrInvalidMaxAttempts is returned when the max attempts parameter is invalid.
	ErrInvalidMaxAttempts = errors.New("max attempts must be at least 1")
	// ErrInvalidBaseDelay is returned when the base delay parameter is invalid.
	ErrInvalidBaseDelay = errors.New("base delay must be at least 1ms")
	// ErrInvalidJitter is returned when the jitter parameter is invalid.
	ErrInvalidJitter = errors.New("jitter must be between 0 and 1")
)

// Retrier executes a function with bounded retries. Delays grow by a factor
// of two per attempt, capped at maxDelay, with up to jitter*delay of added
// randomness to avoid retry storms.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	jitter      float64
}

// New creates a Retrier. jitter must be within [0, 1].
func New(maxAttempts int, baseDelay, maxDelay time.Duration, jitter float64) (*Retrier, error) {
	if maxAttempts < 1 {
		return nil, ErrInvalidMaxAttempts
	}
	if baseDelay < time.Millisecond {
		return nil, ErrInvalidBaseDelay
	}
	if jitter < 0 || jitter > 1 {
		return nil, ErrInvalidJitter
	}
	return &Retrier{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		jitter:      jitter,
	}, nil
}

// Run executes fn, retrying on error until the attempt budget is spent or the
// context ends. A canceled or expired context stops retries immediately.
func (r *Retrier) Run(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt == r.maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delay(attempt)):
		}
	}
	return fmt.Errorf("max retry attempts reached: %w", err)
}

func (r *Retrier) delay(attempt int) time.Duration {
	d := float64(r.baseDelay) * math.Pow(2, float64(attempt))
	if d > float64(r.maxDelay) {
		d = float64(r.maxDelay)
	}
	d += rand.Float64() * r.jitter * d
	return time.Duration(d)
}
