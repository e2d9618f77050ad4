// Package retry runs fragile steps with bounded exponential backoff.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

type Policy struct {
	MaxAttempts int           `yaml:"max_attempts" json:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"baseDelay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"maxDelay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
	Jitter      float64       `yaml:"jitter" json:"jitter"` // fraction of the delay, 0..1
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.2,
	}
}

// Delay is the pause before attempt n+1, n starting at 1.
func (p Policy) Delay(n int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if j := min(max(p.Jitter, 0), 1); j > 0 {
		d += d * j * (2*rand.Float64() - 1)
	}
	return time.Duration(d)
}

// Do calls fn until it succeeds, returns an error classify rejects, the
// attempts run out, or ctx is done. It reports how many attempts were made.
func Do(ctx context.Context, p Policy, classify func(error) bool, fn func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := max(p.MaxAttempts, 1)

	var err error
	for attempt := 1; ; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			if err == nil {
				err = cerr
			}
			return attempt - 1, err
		}

		err = fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if attempt >= maxAttempts || !classify(err) {
			return attempt, err
		}

		t := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return attempt, err
		case <-t.C:
		}
	}
}
