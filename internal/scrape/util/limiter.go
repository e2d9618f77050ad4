package util

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mergd/curro-sub001/internal/domain"
)

type LimiterConfig struct {
	PerHostRPS   float64
	PerHostBurst int
	GlobalRPS    float64 // <= 0 disables the global bucket
	GlobalBurst  int
	MaxWait      time.Duration // <= 0 waits as long as ctx allows
}

// HostLimiter rate-limits per hostname (jobs.ashbyhq.com,
// boards.greenhouse.io, ...) and optionally across all hosts. Callers queue
// for at most MaxWait; a request that cannot be admitted in time fails with
// a throttled error so the supervisor can retry it later.
type HostLimiter struct {
	mu      sync.Mutex
	m       map[string]*rate.Limiter
	r       rate.Limit
	b       int
	global  *rate.Limiter
	maxWait time.Duration
}

func NewHostLimiter(cfg LimiterConfig) *HostLimiter {
	hl := &HostLimiter{
		m:       make(map[string]*rate.Limiter),
		r:       rate.Limit(cfg.PerHostRPS),
		b:       max(1, cfg.PerHostBurst),
		maxWait: cfg.MaxWait,
	}
	if cfg.PerHostRPS <= 0 {
		hl.r = rate.Inf
	}
	if cfg.GlobalRPS > 0 {
		hl.global = rate.NewLimiter(rate.Limit(cfg.GlobalRPS), max(1, cfg.GlobalBurst))
	}
	return hl
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if lim, ok := hl.m[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(hl.r, hl.b)
	hl.m[host] = lim
	return lim
}

// WaitURL blocks until a request to raw may be sent.
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	if hl == nil {
		return nil
	}
	host := Host(raw)
	if host == "" {
		host = "_"
	}

	wctx := ctx
	if hl.maxWait > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, hl.maxWait)
		defer cancel()
	}

	if hl.global != nil {
		if err := hl.global.Wait(wctx); err != nil {
			return hl.waitErr(ctx, raw, "global", err)
		}
	}
	if err := hl.limiterFor(host).Wait(wctx); err != nil {
		return hl.waitErr(ctx, raw, host, err)
	}
	return nil
}

func (hl *HostLimiter) waitErr(parent context.Context, raw, bucket string, err error) error {
	// run-level cancellation is not a throttle
	if perr := parent.Err(); perr != nil {
		return perr
	}
	return domain.ThrottledError("rate limit", raw, fmt.Errorf("bucket %s: %w", bucket, err))
}
