// Package poll drives ingestion runs, on a schedule or on demand, and keeps
// the status the API reports.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/events"
	"github.com/mergd/curro-sub001/internal/scheduler"
)

var ErrAlreadyRunning = errors.New("an ingestion run is already in progress")

type Store interface {
	ListCompanies(ctx context.Context, activeOnly bool) ([]domain.Company, error)
	PurgeRemoved(ctx context.Context, cutoff time.Time) (int, error)
}

type Ingester interface {
	Run(ctx context.Context, companies []domain.Company) domain.Report
}

type Status struct {
	Running       bool           `json:"running"`
	LastRunAt     time.Time      `json:"lastRunAt,omitzero"`
	LastRunID     string         `json:"lastRunId,omitempty"`
	LastSucceeded int            `json:"lastSucceeded"`
	LastFailed    int            `json:"lastFailed"`
	LastPurged    int            `json:"lastPurged"`
	LastError     string         `json:"lastError,omitempty"`
	LastReport    *domain.Report `json:"lastReport,omitempty"`
}

type Options struct {
	Retention  domain.Retention
	PurgeAfter time.Duration // soft retention only; 0 keeps removed postings forever
}

type Runner struct {
	store Store
	ing   Ingester
	hub   *events.Hub
	opts  Options
	log   *slog.Logger

	running atomic.Bool
	mu      sync.Mutex
	status  Status
}

func NewRunner(store Store, ing Ingester, hub *events.Hub, opts Options, log *slog.Logger) *Runner {
	return &Runner{store: store, ing: ing, hub: hub, opts: opts, log: log}
}

// RunOnce performs one ingestion pass over the active companies. It fails
// with ErrAlreadyRunning rather than overlapping a run in progress.
func (r *Runner) RunOnce(ctx context.Context) (domain.Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return domain.Report{}, ErrAlreadyRunning
	}
	defer r.running.Store(false)
	return r.runHeld(ctx)
}

// Trigger starts a run in the background and returns at once.
func (r *Runner) Trigger(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	go func() {
		defer r.running.Store(false)
		if _, err := r.runHeld(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("triggered ingest failed", "err", err)
		}
	}()
	return nil
}

func (r *Runner) runHeld(ctx context.Context) (domain.Report, error) {
	started := time.Now().UTC()
	r.update(func(s *Status) {
		s.Running = true
		s.LastRunAt = started
	})

	rep, purged, err := r.run(ctx)

	r.update(func(s *Status) {
		s.Running = false
		s.LastPurged = purged
		s.LastError = ""
		if err != nil {
			s.LastError = err.Error()
		}
		if rep.RunID != "" {
			s.LastRunID = rep.RunID
			s.LastSucceeded = rep.Succeeded()
			s.LastFailed = rep.Failed()
			s.LastReport = &rep
		}
	})
	return rep, err
}

func (r *Runner) run(ctx context.Context) (domain.Report, int, error) {
	companies, err := r.store.ListCompanies(ctx, true)
	if err != nil {
		return domain.Report{}, 0, fmt.Errorf("list companies: %w", err)
	}
	if r.hub != nil {
		r.hub.Publish(events.MakeEvent("", events.TypeRunStarted, map[string]int{"companies": len(companies)}))
	}

	rep := r.ing.Run(ctx, companies)

	purged := 0
	if r.opts.Retention != domain.RetentionHard && r.opts.PurgeAfter > 0 && ctx.Err() == nil {
		cutoff := time.Now().UTC().Add(-r.opts.PurgeAfter)
		purged, err = r.store.PurgeRemoved(ctx, cutoff)
		if err != nil {
			return rep, 0, fmt.Errorf("purge removed: %w", err)
		}
		if purged > 0 {
			r.log.Info("purged removed postings", "count", purged, "cutoff", cutoff)
		}
	}
	return rep, purged, nil
}

// Start runs ingestion every interval until ctx is done.
func (r *Runner) Start(ctx context.Context, interval time.Duration) {
	go scheduler.Every(ctx, interval, "ingest", r.log, func(ctx context.Context) error {
		_, err := r.RunOnce(ctx)
		if errors.Is(err, ErrAlreadyRunning) {
			return nil
		}
		return err
	})
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.status
	st.Running = r.running.Load()
	return st
}

func (r *Runner) update(fn func(*Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.status)
}
