package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/retry"
	"github.com/mergd/curro-sub001/internal/scrape"
)

// Store is the persistence the orchestrator reconciles against. Records are
// keyed by (CompanyID, URL).
type Store interface {
	// ListByCompany returns the company's live (not removed) records.
	ListByCompany(ctx context.Context, companyID int64) ([]domain.JobRecord, error)
	// Upsert inserts, updates or restores rec atomically.
	Upsert(ctx context.Context, rec domain.JobRecord) (domain.UpsertResult, error)
	// Touch bumps last_seen_at on postings that were listed unchanged.
	Touch(ctx context.Context, companyID int64, urls []string, seenAt time.Time) error
	MarkRemoved(ctx context.Context, companyID int64, urls []string, at time.Time, policy domain.Retention) (int, error)
}

type Adapters interface {
	For(st domain.SourceType) (scrape.Adapter, error)
}

type ChangeType string

const (
	ChangeInserted ChangeType = "job_inserted"
	ChangeUpdated  ChangeType = "job_updated"
	ChangeRemoved  ChangeType = "job_removed"
)

type Change struct {
	Type   ChangeType
	RunID  string
	Record domain.JobRecord
	Hard   bool // removed rows that no longer exist
}

// Observer receives committed changes. Calls are synchronous, so
// implementations must not block; failures stay inside the observer.
type Observer interface {
	OnChange(ctx context.Context, ch Change)
	OnRunFinished(ctx context.Context, rep domain.Report)
}

type Config struct {
	Workers        int
	CompanyTimeout time.Duration
	Retry          retry.Policy
	Retention      domain.Retention
}

type Orchestrator struct {
	adapters  Adapters
	store     Store
	cfg       Config
	log       *slog.Logger
	observers []Observer
	now       func() time.Time
}

func New(adapters Adapters, store Store, cfg Config, log *slog.Logger, observers ...Observer) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if !cfg.Retention.Valid() {
		cfg.Retention = domain.RetentionSoft
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	return &Orchestrator{
		adapters:  adapters,
		store:     store,
		cfg:       cfg,
		log:       log,
		observers: observers,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run ingests every company independently and returns one outcome per
// company, in input order. A failing company never stops the others.
func (o *Orchestrator) Run(ctx context.Context, companies []domain.Company) domain.Report {
	rep := domain.Report{
		RunID:     uuid.NewString(),
		StartedAt: o.now(),
		Outcomes:  make([]domain.Outcome, len(companies)),
	}
	o.log.Info("ingest run start", "run", rep.RunID, "companies", len(companies), "workers", o.cfg.Workers)

	var g errgroup.Group
	g.SetLimit(o.cfg.Workers)
	for i, co := range companies {
		g.Go(func() error {
			rep.Outcomes[i] = o.runCompany(ctx, rep.RunID, co)
			return nil
		})
	}
	_ = g.Wait()

	rep.FinishedAt = o.now()
	o.log.Info("ingest run done", "run", rep.RunID,
		"ok", rep.Succeeded(), "failed", rep.Failed(), "took", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))

	for _, obs := range o.observers {
		obs.OnRunFinished(ctx, rep)
	}
	return rep
}

func (o *Orchestrator) runCompany(ctx context.Context, runID string, co domain.Company) (out domain.Outcome) {
	out = domain.Outcome{
		RunID:       runID,
		CompanyID:   co.ID,
		CompanyName: co.Name,
		SourceType:  co.SourceType,
		StartedAt:   o.now(),
	}
	log := o.log.With("run", runID, "company", co.Name, "source", co.SourceType)
	defer func() {
		out.Duration = o.now().Sub(out.StartedAt)
		if out.OK {
			log.Info("ingest company done", "attempts", out.Attempts, "scraped", out.Scraped,
				"inserted", out.Inserted, "updated", out.Updated, "restored", out.Restored,
				"unchanged", out.Unchanged, "removed", out.Removed, "skipped", out.Skipped)
		} else {
			log.Warn("ingest company failed", "attempts", out.Attempts, "kind", out.ErrKind, "err", out.Error)
		}
	}()

	// not started before the run was cancelled
	if err := ctx.Err(); err != nil {
		return fail(out, err)
	}

	adapter, err := o.adapters.For(co.SourceType)
	if err != nil {
		return fail(out, err)
	}

	cctx := ctx
	if o.cfg.CompanyTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, o.cfg.CompanyTimeout)
		defer cancel()
	}

	var raws []domain.RawPosting
	out.Attempts, err = retry.Do(cctx, o.cfg.Retry, domain.Retryable, func(ctx context.Context, attempt int) error {
		r, err := adapter.Scrape(ctx, co)
		if err != nil {
			log.Debug("scrape attempt failed", "attempt", attempt, "err", err)
			return err
		}
		raws = r
		return nil
	})
	if err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			err = domain.NetworkError("company timeout", co.JobBoardURL, err)
		}
		return fail(out, err)
	}
	out.Scraped = len(raws)

	now := o.now()
	next := make([]domain.JobRecord, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		rec, warns, err := Normalize(raw, co, now)
		if err != nil {
			out.Skipped++
			log.Warn("posting skipped", "title", raw.Title, "url", raw.URL, "err", err)
			continue
		}
		for _, w := range warns {
			log.Warn("posting normalized with loss", "url", rec.URL, "warning", w)
		}
		if seen[rec.URL] {
			log.Debug("duplicate posting url", "url", rec.URL)
			continue
		}
		seen[rec.URL] = true
		next = append(next, rec)
	}

	prev, err := o.store.ListByCompany(cctx, co.ID)
	if err != nil {
		return fail(out, err)
	}
	plan := Diff(prev, next)

	if err := o.apply(cctx, runID, co, plan, now, &out); err != nil {
		return fail(out, err)
	}
	out.OK = true
	return out
}

func (o *Orchestrator) apply(ctx context.Context, runID string, co domain.Company, plan Plan, now time.Time, out *domain.Outcome) error {
	for _, rec := range append(plan.Insert, plan.Update...) {
		res, err := o.store.Upsert(ctx, rec)
		if err != nil {
			return err
		}
		switch res.Action {
		case domain.ActionInserted:
			out.Inserted++
			o.notify(ctx, Change{Type: ChangeInserted, RunID: runID, Record: res.Record})
		case domain.ActionRestored:
			out.Restored++
			o.notify(ctx, Change{Type: ChangeInserted, RunID: runID, Record: res.Record})
		case domain.ActionUpdated:
			out.Updated++
			o.notify(ctx, Change{Type: ChangeUpdated, RunID: runID, Record: res.Record})
		default:
			out.Unchanged++
		}
	}

	if len(plan.Unchanged) > 0 {
		if err := o.store.Touch(ctx, co.ID, urlsOf(plan.Unchanged), now); err != nil {
			return err
		}
		out.Unchanged += len(plan.Unchanged)
	}

	if len(plan.Remove) > 0 {
		n, err := o.store.MarkRemoved(ctx, co.ID, urlsOf(plan.Remove), now, o.cfg.Retention)
		if err != nil {
			return err
		}
		out.Removed = n
		for _, rec := range plan.Remove {
			rec.RemovedAt = &now
			o.notify(ctx, Change{Type: ChangeRemoved, RunID: runID, Record: rec, Hard: o.cfg.Retention == domain.RetentionHard})
		}
	}
	return nil
}

func (o *Orchestrator) notify(ctx context.Context, ch Change) {
	for _, obs := range o.observers {
		obs.OnChange(ctx, ch)
	}
}

func fail(out domain.Outcome, err error) domain.Outcome {
	out.OK = false
	out.ErrKind = domain.KindOf(err)
	out.Error = err.Error()
	return out
}

func urlsOf(recs []domain.JobRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.URL
	}
	return out
}
