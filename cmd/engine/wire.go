package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/mergd/curro-sub001/internal/config"
	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/enrich"
	"github.com/mergd/curro-sub001/internal/events"
	"github.com/mergd/curro-sub001/internal/fetch"
	"github.com/mergd/curro-sub001/internal/ingest"
	"github.com/mergd/curro-sub001/internal/poll"
	"github.com/mergd/curro-sub001/internal/scrape"
	"github.com/mergd/curro-sub001/internal/scrape/ashby"
	"github.com/mergd/curro-sub001/internal/scrape/generic"
	"github.com/mergd/curro-sub001/internal/scrape/greenhouse"
	"github.com/mergd/curro-sub001/internal/scrape/util"
	"github.com/mergd/curro-sub001/internal/secrets"
	"github.com/mergd/curro-sub001/internal/sink"
	"github.com/mergd/curro-sub001/internal/store"
	"github.com/mergd/curro-sub001/internal/store/postgres"
)

// engineStore is the method set shared by the SQLite and Postgres stores.
type engineStore interface {
	ingest.Store
	poll.Store
	GetJob(ctx context.Context, id int64) (domain.JobRecord, error)
	ListJobs(ctx context.Context, q domain.JobQuery) ([]domain.JobRecord, error)
	GetCompany(ctx context.Context, id int64) (domain.Company, error)
	CreateCompany(ctx context.Context, c domain.Company) (domain.Company, error)
	UpdateCompany(ctx context.Context, id int64, c domain.Company) (domain.Company, error)
	DeleteCompany(ctx context.Context, id int64) error
	SetCompanyDetails(ctx context.Context, id int64, details json.RawMessage) error
	UpsertCompanyByBoardURL(ctx context.Context, c domain.Company) (domain.Company, bool, error)
	Close() error
}

type engine struct {
	store    engineStore
	hub      *events.Hub
	runner   *poll.Runner
	enricher enrich.Enricher
	closers  []io.Closer
}

func (e *engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i].Close()
	}
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*engine, error) {
	eng := &engine{hub: events.NewHub(64)}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	eng.store = st
	eng.closers = append(eng.closers, st)

	rl := cfg.Ingest.RateLimit
	limiter := util.NewHostLimiter(util.LimiterConfig{
		PerHostRPS:   rl.PerHostRPS,
		PerHostBurst: rl.PerHostBurst,
		GlobalRPS:    rl.GlobalRPS,
		GlobalBurst:  rl.GlobalBurst,
		MaxWait:      rl.MaxWait,
	})
	fetcher := fetch.NewFetcher(&http.Client{Timeout: 20 * time.Second}, fetch.WithLimiter(limiter))
	renderer := fetch.NewChromeRenderer(fetch.RenderConfig{
		Timeout:  cfg.Ingest.Render.Timeout,
		Wait:     cfg.Ingest.Render.Wait,
		ExecPath: cfg.Ingest.Render.ExecPath,
		Headless: cfg.Ingest.Render.IsHeadless(),
	}, limiter)

	reg := scrape.NewRegistry()
	reg.Register(domain.SourceAshby, ashby.New(fetcher, log))
	reg.Register(domain.SourceGreenhouse, greenhouse.New(fetcher, greenhouse.Options{
		Hydrate:       cfg.Ingest.HydrateDetails,
		HydrateBudget: cfg.Ingest.HydrateBudget,
	}, log))
	reg.Register(domain.SourceOther, generic.New(renderer, cfg.Ingest.Render.Wait, log))

	observers := []ingest.Observer{sink.NewHub(eng.hub)}
	if k := cfg.Sinks.Kafka; k.Enabled {
		ks := sink.NewKafka(sink.KafkaConfig{Brokers: k.Brokers, Topic: k.Topic}, log)
		observers = append(observers, ks)
		eng.closers = append(eng.closers, ks)
	}
	if es := cfg.Sinks.Elasticsearch; es.Enabled {
		el, err := sink.NewElastic(es.Addr, es.Index, log)
		if err != nil {
			eng.Close()
			return nil, err
		}
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := el.Ping(pctx); err != nil {
			log.Warn("elasticsearch not reachable, indexing will retry per change", "addr", es.Addr, "err", err)
		}
		cancel()
		observers = append(observers, el)
		eng.closers = append(eng.closers, el)
	}

	orch := ingest.New(reg, st, ingest.Config{
		Workers:        cfg.Ingest.Workers,
		CompanyTimeout: cfg.Ingest.CompanyTimeout,
		Retry:          cfg.Ingest.Retry,
		Retention:      cfg.Retention.Policy,
	}, log, observers...)

	eng.runner = poll.NewRunner(st, orch, eng.hub, poll.Options{
		Retention:  cfg.Retention.Policy,
		PurgeAfter: cfg.Retention.PurgeAfter,
	}, log)

	if cfg.Enrich.Enabled {
		en, err := newEnricher(ctx, cfg)
		if err != nil {
			log.Warn("enrichment disabled", "err", err)
		} else {
			eng.enricher = en
		}
	}
	return eng, nil
}

func openStore(ctx context.Context, cfg config.Config) (engineStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Store.DSN, cfg.Store.MaxConns, cfg.Store.ViaBouncer)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.Migrate(ctx, db.Pool); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return db, nil
	default:
		path := cfg.Store.DSN
		if path == "" {
			path = filepath.Join(cfg.App.DataDir, "engine.db")
		}
		db, err := store.OpenAndMigrate(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", path, err)
		}
		return db, nil
	}
}

func newEnricher(ctx context.Context, cfg config.Config) (enrich.Enricher, error) {
	key, err := secrets.APIKey(cfg.Enrich.APIKeyEnv, cfg.Enrich.KeyringAccount)
	if err != nil {
		return nil, err
	}
	return enrich.NewGemini(ctx, key, cfg.Enrich.Model, cfg.Enrich.Timeout)
}

// seedCompanies upserts configured companies by job-board URL. Companies
// added through the API are left alone.
func seedCompanies(ctx context.Context, st engineStore, inputs []domain.CompanyInput, log *slog.Logger) error {
	created := 0
	var errs []error
	for i, in := range inputs {
		c, err := in.Validate()
		if err != nil {
			errs = append(errs, fmt.Errorf("companies[%d]: %w", i, err))
			continue
		}
		_, isNew, err := st.UpsertCompanyByBoardURL(ctx, c)
		if err != nil {
			return fmt.Errorf("seed company %s: %w", c.Name, err)
		}
		if isNew {
			created++
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	log.Info("companies seeded", "configured", len(inputs), "created", created)
	return nil
}
