package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/mergd/curro-sub001/internal/config"
	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/enrich"
	"github.com/mergd/curro-sub001/internal/events"
	"github.com/mergd/curro-sub001/internal/poll"
)

// Store is what the API reads and administers. Both the SQLite and the
// Postgres stores satisfy it.
type Store interface {
	ListJobs(ctx context.Context, q domain.JobQuery) ([]domain.JobRecord, error)
	GetJob(ctx context.Context, id int64) (domain.JobRecord, error)

	ListCompanies(ctx context.Context, activeOnly bool) ([]domain.Company, error)
	GetCompany(ctx context.Context, id int64) (domain.Company, error)
	CreateCompany(ctx context.Context, c domain.Company) (domain.Company, error)
	UpdateCompany(ctx context.Context, id int64, c domain.Company) (domain.Company, error)
	DeleteCompany(ctx context.Context, id int64) error
	SetCompanyDetails(ctx context.Context, id int64, details json.RawMessage) error
}

type Ingest interface {
	Trigger(ctx context.Context) error
	Status() poll.Status
}

type Deps struct {
	// Ctx bounds background work started by requests, such as ingest runs.
	Ctx context.Context

	Store    Store
	Ingest   Ingest
	Hub      *events.Hub
	Enricher enrich.Enricher // nil when enrichment is disabled
	Log      *slog.Logger

	CfgVal      *atomic.Value // stores config.Config
	UserCfgPath string
	LoadCfg     func() (config.Config, error)
}
