package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mergd/curro-sub001/internal/config"
	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/enrich"
	"github.com/mergd/curro-sub001/internal/events"
	"github.com/mergd/curro-sub001/internal/logger"
	"github.com/mergd/curro-sub001/internal/poll"
	"github.com/mergd/curro-sub001/internal/store"
)

type fakeIngest struct {
	running atomic.Bool
}

func (f *fakeIngest) Trigger(context.Context) error {
	if !f.running.CompareAndSwap(false, true) {
		return poll.ErrAlreadyRunning
	}
	return nil
}

func (f *fakeIngest) Status() poll.Status {
	return poll.Status{Running: f.running.Load(), LastRunID: "run-9"}
}

type fakeEnricher struct {
	d   enrich.Details
	err error
}

func (f fakeEnricher) Enrich(context.Context, string, string) (enrich.Details, error) {
	return f.d, f.err
}

type testAPI struct {
	h      http.Handler
	db     *store.DB
	hub    *events.Hub
	cfgVal *atomic.Value
	path   string
}

func newTestAPI(t *testing.T, en enrich.Enricher) *testAPI {
	t.Helper()
	dir := t.TempDir()
	db, err := store.OpenAndMigrate(filepath.Join(dir, "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfgPath := filepath.Join(dir, "config.yml")
	cfgVal := &atomic.Value{}
	cfgVal.Store(config.Default())
	hub := events.NewHub(8)

	h := NewRouter(Deps{
		Ctx:         context.Background(),
		Store:       db,
		Ingest:      &fakeIngest{},
		Hub:         hub,
		Enricher:    en,
		Log:         logger.Discard(),
		CfgVal:      cfgVal,
		UserCfgPath: cfgPath,
		LoadCfg:     func() (config.Config, error) { return config.Load(cfgPath) },
	})
	return &testAPI{h: h, db: db, hub: hub, cfgVal: cfgVal, path: cfgPath}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	a := newTestAPI(t, nil)
	rec := a.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodOptions, "/jobs", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec = httptest.NewRecorder()
	a.h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCompaniesCRUD(t *testing.T) {
	a := newTestAPI(t, nil)
	sub := a.hub.Subscribe()

	rec := a.do(t, http.MethodPost, "/companies", `{"name":"Acme","jobBoardUrl":"https://jobs.ashbyhq.com/acme","sourceType":"ashby"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[domain.Company](t, rec)
	require.NotZero(t, created.ID)
	require.True(t, created.Active)
	require.Contains(t, <-sub, `"type":"company_changed"`)

	rec = a.do(t, http.MethodPost, "/companies", `{"name":"Acme 2","jobBoardUrl":"https://jobs.ashbyhq.com/acme","sourceType":"ashby"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/companies", `{"name":"","jobBoardUrl":"/relative","sourceType":"lever"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decode[APIError](t, rec)
	require.Equal(t, "invalid_input", apiErr.Error.Code)
	require.Contains(t, apiErr.Error.Message, "name is required")

	rec = a.do(t, http.MethodPost, "/companies", `{"name":"X","bogus":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_json", decode[APIError](t, rec).Error.Code)

	id := created.ID
	path := "/companies/" + itoa(id)
	rec = a.do(t, http.MethodPut, path, `{"name":"Acme Inc","jobBoardUrl":"https://acme.com/careers","sourceType":"other","listingSelector":".jobs","active":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.Company](t, rec)
	require.Equal(t, "Acme Inc", updated.Name)
	require.Equal(t, domain.SourceOther, updated.SourceType)
	require.False(t, updated.Active)

	rec = a.do(t, http.MethodGet, "/companies", "")
	require.Len(t, decode[[]domain.Company](t, rec), 1)
	rec = a.do(t, http.MethodGet, "/companies?active=true", "")
	require.Empty(t, decode[[]domain.Company](t, rec))

	require.Equal(t, http.StatusOK, a.do(t, http.MethodDelete, path, "").Code)
	require.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, path, "").Code)
	require.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, path, "").Code)
	require.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/companies/abc", "").Code)
}

func TestJobsEndpoints(t *testing.T) {
	a := newTestAPI(t, nil)
	ctx := context.Background()
	co, err := a.db.CreateCompany(ctx, domain.Company{Name: "Acme", JobBoardURL: "https://boards.greenhouse.io/acme", SourceType: domain.SourceGreenhouse, Active: true})
	require.NoError(t, err)

	now := time.Now().UTC()
	var ids []int64
	for _, u := range []string{"https://boards.greenhouse.io/acme/jobs/1", "https://boards.greenhouse.io/acme/jobs/2"} {
		res, err := a.db.Upsert(ctx, domain.JobRecord{
			ExternalID: u, CompanyID: co.ID, Title: "Engineer", URL: u,
			Source: "greenhouse", FirstSeenAt: now, LastSeenAt: now,
		})
		require.NoError(t, err)
		ids = append(ids, res.Record.ID)
	}
	_, err = a.db.MarkRemoved(ctx, co.ID, []string{"https://boards.greenhouse.io/acme/jobs/2"}, now, domain.RetentionSoft)
	require.NoError(t, err)

	rec := a.do(t, http.MethodGet, "/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]domain.JobRecord](t, rec), 1)

	rec = a.do(t, http.MethodGet, "/jobs?include_removed=true&company_id="+itoa(co.ID), "")
	require.Len(t, decode[[]domain.JobRecord](t, rec), 2)

	rec = a.do(t, http.MethodGet, "/companies/"+itoa(co.ID)+"/jobs", "")
	require.Len(t, decode[[]domain.JobRecord](t, rec), 1)

	rec = a.do(t, http.MethodGet, "/jobs/"+itoa(ids[0]), "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Acme", decode[domain.JobRecord](t, rec).CompanyName)

	require.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/jobs/999", "").Code)
	require.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/jobs?limit=-1", "").Code)
	require.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/jobs?include_removed=maybe", "").Code)
	require.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/jobs?company_id=x", "").Code)

	rec = a.do(t, http.MethodGet, "/jobs?company_id=12345", "")
	require.Equal(t, "[]\n", rec.Body.String())
}

func TestIngestRunAndStatus(t *testing.T) {
	a := newTestAPI(t, nil)
	require.Equal(t, http.StatusAccepted, a.do(t, http.MethodPost, "/ingest/run", "").Code)
	rec := a.do(t, http.MethodPost, "/ingest/run", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "already_running", decode[APIError](t, rec).Error.Code)

	st := decode[poll.Status](t, a.do(t, http.MethodGet, "/ingest/status", ""))
	require.True(t, st.Running)
	require.Equal(t, "run-9", st.LastRunID)
}

func TestEnrich(t *testing.T) {
	a := newTestAPI(t, nil)
	co, err := a.db.CreateCompany(context.Background(), domain.Company{Name: "Acme", JobBoardURL: "https://jobs.ashbyhq.com/acme", SourceType: domain.SourceAshby, Active: true})
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, a.do(t, http.MethodPost, "/companies/"+itoa(co.ID)+"/enrich", "").Code)

	a = newTestAPI(t, fakeEnricher{d: enrich.Details{Stage: "Series A", Investors: []string{"a16z"}}})
	co, err = a.db.CreateCompany(context.Background(), domain.Company{Name: "Acme", JobBoardURL: "https://jobs.ashbyhq.com/acme", SourceType: domain.SourceAshby, Active: true})
	require.NoError(t, err)

	rec := a.do(t, http.MethodPost, "/companies/"+itoa(co.ID)+"/enrich", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err := a.db.GetCompany(context.Background(), co.ID)
	require.NoError(t, err)
	require.JSONEq(t, `{"stage":"Series A","investors":["a16z"]}`, string(got.Details))

	require.Equal(t, http.StatusNotFound, a.do(t, http.MethodPost, "/companies/999/enrich", "").Code)

	a = newTestAPI(t, fakeEnricher{err: errors.New("model unavailable")})
	co, err = a.db.CreateCompany(context.Background(), domain.Company{Name: "Acme", JobBoardURL: "https://jobs.ashbyhq.com/acme", SourceType: domain.SourceAshby, Active: true})
	require.NoError(t, err)
	require.Equal(t, http.StatusBadGateway, a.do(t, http.MethodPost, "/companies/"+itoa(co.ID)+"/enrich", "").Code)
}

func TestConfigEndpoints(t *testing.T) {
	a := newTestAPI(t, nil)

	rec := a.do(t, http.MethodGet, "/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cfg := decode[config.Config](t, rec)
	require.Equal(t, "sqlite", cfg.Store.Driver)

	v := decode[config.Validation](t, a.do(t, http.MethodGet, "/config/validate", ""))
	require.True(t, v.OK())

	cfg.Ingest.Workers = 0
	body, err := json.Marshal(cfg)
	require.NoError(t, err)
	rec = a.do(t, http.MethodPut, "/config", string(body))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, decode[config.Validation](t, rec).Errors, "ingest.workers must be > 0")

	cfg.Ingest.Workers = 6
	body, err = json.Marshal(cfg)
	require.NoError(t, err)
	rec = a.do(t, http.MethodPut, "/config", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, 6, a.cfgVal.Load().(config.Config).Ingest.Workers)

	onDisk, err := config.Load(a.path)
	require.NoError(t, err)
	require.Equal(t, 6, onDisk.Ingest.Workers)
}

func TestEventsStream(t *testing.T) {
	a := newTestAPI(t, nil)
	srv := httptest.NewServer(a.h)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rd := bufio.NewReader(resp.Body)
	next := func() string {
		for {
			line, err := rd.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}
	require.Contains(t, next(), `"type":"ping"`)

	require.Eventually(t, func() bool { return a.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	a.hub.Publish(events.MakeEvent("run-1", events.TypeJobInserted, map[string]int{"id": 1}))
	require.Contains(t, next(), `"type":"job_inserted"`)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
