package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mergd/curro-sub001/internal/domain"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadDefaultFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yml"))
	require.NoError(t, err)

	require.Equal(t, "sqlite", cfg.Store.Driver)
	require.Equal(t, 30*time.Minute, cfg.Ingest.Interval)
	require.Equal(t, 3, cfg.Ingest.Retry.MaxAttempts)
	require.Equal(t, time.Second, cfg.Ingest.Retry.BaseDelay)
	require.Equal(t, 30*time.Second, cfg.Ingest.RateLimit.MaxWait)
	require.Equal(t, 90*time.Second, cfg.Ingest.HydrateBudget)
	require.True(t, cfg.Ingest.Render.IsHeadless())
	require.Equal(t, domain.RetentionSoft, cfg.Retention.Policy)
	require.Equal(t, 90*24*time.Hour, cfg.Retention.PurgeAfter)
	require.Len(t, cfg.Companies, 2)

	_, v := NormalizeAndValidate(cfg)
	require.True(t, v.OK(), v.Errors)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, "ingest:\n  workers: 9\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Ingest.Workers)
	require.Equal(t, Default().Ingest.Interval, cfg.Ingest.Interval)
	require.Equal(t, Default().Retention, cfg.Retention)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	writeFile(t, path, "app:\n  data_dir: ./here\n")
	t.Setenv("ENGINE_DATA_DIR", "/var/lib/engine")
	t.Setenv("ENGINE_STORE_DSN", "postgres://u@db/jobs")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/engine", cfg.App.DataDir)
	require.Equal(t, "postgres://u@db/jobs", cfg.Store.DSN)
}

func TestNormalizeAndValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = " Postgres "
	cfg.Retention.Policy = "archive"
	cfg.Sinks.Kafka.Enabled = true
	cfg.Sinks.Kafka.Brokers = []string{" ", ""}
	cfg.Companies = []domain.CompanyInput{
		{Name: "A", JobBoardURL: "https://jobs.ashbyhq.com/a", SourceType: "ashby"},
		{Name: "A again", JobBoardURL: "https://jobs.ashbyhq.com/a", SourceType: "ashby"},
		{Name: "", JobBoardURL: "nope", SourceType: "lever"},
	}

	out, v := NormalizeAndValidate(cfg)
	require.False(t, v.OK())
	require.Equal(t, "postgres", out.Store.Driver)
	require.Empty(t, out.Sinks.Kafka.Brokers)

	errs := strings.Join(v.Errors, "\n")
	require.Contains(t, errs, "store.dsn is required")
	require.Contains(t, errs, "retention.policy must be soft or hard")
	require.Contains(t, errs, "sinks.kafka.brokers is required")
	require.Contains(t, errs, "companies[2]")
	require.Contains(t, strings.Join(v.Warnings, "\n"), "companies[1] repeats")
}

func TestValidateHydrateBudget(t *testing.T) {
	cfg := Default()
	cfg.Ingest.HydrateDetails = true
	_, v := NormalizeAndValidate(cfg)
	require.True(t, v.OK(), v.Errors)
	require.NotContains(t, strings.Join(v.Warnings, "\n"), "hydrate_budget")

	cfg.Ingest.HydrateBudget = cfg.Ingest.CompanyTimeout
	_, v = NormalizeAndValidate(cfg)
	require.True(t, v.OK(), v.Errors)
	require.Contains(t, strings.Join(v.Warnings, "\n"), "ingest.hydrate_budget should be below ingest.company_timeout")

	cfg.Ingest.HydrateBudget = -time.Second
	_, v = NormalizeAndValidate(cfg)
	require.Contains(t, strings.Join(v.Errors, "\n"), "ingest.hydrate_budget cannot be negative")
}

func TestSaveAtomicKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	writeFile(t, path, "old: true\n")

	cfg := Default()
	cfg.Ingest.Workers = 7
	require.NoError(t, SaveAtomic(path, cfg))

	bak, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	require.Equal(t, "old: true\n", string(bak))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, got.Ingest.Workers)
	require.Equal(t, cfg.Ingest.Interval, got.Ingest.Interval)

	cfg.Ingest.Workers = 0
	require.Error(t, SaveAtomic(path, cfg))
}

func TestEnsureUserConfigCopiesOnce(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "default.yml")
	writeFile(t, def, "ingest:\n  workers: 2\n")

	dataDir := filepath.Join(dir, "data")
	p, err := EnsureUserConfig(dataDir, def)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dataDir, "config.yml"), p)

	writeFile(t, p, "ingest:\n  workers: 5\n")
	p2, err := EnsureUserConfig(dataDir, def)
	require.NoError(t, err)
	b, err := os.ReadFile(p2)
	require.NoError(t, err)
	require.Contains(t, string(b), "workers: 5")
}

func TestOverlayCompanies(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Companies = []domain.CompanyInput{{Name: "Base"}}

	require.NoError(t, OverlayCompanies(&cfg, filepath.Join(dir, "missing.yml")))
	require.Equal(t, "Base", cfg.Companies[0].Name)

	path := filepath.Join(dir, "companies.yml")
	writeFile(t, path, "companies:\n  - name: Acme\n    job_board_url: https://acme.com/careers\n    source_type: other\n    listing_selector: .jobs\n")
	require.NoError(t, OverlayCompanies(&cfg, path))
	require.Len(t, cfg.Companies, 1)
	require.Equal(t, "Acme", cfg.Companies[0].Name)
	require.Equal(t, ".jobs", cfg.Companies[0].ListingSelector)

	writeFile(t, path, "companies: [")
	require.Error(t, OverlayCompanies(&cfg, path))
}
