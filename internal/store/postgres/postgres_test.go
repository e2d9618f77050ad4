package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mergd/curro-sub001/internal/domain"
)

// Runs only against a scratch database: ENGINE_TEST_PG_DSN=postgres://...
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("ENGINE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("ENGINE_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn, 2, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(ctx, db.Pool))
	_, err = db.Pool.Exec(ctx, `TRUNCATE jobs, companies RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func TestUpsertLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	co, created, err := db.UpsertCompanyByBoardURL(ctx, domain.Company{
		Name: "Acme", JobBoardURL: "https://jobs.ashbyhq.com/acme", SourceType: domain.SourceAshby, Active: true,
	})
	require.NoError(t, err)
	require.True(t, created)

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := domain.JobRecord{
		ExternalID: "ext-1", CompanyID: co.ID, CompanyName: co.Name,
		Title: "Engineer", URL: "https://jobs.ashbyhq.com/acme/1", Locations: []string{"Remote"},
		Source: "ashby", FirstSeenAt: t0, LastSeenAt: t0,
	}
	res, err := db.Upsert(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, domain.ActionInserted, res.Action)

	rec.LastSeenAt = t0.Add(time.Hour)
	res, err = db.Upsert(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, domain.ActionUnchanged, res.Action)

	rec.Title = "Staff Engineer"
	res, err = db.Upsert(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, domain.ActionUpdated, res.Action)

	n, err := db.MarkRemoved(ctx, co.ID, []string{rec.URL}, t0.Add(2*time.Hour), domain.RetentionSoft)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	live, err := db.ListByCompany(ctx, co.ID)
	require.NoError(t, err)
	require.Empty(t, live)

	res, err = db.Upsert(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, domain.ActionRestored, res.Action)
}
