package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mergd/curro-sub001/internal/domain"
)

const jobColumns = `j.id, j.external_id, j.company_id, c.name, j.title, j.url, j.locations,
  j.comp_min, j.comp_max, j.comp_currency, j.comp_type,
  j.department, j.description, j.requirements, j.source,
  j.first_seen_at, j.last_seen_at, j.removed_at`

const jobsFrom = ` FROM jobs j JOIN companies c ON c.id = j.company_id`

func scanJob(row pgx.Row) (domain.JobRecord, error) {
	var (
		j                  domain.JobRecord
		compMin, compMax   *float64
		currency, compType string
	)
	if err := row.Scan(&j.ID, &j.ExternalID, &j.CompanyID, &j.CompanyName, &j.Title, &j.URL, &j.Locations,
		&compMin, &compMax, &currency, &compType,
		&j.Department, &j.Description, &j.Requirements, &j.Source,
		&j.FirstSeenAt, &j.LastSeenAt, &j.RemovedAt); err != nil {
		return domain.JobRecord{}, err
	}
	if len(j.Locations) == 0 {
		j.Locations = nil
	}
	if compMin != nil || compMax != nil || currency != "" || compType != "" {
		j.Compensation = &domain.Compensation{Min: compMin, Max: compMax, Currency: currency, Type: domain.CompensationType(compType)}
	}
	j.FirstSeenAt = j.FirstSeenAt.UTC()
	j.LastSeenAt = j.LastSeenAt.UTC()
	if j.RemovedAt != nil {
		t := j.RemovedAt.UTC()
		j.RemovedAt = &t
	}
	return j, nil
}

func compArgs(c *domain.Compensation) (minV, maxV *float64, currency, typ string) {
	if c == nil {
		return nil, nil, "", ""
	}
	return c.Min, c.Max, c.Currency, string(c.Type)
}

func locations(locs []string) []string {
	if locs == nil {
		return []string{}
	}
	return locs
}

func (d *DB) ListByCompany(ctx context.Context, companyID int64) ([]domain.JobRecord, error) {
	return d.queryJobs(ctx, `SELECT `+jobColumns+jobsFrom+`
WHERE j.company_id = $1 AND j.removed_at IS NULL
ORDER BY j.id`, companyID)
}

func (d *DB) ListJobs(ctx context.Context, q domain.JobQuery) ([]domain.JobRecord, error) {
	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return d.queryJobs(ctx, `SELECT `+jobColumns+jobsFrom+`
WHERE ($1::bigint = 0 OR j.company_id = $1)
  AND ($2 OR j.removed_at IS NULL)
ORDER BY j.first_seen_at DESC, j.id DESC
LIMIT $3 OFFSET $4`, q.CompanyID, q.IncludeRemoved, limit, max(q.Offset, 0))
}

func (d *DB) GetJob(ctx context.Context, id int64) (domain.JobRecord, error) {
	j, err := scanJob(d.Pool.QueryRow(ctx, `SELECT `+jobColumns+jobsFrom+` WHERE j.id = $1`, id))
	return j, notFound(err)
}

func (d *DB) queryJobs(ctx context.Context, q string, args ...any) ([]domain.JobRecord, error) {
	rows, err := d.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Upsert inserts with ON CONFLICT DO NOTHING and, when the row exists,
// locks it with SELECT ... FOR UPDATE before comparing, so concurrent
// writers for one (company, url) serialize.
func (d *DB) Upsert(ctx context.Context, rec domain.JobRecord) (domain.UpsertResult, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return domain.UpsertResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cmin, cmax, ccur, ctyp := compArgs(rec.Compensation)

	var id int64
	err = tx.QueryRow(ctx, `
INSERT INTO jobs(external_id, company_id, title, url, locations, comp_min, comp_max, comp_currency, comp_type,
  department, description, requirements, source, first_seen_at, last_seen_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT DO NOTHING
RETURNING id`,
		rec.ExternalID, rec.CompanyID, rec.Title, rec.URL, locations(rec.Locations), cmin, cmax, ccur, ctyp,
		rec.Department, rec.Description, rec.Requirements, rec.Source, rec.FirstSeenAt, rec.LastSeenAt).Scan(&id)
	switch {
	case err == nil:
		if err := tx.Commit(ctx); err != nil {
			return domain.UpsertResult{}, err
		}
		rec.ID = id
		rec.RemovedAt = nil
		return domain.UpsertResult{Action: domain.ActionInserted, Record: rec}, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return domain.UpsertResult{}, fmt.Errorf("insert job: %w", err)
	}

	cur, err := scanJob(tx.QueryRow(ctx, `SELECT `+jobColumns+jobsFrom+`
WHERE j.company_id = $1 AND j.url = $2
FOR UPDATE OF j`, rec.CompanyID, rec.URL))
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("load job: %w", err)
	}

	if rec.Partial {
		rec = rec.KeepDetails(cur)
		cmin, cmax, ccur, ctyp = compArgs(rec.Compensation)
	}

	action := domain.ActionUpdated
	switch {
	case cur.RemovedAt != nil:
		action = domain.ActionRestored
	case cur.SameContent(rec):
		action = domain.ActionUnchanged
	}

	if action == domain.ActionUnchanged {
		_, err = tx.Exec(ctx, `UPDATE jobs SET last_seen_at = $1 WHERE id = $2`, rec.LastSeenAt, cur.ID)
	} else {
		_, err = tx.Exec(ctx, `
UPDATE jobs
SET title = $1, locations = $2, comp_min = $3, comp_max = $4, comp_currency = $5, comp_type = $6,
    department = $7, description = $8, requirements = $9, source = $10, last_seen_at = $11, removed_at = NULL
WHERE id = $12`,
			rec.Title, locations(rec.Locations), cmin, cmax, ccur, ctyp,
			rec.Department, rec.Description, rec.Requirements, rec.Source, rec.LastSeenAt, cur.ID)
	}
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("update job: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.UpsertResult{}, err
	}

	out := cur
	if action != domain.ActionUnchanged {
		out = rec
		out.ID = cur.ID
		out.ExternalID = cur.ExternalID
		out.FirstSeenAt = cur.FirstSeenAt
		out.RemovedAt = nil
	}
	out.LastSeenAt = rec.LastSeenAt.UTC()
	return domain.UpsertResult{Action: action, Record: out}, nil
}

func (d *DB) Touch(ctx context.Context, companyID int64, urls []string, seenAt time.Time) error {
	if len(urls) == 0 {
		return nil
	}
	_, err := d.Pool.Exec(ctx, `UPDATE jobs SET last_seen_at = $1 WHERE company_id = $2 AND url = ANY($3)`,
		seenAt, companyID, urls)
	return err
}

func (d *DB) MarkRemoved(ctx context.Context, companyID int64, urls []string, at time.Time, policy domain.Retention) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}
	q := `UPDATE jobs SET removed_at = $1 WHERE company_id = $2 AND removed_at IS NULL AND url = ANY($3)`
	args := []any{at, companyID, urls}
	if policy == domain.RetentionHard {
		q = `DELETE FROM jobs WHERE company_id = $1 AND url = ANY($2)`
		args = []any{companyID, urls}
	}
	tag, err := d.Pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (d *DB) PurgeRemoved(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM jobs WHERE removed_at IS NOT NULL AND removed_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
