package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mergd/curro-sub001/internal/domain"
)

const jobColumns = `j.id, j.external_id, j.company_id, c.name, j.title, j.url, j.locations,
  j.comp_min, j.comp_max, j.comp_currency, j.comp_type,
  j.department, j.description, j.requirements, j.source,
  j.first_seen_at, j.last_seen_at, j.removed_at`

const jobsFrom = ` FROM jobs j JOIN companies c ON c.id = j.company_id`

func scanJob(s scanner) (domain.JobRecord, error) {
	var (
		j                   domain.JobRecord
		locations           string
		compMin, compMax    sql.NullFloat64
		currency, compType  string
		firstSeen, lastSeen string
		removedAt           sql.NullString
	)
	if err := s.Scan(&j.ID, &j.ExternalID, &j.CompanyID, &j.CompanyName, &j.Title, &j.URL, &locations,
		&compMin, &compMax, &currency, &compType,
		&j.Department, &j.Description, &j.Requirements, &j.Source,
		&firstSeen, &lastSeen, &removedAt); err != nil {
		return domain.JobRecord{}, err
	}
	if err := json.Unmarshal([]byte(locations), &j.Locations); err != nil {
		return domain.JobRecord{}, fmt.Errorf("job %d locations: %w", j.ID, err)
	}
	if len(j.Locations) == 0 {
		j.Locations = nil
	}
	if compMin.Valid || compMax.Valid || currency != "" || compType != "" {
		c := &domain.Compensation{Currency: currency, Type: domain.CompensationType(compType)}
		if compMin.Valid {
			c.Min = &compMin.Float64
		}
		if compMax.Valid {
			c.Max = &compMax.Float64
		}
		j.Compensation = c
	}
	j.FirstSeenAt = parseTime(firstSeen)
	j.LastSeenAt = parseTime(lastSeen)
	if removedAt.Valid {
		t := parseTime(removedAt.String)
		j.RemovedAt = &t
	}
	return j, nil
}

func compArgs(c *domain.Compensation) (minV, maxV any, currency, typ string) {
	if c == nil {
		return nil, nil, "", ""
	}
	if c.Min != nil {
		minV = *c.Min
	}
	if c.Max != nil {
		maxV = *c.Max
	}
	return minV, maxV, c.Currency, string(c.Type)
}

func locationsJSON(locs []string) string {
	if len(locs) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(locs)
	return string(b)
}

// ListByCompany returns the company's live postings.
func (d *DB) ListByCompany(ctx context.Context, companyID int64) ([]domain.JobRecord, error) {
	return d.queryJobs(ctx, `SELECT `+jobColumns+jobsFrom+`
WHERE j.company_id = ? AND j.removed_at IS NULL
ORDER BY j.id;`, companyID)
}

func (d *DB) ListJobs(ctx context.Context, q domain.JobQuery) ([]domain.JobRecord, error) {
	query := `SELECT ` + jobColumns + jobsFrom + ` WHERE 1=1`
	var args []any
	if q.CompanyID > 0 {
		query += ` AND j.company_id = ?`
		args = append(args, q.CompanyID)
	}
	if !q.IncludeRemoved {
		query += ` AND j.removed_at IS NULL`
	}
	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += ` ORDER BY j.first_seen_at DESC, j.id DESC LIMIT ? OFFSET ?;`
	args = append(args, limit, max(q.Offset, 0))
	return d.queryJobs(ctx, query, args...)
}

func (d *DB) GetJob(ctx context.Context, id int64) (domain.JobRecord, error) {
	j, err := scanJob(d.Pool.QueryRowContext(ctx, `SELECT `+jobColumns+jobsFrom+` WHERE j.id = ?;`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.JobRecord{}, ErrNotFound
	}
	return j, err
}

func (d *DB) queryJobs(ctx context.Context, q string, args ...any) ([]domain.JobRecord, error) {
	rows, err := d.Pool.QueryContext(ctx, q, args...)
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

// Upsert writes rec keyed by (company_id, url). The insert-or-compare
// decision runs in one transaction, so concurrent callers never create a
// duplicate and an unchanged posting costs no content write.
func (d *DB) Upsert(ctx context.Context, rec domain.JobRecord) (domain.UpsertResult, error) {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return domain.UpsertResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	seen := formatTime(rec.LastSeenAt)
	first := formatTime(rec.FirstSeenAt)
	cmin, cmax, ccur, ctyp := compArgs(rec.Compensation)

	res, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO jobs(external_id, company_id, title, url, locations, comp_min, comp_max, comp_currency, comp_type,
  department, description, requirements, source, first_seen_at, last_seen_at)
VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
		rec.ExternalID, rec.CompanyID, rec.Title, rec.URL, locationsJSON(rec.Locations), cmin, cmax, ccur, ctyp,
		rec.Department, rec.Description, rec.Requirements, rec.Source, first, seen)
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("insert job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		id, err := res.LastInsertId()
		if err != nil {
			return domain.UpsertResult{}, err
		}
		if err := tx.Commit(); err != nil {
			return domain.UpsertResult{}, err
		}
		rec.ID = id
		rec.RemovedAt = nil
		return domain.UpsertResult{Action: domain.ActionInserted, Record: rec}, nil
	}

	cur, err := scanJob(tx.QueryRowContext(ctx, `SELECT `+jobColumns+jobsFrom+` WHERE j.company_id = ? AND j.url = ?;`,
		rec.CompanyID, rec.URL))
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
		_, err = tx.ExecContext(ctx, `UPDATE jobs SET last_seen_at = ? WHERE id = ?;`, seen, cur.ID)
	} else {
		_, err = tx.ExecContext(ctx, `
UPDATE jobs
SET title = ?, locations = ?, comp_min = ?, comp_max = ?, comp_currency = ?, comp_type = ?,
    department = ?, description = ?, requirements = ?, source = ?, last_seen_at = ?, removed_at = NULL
WHERE id = ?;`,
			rec.Title, locationsJSON(rec.Locations), cmin, cmax, ccur, ctyp,
			rec.Department, rec.Description, rec.Requirements, rec.Source, seen, cur.ID)
	}
	if err != nil {
		return domain.UpsertResult{}, fmt.Errorf("update job: %w", err)
	}
	if err := tx.Commit(); err != nil {
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
	out.LastSeenAt = parseTime(seen)
	return domain.UpsertResult{Action: action, Record: out}, nil
}

func (d *DB) Touch(ctx context.Context, companyID int64, urls []string, seenAt time.Time) error {
	if len(urls) == 0 {
		return nil
	}
	args := append([]any{formatTime(seenAt), companyID}, stringArgs(urls)...)
	_, err := d.Pool.ExecContext(ctx, `
UPDATE jobs SET last_seen_at = ?
WHERE company_id = ? AND url IN (`+placeholders(len(urls))+`);`, args...)
	return err
}

// MarkRemoved retires postings that are no longer listed. Soft retention
// stamps removed_at; hard retention deletes the rows.
func (d *DB) MarkRemoved(ctx context.Context, companyID int64, urls []string, at time.Time, policy domain.Retention) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}
	var (
		res sql.Result
		err error
	)
	if policy == domain.RetentionHard {
		args := append([]any{companyID}, stringArgs(urls)...)
		res, err = d.Pool.ExecContext(ctx, `
DELETE FROM jobs WHERE company_id = ? AND url IN (`+placeholders(len(urls))+`);`, args...)
	} else {
		args := append([]any{formatTime(at), companyID}, stringArgs(urls)...)
		res, err = d.Pool.ExecContext(ctx, `
UPDATE jobs SET removed_at = ?
WHERE company_id = ? AND removed_at IS NULL AND url IN (`+placeholders(len(urls))+`);`, args...)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// PurgeRemoved deletes soft-removed postings retired before cutoff.
func (d *DB) PurgeRemoved(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM jobs WHERE removed_at IS NOT NULL AND removed_at < ?;`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func stringArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
