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

const companyColumns = `id, name, website, job_board_url, source_type, listing_selector, active, details, created_at, updated_at`

func scanCompany(s scanner) (domain.Company, error) {
	var (
		c                    domain.Company
		st, details          string
		active               int
		createdAt, updatedAt string
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Website, &c.JobBoardURL, &st, &c.ListingSelector, &active, &details, &createdAt, &updatedAt); err != nil {
		return domain.Company{}, err
	}
	c.SourceType = domain.SourceType(st)
	c.Active = active != 0
	if details != "" {
		c.Details = json.RawMessage(details)
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}

func (d *DB) ListCompanies(ctx context.Context, activeOnly bool) ([]domain.Company, error) {
	q := `SELECT ` + companyColumns + ` FROM companies`
	if activeOnly {
		q += ` WHERE active = 1`
	}
	q += ` ORDER BY name COLLATE NOCASE, id;`

	rows, err := d.Pool.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) GetCompany(ctx context.Context, id int64) (domain.Company, error) {
	c, err := scanCompany(d.Pool.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = ?;`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Company{}, ErrNotFound
	}
	return c, err
}

func (d *DB) CreateCompany(ctx context.Context, c domain.Company) (domain.Company, error) {
	now := formatTime(time.Now())
	res, err := d.Pool.ExecContext(ctx, `
INSERT INTO companies(name, website, job_board_url, source_type, listing_selector, active, created_at, updated_at)
VALUES(?,?,?,?,?,?,?,?);`,
		c.Name, c.Website, c.JobBoardURL, string(c.SourceType), c.ListingSelector, boolInt(c.Active), now, now)
	if isUniqueViolation(err) {
		return domain.Company{}, fmt.Errorf("company with job board %q: %w", c.JobBoardURL, ErrConflict)
	}
	if err != nil {
		return domain.Company{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Company{}, err
	}
	return d.GetCompany(ctx, id)
}

func (d *DB) UpdateCompany(ctx context.Context, id int64, c domain.Company) (domain.Company, error) {
	res, err := d.Pool.ExecContext(ctx, `
UPDATE companies
SET name = ?, website = ?, job_board_url = ?, source_type = ?, listing_selector = ?, active = ?, updated_at = ?
WHERE id = ?;`,
		c.Name, c.Website, c.JobBoardURL, string(c.SourceType), c.ListingSelector, boolInt(c.Active), formatTime(time.Now()), id)
	if isUniqueViolation(err) {
		return domain.Company{}, fmt.Errorf("company with job board %q: %w", c.JobBoardURL, ErrConflict)
	}
	if err != nil {
		return domain.Company{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Company{}, ErrNotFound
	}
	return d.GetCompany(ctx, id)
}

// DeleteCompany removes the company and, by cascade, its jobs.
func (d *DB) DeleteCompany(ctx context.Context, id int64) error {
	res, err := d.Pool.ExecContext(ctx, `DELETE FROM companies WHERE id = ?;`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertCompanyByBoardURL seeds a company from config. The job-board URL is
// the natural key; other fields are overwritten.
func (d *DB) UpsertCompanyByBoardURL(ctx context.Context, c domain.Company) (domain.Company, bool, error) {
	now := formatTime(time.Now())
	res, err := d.Pool.ExecContext(ctx, `
INSERT OR IGNORE INTO companies(name, website, job_board_url, source_type, listing_selector, active, created_at, updated_at)
VALUES(?,?,?,?,?,?,?,?);`,
		c.Name, c.Website, c.JobBoardURL, string(c.SourceType), c.ListingSelector, boolInt(c.Active), now, now)
	if err != nil {
		return domain.Company{}, false, err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		id, err := res.LastInsertId()
		if err != nil {
			return domain.Company{}, false, err
		}
		got, err := d.GetCompany(ctx, id)
		return got, true, err
	}

	if _, err := d.Pool.ExecContext(ctx, `
UPDATE companies
SET name = ?, website = ?, source_type = ?, listing_selector = ?, active = ?, updated_at = ?
WHERE job_board_url = ?;`,
		c.Name, c.Website, string(c.SourceType), c.ListingSelector, boolInt(c.Active), now, c.JobBoardURL); err != nil {
		return domain.Company{}, false, err
	}
	got, err := scanCompany(d.Pool.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE job_board_url = ?;`, c.JobBoardURL))
	return got, false, err
}

// SetCompanyDetails stores enrichment output on the company.
func (d *DB) SetCompanyDetails(ctx context.Context, id int64, details json.RawMessage) error {
	res, err := d.Pool.ExecContext(ctx, `UPDATE companies SET details = ?, updated_at = ? WHERE id = ?;`,
		string(details), formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
