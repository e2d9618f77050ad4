package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/store"
)

const companyColumns = `id, name, website, job_board_url, source_type, listing_selector, active, details, created_at, updated_at`

func scanCompany(row pgx.Row) (domain.Company, error) {
	var (
		c       domain.Company
		st      string
		details []byte
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Website, &c.JobBoardURL, &st, &c.ListingSelector, &c.Active, &details, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Company{}, err
	}
	c.SourceType = domain.SourceType(st)
	if len(details) > 0 {
		c.Details = json.RawMessage(details)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func (d *DB) ListCompanies(ctx context.Context, activeOnly bool) ([]domain.Company, error) {
	q := `SELECT ` + companyColumns + ` FROM companies`
	if activeOnly {
		q += ` WHERE active`
	}
	q += ` ORDER BY lower(name), id`

	rows, err := d.Pool.Query(ctx, q)
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
	c, err := scanCompany(d.Pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	return c, notFound(err)
}

func (d *DB) CreateCompany(ctx context.Context, c domain.Company) (domain.Company, error) {
	got, err := scanCompany(d.Pool.QueryRow(ctx, `
INSERT INTO companies(name, website, job_board_url, source_type, listing_selector, active)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING `+companyColumns,
		c.Name, c.Website, c.JobBoardURL, string(c.SourceType), c.ListingSelector, c.Active))
	if isUniqueViolation(err) {
		return domain.Company{}, fmt.Errorf("company with job board %q: %w", c.JobBoardURL, store.ErrConflict)
	}
	return got, err
}

func (d *DB) UpdateCompany(ctx context.Context, id int64, c domain.Company) (domain.Company, error) {
	got, err := scanCompany(d.Pool.QueryRow(ctx, `
UPDATE companies
SET name = $1, website = $2, job_board_url = $3, source_type = $4, listing_selector = $5, active = $6, updated_at = now()
WHERE id = $7
RETURNING `+companyColumns,
		c.Name, c.Website, c.JobBoardURL, string(c.SourceType), c.ListingSelector, c.Active, id))
	if isUniqueViolation(err) {
		return domain.Company{}, fmt.Errorf("company with job board %q: %w", c.JobBoardURL, store.ErrConflict)
	}
	return got, notFound(err)
}

func (d *DB) DeleteCompany(ctx context.Context, id int64) error {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) UpsertCompanyByBoardURL(ctx context.Context, c domain.Company) (domain.Company, bool, error) {
	var created bool
	row := d.Pool.QueryRow(ctx, `
INSERT INTO companies(name, website, job_board_url, source_type, listing_selector, active)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (job_board_url) DO UPDATE SET
  name = excluded.name,
  website = excluded.website,
  source_type = excluded.source_type,
  listing_selector = excluded.listing_selector,
  active = excluded.active,
  updated_at = now()
RETURNING `+companyColumns+`, (xmax = 0)`,
		c.Name, c.Website, c.JobBoardURL, string(c.SourceType), c.ListingSelector, c.Active)

	var (
		got     domain.Company
		st      string
		details []byte
	)
	err := row.Scan(&got.ID, &got.Name, &got.Website, &got.JobBoardURL, &st, &got.ListingSelector, &got.Active, &details, &got.CreatedAt, &got.UpdatedAt, &created)
	if err != nil {
		return domain.Company{}, false, err
	}
	got.SourceType = domain.SourceType(st)
	if len(details) > 0 {
		got.Details = json.RawMessage(details)
	}
	return got, created, nil
}

func (d *DB) SetCompanyDetails(ctx context.Context, id int64, details json.RawMessage) error {
	tag, err := d.Pool.Exec(ctx, `UPDATE companies SET details = $1, updated_at = now() WHERE id = $2`, []byte(details), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
