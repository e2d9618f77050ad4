package domain

import (
	"slices"
	"time"
)

// RawPosting is what an adapter reads off a board page, before
// normalization.
type RawPosting struct {
	Title        string
	URL          string
	Location     string
	Department   string
	Compensation string
	Description  string

	// Partial marks a posting whose detail page was not fetched this run.
	Partial bool
}

type CompensationType string

const (
	CompensationAnnual CompensationType = "annual"
	CompensationHourly CompensationType = "hourly"
)

type Compensation struct {
	Min      *float64         `json:"min,omitempty"`
	Max      *float64         `json:"max,omitempty"`
	Currency string           `json:"currency,omitempty"`
	Type     CompensationType `json:"type,omitempty"`
}

func (c *Compensation) Equal(o *Compensation) bool {
	if c == nil || o == nil {
		return c == nil && o == nil
	}
	return floatPtrEqual(c.Min, o.Min) && floatPtrEqual(c.Max, o.Max) &&
		c.Currency == o.Currency && c.Type == o.Type
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// JobRecord is the canonical, persisted posting. It is unique per
// (CompanyID, URL).
type JobRecord struct {
	ID           int64         `json:"id"`
	ExternalID   string        `json:"externalId"`
	CompanyID    int64         `json:"companyId"`
	CompanyName  string        `json:"companyName"`
	Title        string        `json:"title"`
	URL          string        `json:"url"`
	Locations    []string      `json:"locations,omitempty"`
	Compensation *Compensation `json:"compensation,omitempty"`
	Department   string        `json:"department,omitempty"`
	Description  string        `json:"description,omitempty"`
	Requirements string        `json:"requirements,omitempty"`
	Source       string        `json:"source"`
	FirstSeenAt  time.Time     `json:"firstSeenAt"`
	LastSeenAt   time.Time     `json:"lastSeenAt"`
	RemovedAt    *time.Time    `json:"removedAt,omitempty"`
	Partial      bool          `json:"-"`
}

// KeepDetails fills the fields a listing-only scrape cannot see from the
// stored record.
func (j JobRecord) KeepDetails(stored JobRecord) JobRecord {
	if j.Description == "" {
		j.Description = stored.Description
		j.Requirements = stored.Requirements
	}
	if len(j.Locations) == 0 {
		j.Locations = stored.Locations
	}
	if j.Compensation == nil {
		j.Compensation = stored.Compensation
	}
	if j.Department == "" {
		j.Department = stored.Department
	}
	return j
}

// SameContent reports whether the normalized fields match. Identity and
// bookkeeping timestamps are ignored.
func (j JobRecord) SameContent(o JobRecord) bool {
	return j.Title == o.Title &&
		slices.Equal(j.Locations, o.Locations) &&
		j.Compensation.Equal(o.Compensation) &&
		j.Department == o.Department &&
		j.Description == o.Description &&
		j.Requirements == o.Requirements
}
