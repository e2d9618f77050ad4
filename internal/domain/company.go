package domain

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"
)

type SourceType string

const (
	SourceAshby      SourceType = "ashby"
	SourceGreenhouse SourceType = "greenhouse"
	SourceOther      SourceType = "other"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourceAshby, SourceGreenhouse, SourceOther:
		return true
	}
	return false
}

type Company struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Website         string          `json:"website"`
	JobBoardURL     string          `json:"jobBoardUrl"`
	SourceType      SourceType      `json:"sourceType"`
	ListingSelector string          `json:"listingSelector,omitempty"` // generic boards only
	Active          bool            `json:"active"`
	Details         json.RawMessage `json:"details,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// CompanyInput is the admin-facing create/update payload.
type CompanyInput struct {
	Name            string `json:"name" yaml:"name"`
	Website         string `json:"website" yaml:"website"`
	JobBoardURL     string `json:"jobBoardUrl" yaml:"job_board_url"`
	SourceType      string `json:"sourceType" yaml:"source_type"`
	ListingSelector string `json:"listingSelector" yaml:"listing_selector"`
	Active          *bool  `json:"active,omitempty" yaml:"active,omitempty"`
}

// Validate normalizes the input and returns the company it describes, or a
// configuration error listing every problem found.
func (in CompanyInput) Validate() (Company, error) {
	c := Company{
		Name:            strings.Join(strings.Fields(in.Name), " "),
		Website:         strings.TrimSpace(in.Website),
		JobBoardURL:     strings.TrimSpace(in.JobBoardURL),
		SourceType:      SourceType(strings.ToLower(strings.TrimSpace(in.SourceType))),
		ListingSelector: strings.TrimSpace(in.ListingSelector),
		Active:          true,
	}
	if in.Active != nil {
		c.Active = *in.Active
	}

	var problems []string
	if c.Name == "" {
		problems = append(problems, "name is required")
	}
	if !IsAbsoluteHTTPURL(c.JobBoardURL) {
		problems = append(problems, "jobBoardUrl must be an absolute http(s) URL")
	}
	if c.Website != "" && !IsAbsoluteHTTPURL(c.Website) {
		problems = append(problems, "website must be an absolute http(s) URL")
	}
	if !c.SourceType.Valid() {
		problems = append(problems, "sourceType must be one of ashby, greenhouse, other")
	}
	if c.ListingSelector != "" && c.SourceType != SourceOther {
		problems = append(problems, "listingSelector is only used by sourceType=other")
	}

	if len(problems) > 0 {
		return Company{}, ConfigurationError("validate company", errors.New(strings.Join(problems, "; ")))
	}
	return c, nil
}

func IsAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
