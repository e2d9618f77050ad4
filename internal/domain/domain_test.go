package domain_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mergd/curro-sub001/internal/domain"
)

func TestCompanyInputValidate(t *testing.T) {
	c, err := domain.CompanyInput{
		Name:        "  Acme   Robotics ",
		JobBoardURL: " https://jobs.ashbyhq.com/acme ",
		SourceType:  "Ashby",
	}.Validate()
	require.NoError(t, err)
	require.Equal(t, "Acme Robotics", c.Name)
	require.Equal(t, "https://jobs.ashbyhq.com/acme", c.JobBoardURL)
	require.Equal(t, domain.SourceAshby, c.SourceType)
	require.True(t, c.Active)
}

func TestCompanyInputValidateRejects(t *testing.T) {
	inactive := false
	tests := []struct {
		name string
		in   domain.CompanyInput
	}{
		{name: "missing name", in: domain.CompanyInput{JobBoardURL: "https://x.io/jobs", SourceType: "other"}},
		{name: "relative board url", in: domain.CompanyInput{Name: "X", JobBoardURL: "/jobs", SourceType: "other"}},
		{name: "ftp board url", in: domain.CompanyInput{Name: "X", JobBoardURL: "ftp://x.io/jobs", SourceType: "other"}},
		{name: "unknown source", in: domain.CompanyInput{Name: "X", JobBoardURL: "https://x.io", SourceType: "lever", Active: &inactive}},
		{name: "selector on ashby", in: domain.CompanyInput{Name: "X", JobBoardURL: "https://x.io", SourceType: "ashby", ListingSelector: "#jobs"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.in.Validate()
			require.Error(t, err)
			require.Equal(t, domain.KindConfiguration, domain.KindOf(err))
			require.False(t, domain.Retryable(err))
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "network", err: domain.NetworkError("get", "u", fmt.Errorf("reset")), want: true},
		{name: "render timeout", err: domain.RenderTimeoutError("render", "u", context.DeadlineExceeded), want: true},
		{name: "throttled", err: domain.ThrottledError("wait", "u", fmt.Errorf("queue full")), want: true},
		{name: "fetch 503", err: domain.FetchError("get", "u", http.StatusServiceUnavailable), want: true},
		{name: "fetch 429", err: domain.FetchError("get", "u", http.StatusTooManyRequests), want: true},
		{name: "fetch 404", err: domain.FetchError("get", "u", http.StatusNotFound), want: false},
		{name: "parse", err: domain.ParseError("parse", "u", fmt.Errorf("bad")), want: false},
		{name: "configuration", err: domain.ConfigurationError("adapter", fmt.Errorf("unknown")), want: false},
		{name: "wrapped network", err: fmt.Errorf("scrape: %w", domain.NetworkError("get", "u", fmt.Errorf("eof"))), want: true},
		{name: "plain", err: fmt.Errorf("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, domain.Retryable(tt.err))
		})
	}
}

func TestKindOf(t *testing.T) {
	require.Equal(t, domain.KindCanceled, domain.KindOf(context.Canceled))
	require.Equal(t, domain.KindUnknown, domain.KindOf(fmt.Errorf("x")))
	require.Equal(t, domain.KindFetch, domain.KindOf(fmt.Errorf("wrap: %w", domain.FetchError("get", "u", 500))))
	require.Equal(t, domain.ErrorKind(""), domain.KindOf(nil))
}

func TestJobRecordSameContent(t *testing.T) {
	lo, hi := 100.0, 200.0
	a := domain.JobRecord{
		Title:        "Engineer",
		Locations:    []string{"Remote"},
		Compensation: &domain.Compensation{Min: &lo, Max: &hi, Currency: "USD", Type: domain.CompensationAnnual},
	}
	b := a
	b.ID = 7
	b.LastSeenAt = b.LastSeenAt.AddDate(0, 0, 1)
	require.True(t, a.SameContent(b))

	hi2 := 250.0
	b.Compensation = &domain.Compensation{Min: &lo, Max: &hi2, Currency: "USD", Type: domain.CompensationAnnual}
	require.False(t, a.SameContent(b))

	c := a
	c.Locations = []string{"Remote", "NYC"}
	require.False(t, a.SameContent(c))
}
