package greenhouse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/fetch"
	"github.com/mergd/curro-sub001/internal/logger"
)

const legacyBoard = `<html><body><div id="main">
<section class="level-0">
  <h3 id="4001">Engineering</h3>
  <div class="opening" department_id="4001">
    <a data-mapped="true" href="/acme/jobs/5012345">Backend Engineer</a>
    <span class="location">New York, NY</span>
  </div>
  <div class="opening" department_id="4001">
    <a href="/acme/jobs/5012346?gh_src=abc&amp;utm_source=li">Site Reliability Engineer</a>
    <span class="location">Remote</span>
  </div>
</section>
<section class="level-0">
  <h3 id="4002">Sales</h3>
  <div class="opening">
    <span class="title">Account Executive</span>
    <a href="/acme/jobs/5012347">View job</a>
    <span class="location">London</span>
  </div>
</section>
<a href="/acme/jobs/5012345">Backend Engineer</a>
<a href="https://www.acme.com/privacy">Privacy</a>
</div></body></html>`

func TestParseLegacyBoard(t *testing.T) {
	got, err := Parse(legacyBoard, "https://boards.greenhouse.io/acme")
	require.NoError(t, err)
	require.Equal(t, []domain.RawPosting{
		{Title: "Backend Engineer", URL: "https://boards.greenhouse.io/acme/jobs/5012345", Location: "New York, NY", Department: "Engineering"},
		{Title: "Site Reliability Engineer", URL: "https://boards.greenhouse.io/acme/jobs/5012346?gh_src=abc", Location: "Remote", Department: "Engineering"},
		{Title: "Account Executive", URL: "https://boards.greenhouse.io/acme/jobs/5012347", Location: "London", Department: "Sales"},
	}, got)
}

const newBoard = `<html><body><div class="job-posts">
<h3 class="section-header">Design</h3>
<table><tbody>
<tr class="job-post"><td class="cell">
  <a href="https://job-boards.greenhouse.io/acme/jobs/7001">
    <p class="body body--medium">Staff Product Designer</p>
    <p class="body body__secondary body--metadata">Remote, US</p>
  </a>
</td></tr>
</tbody></table></div></body></html>`

func TestParseJobBoardsLayout(t *testing.T) {
	got, err := Parse(newBoard, "https://job-boards.greenhouse.io/acme")
	require.NoError(t, err)
	require.Equal(t, []domain.RawPosting{
		{Title: "Staff Product Designer", URL: "https://job-boards.greenhouse.io/acme/jobs/7001", Location: "Remote, US", Department: "Design"},
	}, got)
}

func TestScrapeHydratesDetails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/acme", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="opening"><a href="/acme/jobs/1">Apply</a></div><div class="opening"><a href="/acme/jobs/2">Data Engineer</a></div><div class="opening"><a href="/acme/jobs/3">Apply</a></div></body></html>`))
	})
	mux.HandleFunc("/acme/jobs/1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>ML Engineer</h1><div class="location">Berlin</div><div id="content"><p>Build models.</p></div><div class="pay-range">$150,000 - $180,000 USD</div></body></html>`))
	})
	mux.HandleFunc("/acme/jobs/2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h1>Ignored</h1><div class="job__description">Pipelines</div></body></html>`))
	})
	mux.HandleFunc("/acme/jobs/3", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(fetch.NewFetcher(srv.Client()), Options{Hydrate: true}, logger.Discard())
	got, err := s.Scrape(context.Background(), domain.Company{Name: "Acme", JobBoardURL: srv.URL + "/acme"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.Equal(t, "ML Engineer", got[0].Title)
	require.False(t, got[0].Partial)
	require.Equal(t, "Berlin", got[0].Location)
	require.Equal(t, "<p>Build models.</p>", got[0].Description)
	require.Equal(t, "$150,000 - $180,000 USD", got[0].Compensation)

	require.Equal(t, "Data Engineer", got[1].Title)
	require.Equal(t, "Pipelines", got[1].Description)

	// left for Normalize to reject
	require.Empty(t, got[2].Title)
	require.True(t, got[2].Partial)
}

func TestScrapeHydrateBudgetReturnsListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/acme", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="opening"><a href="/acme/jobs/1">Data Engineer</a><span class="location">Remote</span></div><div class="opening"><a href="/acme/jobs/2">Designer</a></div></body></html>`))
	})
	mux.HandleFunc("/acme/jobs/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(fetch.NewFetcher(srv.Client()), Options{Hydrate: true, HydrateBudget: 50 * time.Millisecond}, logger.Discard())
	got, err := s.Scrape(context.Background(), domain.Company{Name: "Acme", JobBoardURL: srv.URL + "/acme"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "Data Engineer", got[0].Title)
	require.Equal(t, "Remote", got[0].Location)
	require.Equal(t, "Designer", got[1].Title)
	for _, p := range got {
		require.True(t, p.Partial)
		require.Empty(t, p.Description)
	}
}

func TestScrapeHydrateStopsWithCaller(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/acme", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="opening"><a href="/acme/jobs/1">Data Engineer</a></div></body></html>`))
	})
	mux.HandleFunc("/acme/jobs/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s := New(fetch.NewFetcher(srv.Client()), Options{Hydrate: true, HydrateBudget: time.Minute}, logger.Discard())
	_, err := s.Scrape(ctx, domain.Company{Name: "Acme", JobBoardURL: srv.URL + "/acme"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScrapeBoardDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := New(fetch.NewFetcher(srv.Client()), Options{}, logger.Discard())
	_, err := s.Scrape(context.Background(), domain.Company{JobBoardURL: srv.URL + "/acme"})
	require.Equal(t, domain.KindFetch, domain.KindOf(err))
	require.True(t, domain.Retryable(err))
}
