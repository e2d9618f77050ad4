// Package generic scrapes career pages that build their listing client-side.
// The page is rendered in a headless browser and anchors are pulled out of
// either the company's configured container selector or the first
// heuristic container that yields posting-like links.
package generic

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/extract"
	"github.com/mergd/curro-sub001/internal/fetch"
)

var heuristicContainers = []string{
	"[data-job]",
	"#jobs",
	".jobs",
	"[class*=careers]",
	"main",
	"body",
}

var jobishPath = regexp.MustCompile(`(?i)(job|career|position|opening|role|vacanc)`)

type Scraper struct {
	r    fetch.Renderer
	wait time.Duration
	log  *slog.Logger
}

func New(r fetch.Renderer, wait time.Duration, log *slog.Logger) *Scraper {
	return &Scraper{r: r, wait: wait, log: log}
}

func (s *Scraper) Name() string { return "generic" }

func (s *Scraper) Scrape(ctx context.Context, co domain.Company) ([]domain.RawPosting, error) {
	page, err := s.r.Render(ctx, co.JobBoardURL, s.wait)
	if err != nil {
		return nil, err
	}

	if co.ListingSelector != "" {
		anchors := extract.Anchors(page, co.JobBoardURL, co.ListingSelector)
		if len(anchors) == 0 {
			s.log.Warn("listing selector matched no links", "company", co.Name, "selector", co.ListingSelector)
		}
		return toPostings(anchors), nil
	}

	for _, sel := range heuristicContainers {
		anchors := filterJobish(extract.Anchors(page, co.JobBoardURL, sel), co.JobBoardURL)
		if len(anchors) > 0 {
			s.log.Debug("generic container chosen", "company", co.Name, "selector", sel, "links", len(anchors))
			return toPostings(anchors), nil
		}
	}
	return nil, nil
}

// filterJobish keeps same-host links whose path looks like a posting and
// that are not the board page itself.
func filterJobish(anchors []extract.Anchor, boardURL string) []extract.Anchor {
	board, err := url.Parse(boardURL)
	if err != nil {
		return nil
	}
	host := strings.ToLower(board.Host)
	boardPath := strings.TrimRight(board.Path, "/")

	var out []extract.Anchor
	for _, a := range anchors {
		u, err := url.Parse(a.URL)
		if err != nil || u.Host != host {
			continue
		}
		p := strings.TrimRight(u.Path, "/")
		if p == boardPath || !jobishPath.MatchString(p) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func toPostings(anchors []extract.Anchor) []domain.RawPosting {
	out := make([]domain.RawPosting, 0, len(anchors))
	for _, a := range anchors {
		out = append(out, domain.RawPosting{Title: a.Text, URL: a.URL})
	}
	return out
}
