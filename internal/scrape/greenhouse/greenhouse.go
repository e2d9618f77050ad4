// Package greenhouse scrapes boards.greenhouse.io and job-boards.greenhouse.io
// listings.
package greenhouse

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/scrape"
	"github.com/mergd/curro-sub001/internal/scrape/util"
)

var jobPathRe = regexp.MustCompile(`/jobs/\d+`)

type Options struct {
	// Hydrate fetches every job page for description and location.
	Hydrate bool

	// HydrateBudget caps the time spent on detail pages per board. Postings
	// not reached in time are returned as listed. Zero means no cap.
	HydrateBudget time.Duration
}

type Scraper struct {
	f    scrape.Fetcher
	opts Options
	log  *slog.Logger
}

func New(f scrape.Fetcher, opts Options, log *slog.Logger) *Scraper {
	return &Scraper{f: f, opts: opts, log: log}
}

func (s *Scraper) Name() string { return "greenhouse" }

func (s *Scraper) Scrape(ctx context.Context, co domain.Company) ([]domain.RawPosting, error) {
	page, err := s.f.Fetch(ctx, co.JobBoardURL)
	if err != nil {
		return nil, err
	}
	jobs, err := Parse(page, co.JobBoardURL)
	if err != nil {
		return nil, err
	}

	if s.opts.Hydrate {
		s.hydrateAll(ctx, co, jobs)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

// hydrateAll fills postings from their detail pages in listing order. Any
// posting left without its detail page is marked Partial.
func (s *Scraper) hydrateAll(ctx context.Context, co domain.Company, jobs []domain.RawPosting) {
	hctx := ctx
	if s.opts.HydrateBudget > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(ctx, s.opts.HydrateBudget)
		defer cancel()
	}
	for i := range jobs {
		if hctx.Err() != nil {
			for k := i; k < len(jobs); k++ {
				jobs[k].Partial = true
			}
			s.log.Warn("greenhouse hydrate budget spent", "company", co.Name, "hydrated", i, "total", len(jobs))
			return
		}
		if err := s.hydrate(hctx, &jobs[i]); err != nil {
			jobs[i].Partial = true
			if hctx.Err() == nil {
				s.log.Warn("greenhouse hydrate failed", "company", co.Name, "url", jobs[i].URL, "err", err)
			}
		}
	}
}

// Parse reads the listing page served at boardURL.
func Parse(page, boardURL string) ([]domain.RawPosting, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, domain.ParseError("greenhouse", boardURL, err)
	}

	seen := map[string]bool{}
	var jobs []domain.RawPosting
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs, err := util.ResolveURL(boardURL, href)
		if err != nil || !jobPathRe.MatchString(abs) || seen[abs] {
			return
		}
		seen[abs] = true

		opening := a.Closest(".opening, .job-post, tr, li")
		jobs = append(jobs, domain.RawPosting{
			Title:      titleOf(a, opening),
			URL:        abs,
			Location:   locationOf(a, opening),
			Department: departmentOf(a),
		})
	})
	return jobs, nil
}

func titleOf(a, opening *goquery.Selection) string {
	// job-boards.greenhouse.io wraps title and location in <p> tags
	if p := a.Find("p").First(); p.Length() > 0 {
		if t := util.CleanText(p.Text()); t != "" && !util.LooksLikeJunkTitle(t) {
			return t
		}
	}
	if t := util.CleanText(a.Text()); t != "" && !util.LooksLikeJunkTitle(t) {
		return t
	}
	// "View job" links: look for the opening's own title node
	if t := util.CleanText(opening.Find(".title, h4, h3").First().Text()); t != "" && !util.LooksLikeJunkTitle(t) {
		return t
	}
	return ""
}

func locationOf(a, opening *goquery.Selection) string {
	if t := util.CleanText(opening.Find(".location").First().Text()); t != "" {
		return t
	}
	if ps := a.Find("p"); ps.Length() > 1 {
		return util.CleanText(ps.Eq(1).Text())
	}
	return ""
}

func departmentOf(a *goquery.Selection) string {
	sec := a.Closest("section, .job-posts")
	if sec.Length() == 0 {
		return ""
	}
	return util.CleanText(sec.Find("h2, h3").First().Text())
}

func (s *Scraper) hydrate(ctx context.Context, j *domain.RawPosting) error {
	page, err := s.f.Fetch(ctx, j.URL)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return domain.ParseError("greenhouse hydrate", j.URL, err)
	}

	if j.Title == "" {
		j.Title = util.CleanText(doc.Find("h1").First().Text())
	}
	if j.Location == "" {
		j.Location = util.FindLocation(doc)
	}
	for _, sel := range []string{"#content", ".job__description", "[data-testid='job-description']"} {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if h, err := node.Html(); err == nil && strings.TrimSpace(h) != "" {
				j.Description = strings.TrimSpace(h)
				break
			}
		}
	}
	if j.Compensation == "" {
		j.Compensation = util.CleanText(doc.Find(".pay-range, .pay-input").First().Text())
	}
	return nil
}
