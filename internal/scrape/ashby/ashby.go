// Package ashby scrapes jobs.ashbyhq.com boards.
//
// The board page is matched with a deliberately narrow regular expression
// rather than a DOM walk: a posting is an <a> whose href sits under the
// board's own path (/<org>/<posting-id>), and its title is the first text
// node inside the anchor (the <h3>). The text node after it carries
// "Department • Location • Type" when present. If Ashby changes its markup
// the adapter returns nothing rather than garbage.
package ashby

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/scrape"
	"github.com/mergd/curro-sub001/internal/scrape/util"
)

var (
	anchorRe = regexp.MustCompile(`(?is)<a\b[^>]*?\bhref\s*=\s*["']([^"']+)["'][^>]*>(.*?)</a>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
)

type Scraper struct {
	f   scrape.Fetcher
	log *slog.Logger
}

func New(f scrape.Fetcher, log *slog.Logger) *Scraper {
	return &Scraper{f: f, log: log}
}

func (s *Scraper) Name() string { return "ashby" }

func (s *Scraper) Scrape(ctx context.Context, co domain.Company) ([]domain.RawPosting, error) {
	page, err := s.f.Fetch(ctx, co.JobBoardURL)
	if err != nil {
		return nil, err
	}
	out, err := Parse(page, co.JobBoardURL)
	if err != nil {
		return nil, err
	}
	s.log.Debug("ashby board parsed", "company", co.Name, "postings", len(out))
	return out, nil
}

// Parse extracts postings from an Ashby board page served at boardURL.
func Parse(page, boardURL string) ([]domain.RawPosting, error) {
	board, err := url.Parse(boardURL)
	if err != nil || board.Host == "" {
		return nil, domain.ConfigurationError("ashby", fmt.Errorf("bad board url %q", boardURL))
	}
	prefix := strings.TrimRight(board.Path, "/") + "/"
	host := strings.ToLower(board.Host)

	seen := map[string]bool{}
	var out []domain.RawPosting
	for _, m := range anchorRe.FindAllStringSubmatch(page, -1) {
		abs, err := util.ResolveURL(boardURL, html.UnescapeString(m[1]))
		if err != nil {
			continue
		}
		u, err := url.Parse(abs)
		if err != nil || u.Host != host || !strings.HasPrefix(u.Path, prefix) {
			continue
		}
		rest := strings.Trim(strings.TrimPrefix(u.Path, prefix), "/")
		// /<org>/<id>/application is the apply form for the same posting
		if rest == "" || strings.Contains(rest, "/") || seen[abs] {
			continue
		}

		texts := textNodes(m[2])
		if len(texts) == 0 || util.LooksLikeJunkTitle(texts[0]) {
			continue
		}
		seen[abs] = true

		p := domain.RawPosting{Title: texts[0], URL: abs}
		if len(texts) > 1 {
			p.Department, p.Location = splitMeta(texts[1])
		}
		out = append(out, p)
	}
	return out, nil
}

func textNodes(inner string) []string {
	var out []string
	for _, chunk := range tagRe.Split(inner, -1) {
		if t := util.CleanText(html.UnescapeString(chunk)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// splitMeta reads "Engineering • Remote • Full time". A single field is
// taken as the location.
func splitMeta(s string) (department, location string) {
	parts := strings.Split(s, "•")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) == 1 {
		return "", parts[0]
	}
	return parts[0], parts[1]
}
