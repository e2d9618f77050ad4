// Package fetch retrieves job-board pages, either as static HTML or after
// rendering them in a headless browser.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/scrape/util"
)

const defaultMaxBody = 8 << 20

// Limiter gates outbound requests. *util.HostLimiter satisfies it.
type Limiter interface {
	WaitURL(ctx context.Context, raw string) error
}

type Fetcher struct {
	hc      *http.Client
	limiter Limiter
	maxBody int64
}

type Option func(*Fetcher)

func WithLimiter(l Limiter) Option { return func(f *Fetcher) { f.limiter = l } }

func WithMaxBody(n int64) Option { return func(f *Fetcher) { f.maxBody = n } }

// NewFetcher wraps hc. A nil client gets a 20s timeout client.
func NewFetcher(hc *http.Client, opts ...Option) *Fetcher {
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	f := &Fetcher{hc: hc, maxBody: defaultMaxBody}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch GETs url with browser-like headers and returns the response body.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if !domain.IsAbsoluteHTTPURL(url) {
		return "", domain.ConfigurationError("fetch", fmt.Errorf("not an absolute http(s) url: %q", url))
	}
	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, url); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", domain.ConfigurationError("fetch", err)
	}
	req.Header = util.BrowserHeaders()

	res, err := f.hc.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", domain.NetworkError("fetch", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, res.Body, 4<<10)
		return "", domain.FetchError("fetch", url, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, f.maxBody))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
		}
		return "", domain.NetworkError("read body", url, err)
	}
	return string(body), nil
}
