package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/scrape/util"
)

// Renderer returns the DOM of a page after its scripts have run.
type Renderer interface {
	Render(ctx context.Context, url string, wait time.Duration) (string, error)
}

type RenderConfig struct {
	Timeout  time.Duration // hard cap per render, independent of retry backoff
	Wait     time.Duration // default settle time after navigation
	ExecPath string        // chrome binary; empty uses chromedp's lookup
	Headless bool
}

// ChromeRenderer starts a fresh headless browser for every call so a hung
// page never leaks into the next company.
type ChromeRenderer struct {
	cfg     RenderConfig
	limiter Limiter
}

func NewChromeRenderer(cfg RenderConfig, limiter Limiter) *ChromeRenderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 2 * time.Second
	}
	return &ChromeRenderer{cfg: cfg, limiter: limiter}
}

func (r *ChromeRenderer) Render(ctx context.Context, url string, wait time.Duration) (string, error) {
	if !domain.IsAbsoluteHTTPURL(url) {
		return "", domain.ConfigurationError("render", fmt.Errorf("not an absolute http(s) url: %q", url))
	}
	if wait <= 0 {
		wait = r.cfg.Wait
	}
	if r.limiter != nil {
		if err := r.limiter.WaitURL(ctx, url); err != nil {
			return "", err
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(util.UserAgent()),
		chromedp.Flag("headless", r.cfg.Headless),
		chromedp.WindowSize(1366, 900),
	)
	if r.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()
	tctx, cancel := context.WithTimeout(tabCtx, r.cfg.Timeout)
	defer cancel()

	var html string
	err := chromedp.Run(tctx,
		chromedp.Navigate(url),
		chromedp.Sleep(wait),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return "", domain.RenderTimeoutError("render", url, err)
		}
		return "", domain.NetworkError("render", url, err)
	}
	return html, nil
}
