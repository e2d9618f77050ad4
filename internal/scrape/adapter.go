// Package scrape turns a company's job board into raw postings. Each board
// vendor has its own Adapter; the Registry picks one by source type.
package scrape

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mergd/curro-sub001/internal/domain"
)

type Adapter interface {
	Name() string
	Scrape(ctx context.Context, co domain.Company) ([]domain.RawPosting, error)
}

// Fetcher is the static-HTML path. *fetch.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Registry struct {
	adapters map[domain.SourceType]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: map[domain.SourceType]Adapter{}}
}

func (r *Registry) Register(st domain.SourceType, a Adapter) {
	r.adapters[st] = a
}

// For returns the adapter for st. Nothing is fetched here; an unknown
// source type is a configuration error.
func (r *Registry) For(st domain.SourceType) (Adapter, error) {
	if a, ok := r.adapters[st]; ok {
		return a, nil
	}
	return nil, domain.ConfigurationError("adapter lookup",
		fmt.Errorf("no adapter for source type %q (have %s)", st, strings.Join(r.names(), ", ")))
}

func (r *Registry) names() []string {
	out := make([]string, 0, len(r.adapters))
	for st := range r.adapters {
		out = append(out, string(st))
	}
	sort.Strings(out)
	return out
}
