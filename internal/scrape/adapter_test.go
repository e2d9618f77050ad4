package scrape

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mergd/curro-sub001/internal/domain"
)

type stubAdapter struct{ name string }

func (s stubAdapter) Name() string { return s.name }

func (s stubAdapter) Scrape(context.Context, domain.Company) ([]domain.RawPosting, error) {
	return nil, nil
}

func TestRegistryFor(t *testing.T) {
	r := NewRegistry()
	r.Register(domain.SourceAshby, stubAdapter{name: "ashby"})

	a, err := r.For(domain.SourceAshby)
	require.NoError(t, err)
	require.Equal(t, "ashby", a.Name())

	_, err = r.For("workday")
	require.Error(t, err)
	require.Equal(t, domain.KindConfiguration, domain.KindOf(err))
	require.Contains(t, err.Error(), "ashby")
}
