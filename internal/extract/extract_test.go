package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const board = `<html><body>
<nav><a href="/about">About</a></nav>
<div id="jobs">
  <a href="/jobs/1">Engineer</a>
  <a href="/jobs/2#apply">Designer</a>
  <a href="/jobs/1">Engineer again</a>
  <a href="https://other.example.com/jobs/3">Remote PM</a>
  <a data-href="/jobs/4">Data role</a>
  <a xlink:href="/jobs/5">SVG role</a>
  <a href="#top">Top</a>
  <a href="mailto:jobs@example.com">Mail</a>
  <a href="javascript:void(0)">Load more</a>
  <a>no href</a>
</div>
</body></html>`

func TestAnchorsResolvesAndDedups(t *testing.T) {
	got := Anchors(board, "https://example.com/careers", "#jobs")
	require.Equal(t, []Anchor{
		{URL: "https://example.com/jobs/1", Text: "Engineer"},
		{URL: "https://example.com/jobs/2", Text: "Designer"},
		{URL: "https://other.example.com/jobs/3", Text: "Remote PM"},
		{URL: "https://example.com/jobs/4", Text: "Data role"},
		{URL: "https://example.com/jobs/5", Text: "SVG role"},
	}, got)
}

func TestLinksDefaultSelectorIsBody(t *testing.T) {
	got := Links(board, "https://example.com/careers", "")
	require.Equal(t, "https://example.com/about", got[0])
	require.Len(t, got, 6)
}

func TestLinksRelativeResolution(t *testing.T) {
	html := `<div class="list"><a href="/jobs/42">x</a></div>`
	require.Equal(t, []string{"https://jobs.example.com/jobs/42"},
		Links(html, "https://jobs.example.com/boards/x", ".list"))
}

func TestLinksContainerIsAnchor(t *testing.T) {
	html := `<a class="job" href="/jobs/7">A</a><a class="job" href="/jobs/8">B</a>`
	require.Equal(t, []string{"https://x.io/jobs/7", "https://x.io/jobs/8"},
		Links(html, "https://x.io/", "a.job"))
}

func TestLinksEmptyMatch(t *testing.T) {
	require.Empty(t, Links(board, "https://example.com", ".does-not-exist"))
}

func TestLinksInvalidSelector(t *testing.T) {
	require.Empty(t, Links(board, "https://example.com", "div[[["))
}

func TestLinksMalformedHTML(t *testing.T) {
	html := `<div id="jobs"><a href="/jobs/1">Eng<div><a href="/jobs/2">PM</p></span>`
	require.Equal(t, []string{"https://x.io/jobs/1", "https://x.io/jobs/2"},
		Links(html, "https://x.io", "#jobs"))
	require.Empty(t, Links("", "https://x.io", ""))
}
