// Package extract pulls links out of rendered or static board HTML.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mergd/curro-sub001/internal/scrape/util"
)

type Anchor struct {
	URL  string
	Text string
}

// attribute shapes a listing may carry its target in, in order of preference
var hrefAttrs = []string{"href", "data-href", "xlink:href"}

// Anchors returns the anchors inside the nodes matched by selector (body when
// empty), resolved against baseURL, deduplicated and in document order.
// Unparseable HTML or an invalid selector yields nil.
func Anchors(html, baseURL, selector string) []Anchor {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	selector = strings.TrimSpace(selector)
	if selector == "" {
		selector = "body"
	}
	seen := map[string]bool{}
	var out []Anchor
	visit := func(_ int, a *goquery.Selection) {
		href := hrefOf(a)
		if href == "" || skipHref(href) {
			return
		}
		abs, err := util.ResolveURL(baseURL, href)
		if err != nil || seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, Anchor{URL: abs, Text: util.CleanText(a.Text())})
	}

	// goquery treats an invalid selector as matching nothing
	doc.Find(selector).Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "a" {
			visit(0, c)
		}
		c.Find("a").Each(visit)
	})
	return out
}

// Links is Anchors without the text.
func Links(html, baseURL, selector string) []string {
	anchors := Anchors(html, baseURL, selector)
	if len(anchors) == 0 {
		return nil
	}
	out := make([]string, len(anchors))
	for i, a := range anchors {
		out[i] = a.URL
	}
	return out
}

func hrefOf(a *goquery.Selection) string {
	for _, attr := range hrefAttrs {
		if v, ok := a.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func skipHref(href string) bool {
	l := strings.ToLower(href)
	return strings.HasPrefix(l, "#") ||
		strings.HasPrefix(l, "javascript:") ||
		strings.HasPrefix(l, "mailto:") ||
		strings.HasPrefix(l, "tel:")
}
