package ingest

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mergd/curro-sub001/internal/scrape/util"
)

var requirementsHeadingRe = regexp.MustCompile(`(?i)^(minimum |basic |preferred |key )?(requirements|qualifications|what you['’]ll need|what you will need|what we['’]re looking for|who you are|you have|you might be a fit if)\b`)

const maxHeadingLen = 60

// ExtractRequirements returns the text under the first requirements-style
// heading in a description, or "" when there is none.
func ExtractRequirements(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return ""
	}
	if !strings.Contains(description, "<") {
		return requirementsFromText(description)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return ""
	}

	var found string
	doc.Find("h1, h2, h3, h4, h5, h6, p, strong, b").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !isRequirementsHeading(s.Text()) {
			return true
		}
		block := s
		if n := goquery.NodeName(s); n == "strong" || n == "b" {
			if p := s.Closest("p, div, li"); p.Length() > 0 && util.CleanText(p.Text()) == util.CleanText(s.Text()) {
				block = p
			}
		}

		var parts []string
		for n := block.Next(); n.Length() > 0; n = n.Next() {
			if isHeadingNode(n) {
				break
			}
			parts = append(parts, blockText(n)...)
		}
		found = strings.Join(parts, "\n")
		return found == ""
	})
	return found
}

func isRequirementsHeading(text string) bool {
	t := strings.TrimSuffix(util.CleanText(text), ":")
	return t != "" && len(t) <= maxHeadingLen && requirementsHeadingRe.MatchString(t)
}

func isHeadingNode(s *goquery.Selection) bool {
	switch goquery.NodeName(s) {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	case "p":
		// a paragraph that is only bold text reads as a heading
		bold := util.CleanText(s.Find("strong, b").Text())
		return bold != "" && bold == util.CleanText(s.Text())
	}
	return false
}

func blockText(s *goquery.Selection) []string {
	switch goquery.NodeName(s) {
	case "ul", "ol":
		var items []string
		s.Find("li").Each(func(_ int, li *goquery.Selection) {
			if t := util.CleanText(li.Text()); t != "" {
				items = append(items, t)
			}
		})
		return items
	}
	if t := util.CleanText(s.Text()); t != "" {
		return []string{t}
	}
	return nil
}

// requirementsFromText handles plain-text descriptions: the lines after a
// heading line, up to the next short line ending in a colon.
func requirementsFromText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !isRequirementsHeading(line) {
			continue
		}
		var parts []string
		for _, l := range lines[i+1:] {
			l = util.CleanText(l)
			if strings.HasSuffix(l, ":") && len(l) <= maxHeadingLen {
				break
			}
			if l = strings.TrimLeft(l, "-*• "); l != "" {
				parts = append(parts, l)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}
