package util

import (
	"regexp"
	"strings"
)

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

func NormalizeLocation(loc string) string {
	loc = CleanText(loc)
	if loc == "" {
		return ""
	}

	for _, p := range []string{"Location:", "Locations:", "LOCATION:", "LOCATIONS:"} {
		loc = strings.TrimPrefix(loc, p)
	}
	loc = strings.TrimSpace(loc)

	parts := strings.Split(loc, ",")
	seen := map[string]bool{}
	var out []string
	for _, p := range parts {
		p = CleanText(p)
		if p == "" {
			continue
		}
		k := strings.ToLower(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}

var locationSep = regexp.MustCompile(`\s*(?:;|\||\n|\s/\s|\s•\s|\s·\s|\sor\s)\s*`)

// SplitLocations turns a board's location text into distinct locations.
// "City, ST" pairs stay together; separators are ; | / • · "or" and line
// breaks.
func SplitLocations(raw string) []string {
	raw = strings.ReplaceAll(raw, "\u00a0", " ")
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, part := range locationSep.Split(raw, -1) {
		loc := NormalizeLocation(part)
		if loc == "" {
			continue
		}
		k := strings.ToLower(loc)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, loc)
	}
	return out
}

func LooksLikeJunkTitle(t string) bool {
	l := strings.ToLower(CleanText(t))
	switch l {
	case "", "view", "view job", "apply", "apply now", "learn more", "details", "see details":
		return true
	}
	return strings.HasPrefix(l, "view ") || strings.HasPrefix(l, "apply ")
}
