package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mergd/curro-sub001/internal/domain"
)

var (
	isoCurrencyRe = regexp.MustCompile(`(?i)\b(USD|EUR|GBP|CAD|AUD|CHF|JPY|INR|SGD|NZD|SEK|NOK|DKK|PLN|BRL|MXN)\b`)
	amountRe      = regexp.MustCompile(`(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)\s*([kKmM])?\b`)
	hourlyRe      = regexp.MustCompile(`(?i)(/\s*h(ou)?r\b|per\s+hour|hourly|an\s+hour|/\s*hour)`)
	upToRe        = regexp.MustCompile(`(?i)\bup\s+to\b`)
)

var currencySymbols = []struct {
	sym  string
	code string
}{
	{"CA$", "CAD"},
	{"C$", "CAD"},
	{"A$", "AUD"},
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
}

// ParseCompensation reads free-text pay ranges such as "$120,000 - $150,000",
// "$120K–$150K", "€50 – 60 / hour" or "USD 45/hr". Text without figures
// yields nil. A range whose minimum exceeds its maximum is an error.
func ParseCompensation(text string) (*domain.Compensation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	matches := amountRe.FindAllStringSubmatch(text, -1)
	var vals []float64
	var suffixes []string
	for _, m := range matches {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		vals = append(vals, v)
		suffixes = append(suffixes, strings.ToLower(m[2]))
		if len(vals) == 2 {
			break
		}
	}
	if len(vals) == 0 {
		return nil, nil
	}

	// "$120–150K": the trailing suffix applies to both ends
	if len(vals) == 2 && suffixes[0] == "" && suffixes[1] != "" && vals[0] < 1000 {
		suffixes[0] = suffixes[1]
	}
	for i := range vals {
		vals[i] *= multiplier(suffixes[i])
	}

	c := &domain.Compensation{
		Currency: currencyOf(text),
		Type:     domain.CompensationAnnual,
	}
	if hourlyRe.MatchString(text) {
		c.Type = domain.CompensationHourly
	}

	switch {
	case len(vals) == 2:
		lo, hi := vals[0], vals[1]
		if lo > hi {
			return nil, fmt.Errorf("compensation %q dropped: min %.0f > max %.0f", text, lo, hi)
		}
		c.Min, c.Max = &lo, &hi
	case upToRe.MatchString(text):
		c.Max = &vals[0]
	default:
		c.Min = &vals[0]
	}
	return c, nil
}

func multiplier(suffix string) float64 {
	switch suffix {
	case "k":
		return 1_000
	case "m":
		return 1_000_000
	}
	return 1
}

func currencyOf(text string) string {
	if m := isoCurrencyRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	for _, cs := range currencySymbols {
		if strings.Contains(text, cs.sym) {
			return cs.code
		}
	}
	return ""
}
