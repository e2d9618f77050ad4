package util

import (
	"errors"
	"net/url"
	"strings"
)

var errNotAbsolute = errors.New("url is not absolute")

// ResolveURL resolves href against base and returns the canonical absolute
// form used as a posting identity: lower-cased scheme and host, no
// fragment, common tracking parameters removed. Already absolute hrefs are
// returned in canonical form, so the function is idempotent.
func ResolveURL(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", errors.New("empty href")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	if !ref.IsAbs() {
		b, err := url.Parse(strings.TrimSpace(base))
		if err != nil {
			return "", err
		}
		if !b.IsAbs() || b.Host == "" {
			return "", errNotAbsolute
		}
		ref = b.ResolveReference(ref)
	}
	if ref.Host == "" {
		return "", errNotAbsolute
	}
	return canonicalize(ref), nil
}

func canonicalize(u *url.URL) string {
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery == "" {
		return u.String()
	}

	// only re-encode when something was dropped, so untouched URLs keep
	// their exact query string
	q := u.Query()
	dropped := false
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") ||
			lk == "gclid" || lk == "fbclid" || lk == "msclkid" ||
			lk == "mc_cid" || lk == "mc_eid" ||
			lk == "mkt_tok" {
			q.Del(k)
			dropped = true
		}
	}
	if dropped {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Host returns the lower-cased host of raw, or "" when it has none.
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
