// Package ingest runs the ingestion pipeline: adapters produce raw
// postings, Normalize turns them into job records, and the Orchestrator
// reconciles each company's fresh scrape against the store.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/scrape/util"
)

// Normalize maps a raw posting onto the canonical record. It does no I/O.
// Warnings describe data that was dropped without rejecting the record.
func Normalize(raw domain.RawPosting, co domain.Company, now time.Time) (domain.JobRecord, []string, error) {
	title := util.CleanText(raw.Title)
	if title == "" {
		return domain.JobRecord{}, nil, domain.ValidationError("normalize", errors.New("empty title"))
	}
	if util.LooksLikeJunkTitle(title) {
		return domain.JobRecord{}, nil, domain.ValidationError("normalize", fmt.Errorf("link text %q is not a title", title))
	}

	u, err := util.ResolveURL(co.JobBoardURL, raw.URL)
	if err != nil {
		return domain.JobRecord{}, nil, domain.ValidationError("normalize",
			fmt.Errorf("posting %q: unresolvable url %q: %w", title, raw.URL, err))
	}

	rec := domain.JobRecord{
		ExternalID:  ExternalID(co.ID, u),
		CompanyID:   co.ID,
		CompanyName: co.Name,
		Title:       title,
		URL:         u,
		Locations:   util.SplitLocations(raw.Location),
		Department:  util.CleanText(raw.Department),
		Description: strings.TrimSpace(raw.Description),
		Source:      string(co.SourceType),
		FirstSeenAt: now,
		LastSeenAt:  now,
		Partial:     raw.Partial,
	}
	rec.Requirements = ExtractRequirements(rec.Description)

	var warns []string
	comp, err := ParseCompensation(raw.Compensation)
	if err != nil {
		warns = append(warns, err.Error())
	} else {
		rec.Compensation = comp
	}
	return rec, warns, nil
}

// ExternalID is the stable identity of a posting: its resolved URL scoped to
// the company.
func ExternalID(companyID int64, resolvedURL string) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(companyID, 10) + "|" + resolvedURL))
	return hex.EncodeToString(sum[:])
}
