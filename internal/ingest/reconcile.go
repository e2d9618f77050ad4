package ingest

import "github.com/mergd/curro-sub001/internal/domain"

// Plan is the reconciliation of one company's stored postings against a
// fresh scrape.
type Plan struct {
	Insert    []domain.JobRecord // URLs not stored yet
	Update    []domain.JobRecord // stored URLs whose content changed
	Unchanged []domain.JobRecord
	Remove    []domain.JobRecord // stored URLs no longer listed
}

// Diff compares prev (the company's live records) with next (the fresh,
// URL-deduplicated scrape).
func Diff(prev, next []domain.JobRecord) Plan {
	byURL := make(map[string]domain.JobRecord, len(prev))
	for _, p := range prev {
		byURL[p.URL] = p
	}

	var plan Plan
	listed := make(map[string]bool, len(next))
	for _, n := range next {
		listed[n.URL] = true
		old, ok := byURL[n.URL]
		if ok && n.Partial {
			n = n.KeepDetails(old)
		}
		switch {
		case !ok:
			plan.Insert = append(plan.Insert, n)
		case old.SameContent(n):
			plan.Unchanged = append(plan.Unchanged, old)
		default:
			n.ID = old.ID
			n.FirstSeenAt = old.FirstSeenAt
			plan.Update = append(plan.Update, n)
		}
	}
	for _, p := range prev {
		if !listed[p.URL] {
			plan.Remove = append(plan.Remove, p)
		}
	}
	return plan
}

// Writes is the number of content writes the plan needs.
func (p Plan) Writes() int {
	return len(p.Insert) + len(p.Update) + len(p.Remove)
}
