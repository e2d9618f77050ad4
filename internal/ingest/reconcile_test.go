package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mergd/curro-sub001/internal/domain"
)

func rec(url, title string) domain.JobRecord {
	return domain.JobRecord{URL: url, Title: title}
}

func urls(recs []domain.JobRecord) []string {
	var out []string
	for _, r := range recs {
		out = append(out, r.URL)
	}
	return out
}

func TestDiff(t *testing.T) {
	prev := []domain.JobRecord{rec("u1", "A"), rec("u2", "B"), rec("u3", "C")}
	prev[1].ID = 2
	next := []domain.JobRecord{rec("u2", "B (changed)"), rec("u3", "C"), rec("u4", "D")}

	plan := Diff(prev, next)
	require.Equal(t, []string{"u4"}, urls(plan.Insert))
	require.Equal(t, []string{"u2"}, urls(plan.Update))
	require.Equal(t, int64(2), plan.Update[0].ID)
	require.Equal(t, []string{"u3"}, urls(plan.Unchanged))
	require.Equal(t, []string{"u1"}, urls(plan.Remove))
	require.Equal(t, 3, plan.Writes())
}

func TestDiffUnchangedBoardHasNoWrites(t *testing.T) {
	s := []domain.JobRecord{rec("u1", "A"), rec("u2", "B")}
	plan := Diff(s, s)
	require.Zero(t, plan.Writes())
	require.Len(t, plan.Unchanged, 2)
}

func TestDiffEmptyScrapeRemovesAll(t *testing.T) {
	plan := Diff([]domain.JobRecord{rec("u1", "A")}, nil)
	require.Equal(t, []string{"u1"}, urls(plan.Remove))
	require.Empty(t, plan.Insert)
}

func TestDiffPartialKeepsStoredDetails(t *testing.T) {
	f := 150000.0
	stored := rec("u1", "A")
	stored.ID = 7
	stored.Locations = []string{"Remote"}
	stored.Description = "<p>Build things.</p>"
	stored.Requirements = "Go"
	stored.Compensation = &domain.Compensation{Max: &f, Currency: "USD", Type: domain.CompensationAnnual}

	listing := rec("u1", "A")
	listing.Partial = true

	plan := Diff([]domain.JobRecord{stored}, []domain.JobRecord{listing})
	require.Zero(t, plan.Writes())
	require.Equal(t, []domain.JobRecord{stored}, plan.Unchanged)
}

func TestDiffPartialStillSeesListingChanges(t *testing.T) {
	stored := rec("u1", "A")
	stored.Description = "<p>Build things.</p>"
	stored.Requirements = "Go"

	listing := rec("u1", "A (Senior)")
	listing.Partial = true

	plan := Diff([]domain.JobRecord{stored}, []domain.JobRecord{listing})
	require.Len(t, plan.Update, 1)
	require.Equal(t, "A (Senior)", plan.Update[0].Title)
	require.Equal(t, "<p>Build things.</p>", plan.Update[0].Description)
	require.Equal(t, "Go", plan.Update[0].Requirements)
}
