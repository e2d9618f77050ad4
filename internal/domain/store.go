package domain

// UpsertAction is what an atomic upsert did with a record.
type UpsertAction string

const (
	ActionInserted  UpsertAction = "inserted"
	ActionUpdated   UpsertAction = "updated"
	ActionRestored  UpsertAction = "restored" // a soft-removed posting was listed again
	ActionUnchanged UpsertAction = "unchanged"
)

type UpsertResult struct {
	Action UpsertAction
	Record JobRecord // stored state after the upsert
}

// Retention decides what happens to postings that disappear from a board.
type Retention string

const (
	// RetentionSoft keeps the row and stamps removed_at so history such as
	// "posted N days ago" survives.
	RetentionSoft Retention = "soft"
	RetentionHard Retention = "hard"
)

func (r Retention) Valid() bool { return r == RetentionSoft || r == RetentionHard }

// JobQuery filters read-only job listings.
type JobQuery struct {
	CompanyID      int64
	IncludeRemoved bool
	Limit          int
	Offset         int
}
