package domain

import "time"

// Outcome is the per-company result of one ingestion pass.
type Outcome struct {
	RunID       string     `json:"runId"`
	CompanyID   int64      `json:"companyId"`
	CompanyName string     `json:"companyName"`
	SourceType  SourceType `json:"sourceType"`

	OK       bool `json:"ok"`
	Attempts int  `json:"attempts"`

	Scraped   int `json:"scraped"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Restored  int `json:"restored"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
	Skipped   int `json:"skipped"`

	ErrKind ErrorKind `json:"errKind,omitempty"`
	Error   string    `json:"error,omitempty"`

	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

// Writes counts the content writes made for the company. Last-seen
// bookkeeping on unchanged postings is not included.
func (o Outcome) Writes() int {
	return o.Inserted + o.Updated + o.Restored + o.Removed
}

type Report struct {
	RunID      string    `json:"runId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Outcomes   []Outcome `json:"outcomes"`
}

func (r Report) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.OK {
			n++
		}
	}
	return n
}

func (r Report) Failed() int { return len(r.Outcomes) - r.Succeeded() }

// Outcome returns the outcome recorded for companyID.
func (r Report) Outcome(companyID int64) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.CompanyID == companyID {
			return o, true
		}
	}
	return Outcome{}, false
}
