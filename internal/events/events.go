// Package events is the in-process fan-out behind GET /events.
package events

import (
	"encoding/json"
	"time"
)

const (
	TypeJobInserted = "job_inserted"
	TypeJobUpdated  = "job_updated"
	TypeJobRemoved  = "job_removed"
	TypeRunStarted  = "run_started"
	TypeRunFinished = "run_finished"
	TypeCompany     = "company_changed"
)

// Version of the event envelope.
const Version = 1

type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	RunID   string          `json:"run_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// MakeEvent encodes one envelope. Marshal failures degrade to an event
// without data.
func MakeEvent(runID, typ string, data any) string {
	var raw json.RawMessage
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			raw = b
		}
	}
	b, _ := json.Marshal(Event{
		Type:    typ,
		Version: Version,
		At:      time.Now().UTC(),
		RunID:   runID,
		Data:    raw,
	})
	return string(b)
}
