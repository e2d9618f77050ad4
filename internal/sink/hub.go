package sink

import (
	"context"
	"time"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/events"
	"github.com/mergd/curro-sub001/internal/ingest"
)

// Hub publishes changes to SSE subscribers.
type Hub struct {
	hub *events.Hub
}

func NewHub(h *events.Hub) *Hub { return &Hub{hub: h} }

func (h *Hub) OnChange(_ context.Context, ch ingest.Change) {
	h.hub.Publish(events.MakeEvent(ch.RunID, string(ch.Type), ch.Record))
}

type runSummary struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Removed    int       `json:"removed"`
}

func (h *Hub) OnRunFinished(_ context.Context, rep domain.Report) {
	s := runSummary{
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Succeeded:  rep.Succeeded(),
		Failed:     rep.Failed(),
	}
	for _, o := range rep.Outcomes {
		s.Inserted += o.Inserted + o.Restored
		s.Updated += o.Updated
		s.Removed += o.Removed
	}
	h.hub.Publish(events.MakeEvent(rep.RunID, events.TypeRunFinished, s))
}
