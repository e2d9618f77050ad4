package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/ingest"
)

// Elastic keeps a search index of postings in step with the store. Soft
// removals are re-indexed with removedAt set; hard removals delete the
// document.
type Elastic struct {
	es    *elasticsearch.Client
	index string
	q     *queue
}

func NewElastic(addr, index string, log *slog.Logger) (*Elastic, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Elastic{es: es, index: index, q: newQueue("elasticsearch", 1024, 15*time.Second, log)}, nil
}

// Ping checks if Elasticsearch is available.
func (e *Elastic) Ping(ctx context.Context) error {
	res, err := e.es.Ping(e.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}
	return nil
}

func (e *Elastic) OnChange(_ context.Context, ch ingest.Change) {
	rec := ch.Record
	if ch.Type == ingest.ChangeRemoved && ch.Hard {
		e.q.push(func(ctx context.Context) error { return e.Delete(ctx, rec.ExternalID) })
		return
	}
	e.q.push(func(ctx context.Context) error { return e.Index(ctx, rec) })
}

func (e *Elastic) OnRunFinished(context.Context, domain.Report) {}

func (e *Elastic) Index(ctx context.Context, rec domain.JobRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: rec.ExternalID,
		Body:       bytes.NewReader(payload),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, e.es)
	if err != nil {
		return fmt.Errorf("index job: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index job failed: %s", strings.TrimSpace(string(body)))
	}
	return nil
}

func (e *Elastic) Delete(ctx context.Context, externalID string) error {
	req := esapi.DeleteRequest{Index: e.index, DocumentID: externalID}
	res, err := req.Do(ctx, e.es)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("delete job failed: %s", strings.TrimSpace(string(body)))
	}
	return nil
}

// Close waits for queued index requests.
func (e *Elastic) Close() error {
	e.q.close()
	return nil
}
