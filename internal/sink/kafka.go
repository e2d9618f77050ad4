package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/ingest"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes one message per change, keyed by the posting's external
// ID so a consumer sees a posting's changes in order.
type Kafka struct {
	w messageWriter
	q *queue
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func NewKafka(cfg KafkaConfig, log *slog.Logger) *Kafka {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafka(w, log)
}

func newKafka(w messageWriter, log *slog.Logger) *Kafka {
	return &Kafka{w: w, q: newQueue("kafka", 1024, 15*time.Second, log)}
}

type changeMessage struct {
	Type   string           `json:"type"`
	RunID  string           `json:"runId"`
	Hard   bool             `json:"hard,omitempty"`
	Record domain.JobRecord `json:"record"`
}

func (k *Kafka) OnChange(_ context.Context, ch ingest.Change) {
	body, err := json.Marshal(changeMessage{Type: string(ch.Type), RunID: ch.RunID, Hard: ch.Hard, Record: ch.Record})
	if err != nil {
		k.q.log.Warn("sink encode failed", "sink", k.q.name, "type", ch.Type, "url", ch.Record.URL, "err", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(ch.Record.ExternalID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ch.Type)},
			{Key: "run_id", Value: []byte(ch.RunID)},
		},
		Time: time.Now().UTC(),
	}
	k.q.push(func(ctx context.Context) error {
		if err := k.w.WriteMessages(ctx, msg); err != nil {
			return fmt.Errorf("write %s: %w", ch.Record.ExternalID, err)
		}
		return nil
	})
}

func (k *Kafka) OnRunFinished(context.Context, domain.Report) {}

// Close flushes queued messages and closes the writer.
func (k *Kafka) Close() error {
	k.q.close()
	return k.w.Close()
}
