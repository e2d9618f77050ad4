// Package sink forwards committed job changes to downstream consumers: the
// SSE hub, a Kafka topic and an Elasticsearch index. Sinks are best
// effort; a slow or failing consumer never holds up ingestion.
package sink

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type task func(ctx context.Context) error

// queue runs tasks on one background goroutine. push never blocks; when
// the buffer is full the task is dropped and logged.
type queue struct {
	name    string
	log     *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	ch     chan task
	done   chan struct{}
}

func newQueue(name string, size int, timeout time.Duration, log *slog.Logger) *queue {
	if size <= 0 {
		size = 256
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	q := &queue{
		name:    name,
		log:     log,
		timeout: timeout,
		ch:      make(chan task, size),
		done:    make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *queue) loop() {
	defer close(q.done)
	for t := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := t(ctx); err != nil {
			q.log.Warn("sink delivery failed", "sink", q.name, "err", err)
		}
		cancel()
	}
}

func (q *queue) push(t task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- t:
		return true
	default:
		q.log.Warn("sink queue full, dropping", "sink", q.name)
		return false
	}
}

// close stops accepting tasks and waits for queued ones to finish.
func (q *queue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()
	<-q.done
}
