package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appoutbox "shutterbook/internal/app/outbox"
)

// Envelope is a claimed outbox record with its delivery attempts so far.
type Envelope struct {
	appoutbox.EventRecord
	Attempts int
}

// Queue is the claimable side of an outbox.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*Envelope, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Worker moves outbox records to the broker as CloudEvents.
type Worker struct {
	Queue       Queue
	Producer    Producer
	Logger      *slog.Logger
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	Now         func() time.Time
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

func (w *Worker) Run(ctx context.Context) error {
	if w.Queue == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Drain(ctx); err != nil {
				return err
			}
		}
	}
}

// Drain publishes claimable records until none is left and reports how many
// were sent.
func (w *Worker) Drain(ctx context.Context) (int, error) {
	sent := 0
	for {
		ok, err := w.processOnce(ctx)
		if err != nil || !ok {
			return sent, err
		}
		sent++
	}
}

// processOnce handles one record. It reports false when nothing was
// published, either because the queue is empty or the attempt failed.
func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	env, err := w.Queue.Claim(ctx, w.workerID())
	if err != nil || env == nil {
		return false, err
	}
	topic := Topic(w.TopicPrefix, env.EventRecord)
	payload, headers, err := w.formatPayload(env)
	if err == nil {
		err = w.Producer.Publish(ctx, topic, env.Aggregate, payload, headers)
	}
	if err != nil {
		w.logger().Warn("outbox publish failed", "event_id", env.ID, "event", env.Name, "attempts", env.Attempts+1, "error", err)
		if markErr := w.Queue.MarkFailed(ctx, env.ID, w.nextRetry(env.Attempts), err.Error()); markErr != nil {
			return false, markErr
		}
		return false, nil
	}
	return true, w.Queue.MarkSent(ctx, env.ID)
}

func (w *Worker) formatPayload(env *Envelope) ([]byte, map[string]string, error) {
	data := map[string]any{}
	if err := json.Unmarshal(env.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              env.ID,
		"type":            env.Name + ".v1",
		"source":          w.source(),
		"subject":         env.Aggregate,
		"time":            env.OccurredAt,
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := env.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{}
	for k, v := range env.Headers {
		headers[k] = v
	}
	headers["content-type"] = "application/cloudevents+json"
	return payload, headers, nil
}

// Topic maps an event to "<prefix><stream>.events.v1".
func Topic(prefix string, rec appoutbox.EventRecord) string {
	return prefix + rec.Stream() + ".events.v1"
}

func (w *Worker) workerID() string {
	if w.ID != "" {
		return w.ID
	}
	return "outbox-worker"
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return w.now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return w.now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return w.now().Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://shutterbook"
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
