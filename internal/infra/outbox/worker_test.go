package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	appoutbox "shutterbook/internal/app/outbox"
	infraoutbox "shutterbook/internal/infra/outbox"
	"shutterbook/internal/infra/storage/memory"
)

type sent struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	mu   sync.Mutex
	fail error
	msgs []sent
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.msgs = append(p.msgs, sent{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func record(id, name string) appoutbox.EventRecord {
	return appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"booking_id":"b-1"}`),
		OccurredAt: time.Date(2030, 6, 4, 9, 0, 0, 0, time.UTC),
		Aggregate:  "b-1",
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}
}

func TestWorkerDrainPublishesCloudEvents(t *testing.T) {
	box := memory.NewOutbox()
	ctx := context.Background()
	_ = box.Add(ctx, record("e-1", "booking.created"))
	_ = box.Add(ctx, record("e-2", "availability.slot_created"))

	prod := &fakeProducer{}
	w := &infraoutbox.Worker{Queue: box, Producer: prod, TopicPrefix: "dev."}
	n, err := w.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 2 || len(prod.msgs) != 2 {
		t.Fatalf("sent %d, producer got %d", n, len(prod.msgs))
	}
	if prod.msgs[0].topic != "dev.booking.events.v1" || prod.msgs[1].topic != "dev.availability.events.v1" {
		t.Fatalf("topics = %q, %q", prod.msgs[0].topic, prod.msgs[1].topic)
	}
	var evt map[string]any
	if err := json.Unmarshal(prod.msgs[0].payload, &evt); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if evt["type"] != "booking.created.v1" || evt["source"] != "app://shutterbook" || evt["subject"] != "b-1" {
		t.Fatalf("event = %v", evt)
	}
	if evt["traceparent"] != "00-abc-def-01" {
		t.Fatalf("traceparent not propagated: %v", evt)
	}
	if prod.msgs[0].headers["content-type"] != "application/cloudevents+json" {
		t.Fatalf("headers = %v", prod.msgs[0].headers)
	}
	if box.Pending() != 0 {
		t.Fatalf("pending = %d", box.Pending())
	}
}

func TestWorkerFailureSchedulesRetry(t *testing.T) {
	box := memory.NewOutbox()
	ctx := context.Background()
	_ = box.Add(ctx, record("e-1", "booking.created"))

	prod := &fakeProducer{fail: errors.New("broker down")}
	w := &infraoutbox.Worker{Queue: box, Producer: prod, Backoff: []time.Duration{time.Hour}}
	n, err := w.Drain(ctx)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 0 || box.Pending() != 1 {
		t.Fatalf("sent %d pending %d", n, box.Pending())
	}

	prod.fail = nil
	if n, _ := w.Drain(ctx); n != 0 {
		t.Fatalf("record retried before its backoff elapsed")
	}
}

func TestWorkerRunRequiresDependencies(t *testing.T) {
	w := &infraoutbox.Worker{}
	if err := w.Run(context.Background()); !errors.Is(err, infraoutbox.ErrWorkerNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}
