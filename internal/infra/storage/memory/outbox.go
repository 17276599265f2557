package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	appoutbox "shutterbook/internal/app/outbox"
	infraoutbox "shutterbook/internal/infra/outbox"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	attempts  int
	next      time.Time
	claimed   bool
	sent      bool
	lastError string
	seq       int
}

// Outbox is an in-process outbox queue drained by the outbox worker.
type Outbox struct {
	mu      sync.Mutex
	entries map[string]*outboxEntry
	seq     int
	now     func() time.Time
}

func NewOutbox() *Outbox {
	return &Outbox{entries: make(map[string]*outboxEntry), now: time.Now}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seq++
	o.entries[record.ID] = &outboxEntry{record: record, next: o.now(), seq: o.seq}
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.Envelope, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	var pick *outboxEntry
	for _, e := range o.entries {
		if e.sent || e.claimed || e.next.After(now) {
			continue
		}
		if pick == nil || e.seq < pick.seq {
			pick = e
		}
	}
	if pick == nil {
		return nil, nil
	}
	pick.claimed = true
	return &infraoutbox.Envelope{EventRecord: pick.record, Attempts: pick.attempts}, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.entries[id]; ok {
		e.sent = true
		e.claimed = false
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e, ok := o.entries[id]; ok {
		e.claimed = false
		e.attempts++
		e.next = next
		e.lastError = errMsg
	}
	return nil
}

// Records returns every queued record in insertion order.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	list := make([]*outboxEntry, 0, len(o.entries))
	for _, e := range o.entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	out := make([]appoutbox.EventRecord, len(list))
	for i, e := range list {
		out[i] = e.record
	}
	return out
}

// Pending counts records not yet published.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.entries {
		if !e.sent {
			n++
		}
	}
	return n
}

var (
	_ appoutbox.Outbox  = (*Outbox)(nil)
	_ infraoutbox.Queue = (*Outbox)(nil)
)
