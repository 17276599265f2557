package memory

import (
	"context"
	"sync"

	"shutterbook/internal/app/policies"
)

// ActivityLog is an append-only audit log. Fail makes subsequent writes
// return the given error.
type ActivityLog struct {
	mu      sync.Mutex
	entries []policies.AuditEntry
	fail    error
}

func NewActivityLog() *ActivityLog { return &ActivityLog{} }

func (l *ActivityLog) Record(ctx context.Context, entry policies.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return l.fail
	}
	l.entries = append(l.entries, entry)
	return nil
}

func (l *ActivityLog) Fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = err
}

func (l *ActivityLog) Entries() []policies.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]policies.AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *ActivityLog) Recent(ctx context.Context, kind, id string, limit int64) ([]policies.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]policies.AuditEntry, 0)
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.EntityKind != kind || e.EntityID != id {
			continue
		}
		out = append(out, e)
		if limit > 0 && int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

var (
	_ policies.AuditRecorder  = (*ActivityLog)(nil)
	_ policies.ActivityReader = (*ActivityLog)(nil)
)
