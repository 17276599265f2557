package policies

import (
	"context"
	"time"
)

const (
	AuditCreated = "Created"
	AuditUpdated = "Updated"
	AuditDeleted = "Deleted"
)

type AuditEntry struct {
	Action      string
	EntityKind  string
	EntityID    string
	EntityLabel string
	Description string
	At          time.Time
}

// AuditRecorder is the append-only activity log. Callers treat failures as
// non-fatal.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// ActivityReader lists the latest entries recorded for one entity, newest
// first.
type ActivityReader interface {
	Recent(ctx context.Context, kind, id string, limit int64) ([]AuditEntry, error)
}
