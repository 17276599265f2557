package support

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shutterbook/internal/app/aftercommit"
	"shutterbook/internal/app/outbox"
	"shutterbook/internal/app/policies"
	"shutterbook/internal/domain/shared/events"
)

// Effects are the post-commit side effects shared by every write handler:
// one audit entry and the domain events of the touched aggregates.
type Effects struct {
	Audit   policies.AuditRecorder
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

// After queues entry and the drained events of sources to run after commit.
// Failures are logged and never surface to the caller.
func (e *Effects) After(ctx context.Context, entry *policies.AuditEntry, sources ...events.Source) {
	var evs []events.DomainEvent
	for _, src := range sources {
		if src != nil {
			evs = append(evs, src.Drain()...)
		}
	}
	if e == nil || (entry == nil && len(evs) == 0) {
		return
	}
	queued := aftercommit.Enqueue(ctx, func(ctx context.Context) {
		if entry != nil && e.Audit != nil {
			if err := e.Audit.Record(ctx, *entry); err != nil {
				e.logger().Warn("activity log write failed",
					"entity_kind", entry.EntityKind, "entity_id", entry.EntityID, "action", entry.Action, "error", err)
			}
		}
		if e.Outbox != nil {
			if err := outbox.RecordDomainEvents(ctx, e.Outbox, e.Encoder, evs); err != nil {
				e.logger().Warn("event publication failed", "events", len(evs), "error", err)
			}
		}
	})
	if !queued {
		e.logger().Debug("post-commit effects dropped: no after-commit queue", "events", len(evs))
	}
}

func (e *Effects) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Clock returns now in UTC from fn, or the wall clock.
func Clock(fn func() time.Time) time.Time {
	if fn != nil {
		return fn().UTC()
	}
	return time.Now().UTC()
}

// NewID returns gen() or a fresh UUID.
func NewID(gen func() string) string {
	if gen != nil {
		return gen()
	}
	return uuid.NewString()
}

// Entry builds an audit entry stamped at now.
func Entry(action, kind, id, label, description string, now time.Time) *policies.AuditEntry {
	return &policies.AuditEntry{
		Action:      action,
		EntityKind:  kind,
		EntityID:    id,
		EntityLabel: label,
		Description: description,
		At:          now,
	}
}
