package activity

import (
	"context"
	"log/slog"
	"strings"

	"shutterbook/internal/app/dto"
	"shutterbook/internal/app/policies"
	"shutterbook/internal/app/queries"
	"shutterbook/internal/domain/shared/apperr"
)

const (
	recentActivityKey = "activity.recent"

	defaultLimit = 20
	maxLimit     = 200
)

var ErrEntityRequired = apperr.Validation("EntityRequired", "entity kind and id are required")

type RecentActivityQuery struct {
	EntityKind string
	EntityID   string
	Limit      int
}

func (q RecentActivityQuery) Key() string { return recentActivityKey }

// RecentActivityHandler reads the activity log of one entity. Without a
// reader it answers with an empty list.
type RecentActivityHandler struct {
	Reader policies.ActivityReader
	Logger *slog.Logger
}

func (h *RecentActivityHandler) Handle(ctx context.Context, q RecentActivityQuery) (dto.ActivityCollection, error) {
	kind, id := strings.TrimSpace(q.EntityKind), strings.TrimSpace(q.EntityID)
	if kind == "" || id == "" {
		return dto.ActivityCollection{}, ErrEntityRequired
	}
	if h.Reader == nil {
		return dto.MapActivity(nil), nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	entries, err := h.Reader.Recent(ctx, kind, id, int64(limit))
	if err != nil {
		return dto.ActivityCollection{}, err
	}
	return dto.MapActivity(entries), nil
}

var _ queries.Handler[RecentActivityQuery, dto.ActivityCollection] = (*RecentActivityHandler)(nil)
