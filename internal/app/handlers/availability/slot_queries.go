package availability

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"shutterbook/internal/app/dto"
	"shutterbook/internal/app/handlers/support"
	"shutterbook/internal/app/queries"
	"shutterbook/internal/app/uow"
	domainavailability "shutterbook/internal/domain/availability"
	"shutterbook/internal/domain/shared/timerange"
)

const (
	availableSlotsKey = "availability.slots.available"
	listSlotsKey      = "availability.slots.list"
)

// AvailableSlotsQuery asks for the open slots of one calendar day. An empty
// ResourceID covers every photographer.
type AvailableSlotsQuery struct {
	Date       time.Time
	ResourceID string
}

func (q AvailableSlotsQuery) Key() string { return availableSlotsKey }

type AvailableSlotsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *AvailableSlotsHandler) Handle(ctx context.Context, q AvailableSlotsQuery) (dto.SlotCollection, error) {
	if q.Date.IsZero() {
		return dto.SlotCollection{}, domainavailability.ErrInvalidInterval.Withf("date is required")
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.SlotCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	day := timerange.Day(q.Date)
	resource := domainavailability.ResourceID(strings.TrimSpace(q.ResourceID))
	candidates, err := unit.Slots().InRange(execCtx, resource, day)
	if err != nil {
		return dto.SlotCollection{}, err
	}

	// Blocked slots starting on another day can still cover a candidate, so
	// look up everything overlapping the span of each resource's candidates.
	spans := make(map[domainavailability.ResourceID]timerange.Range)
	var order []domainavailability.ResourceID
	for _, c := range candidates {
		if !c.Free() {
			continue
		}
		span, ok := spans[c.ResourceID]
		if !ok {
			order = append(order, c.ResourceID)
			span = c.Range
		}
		if c.Range.Start.Before(span.Start) {
			span.Start = c.Range.Start
		}
		if c.Range.End.After(span.End) {
			span.End = c.Range.End
		}
		spans[c.ResourceID] = span
	}
	var blocked []*domainavailability.Slot
	for _, id := range order {
		overlapping, err := unit.Slots().Overlapping(execCtx, id, spans[id])
		if err != nil {
			return dto.SlotCollection{}, err
		}
		blocked = append(blocked, overlapping...)
	}
	available := domainavailability.FilterAvailable(candidates, blocked)
	sortSlots(available)
	if h.Logger != nil {
		h.Logger.Debug("available slots listed", "date", day.Start.Format("2006-01-02"), "resource_id", resource, "count", len(available))
	}
	return dto.MapSlots(available), nil
}

type ListSlotsQuery struct {
	ResourceID string
	From       time.Time
	To         time.Time
}

func (q ListSlotsQuery) Key() string { return listSlotsKey }

type ListSlotsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

// Handle returns every slot of the resource starting in [From, To), whatever
// its flags.
func (h *ListSlotsHandler) Handle(ctx context.Context, q ListSlotsQuery) (dto.SlotCollection, error) {
	r, err := timerange.New(q.From, q.To)
	if err != nil {
		return dto.SlotCollection{}, domainavailability.ErrInvalidInterval.Wrap(err)
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.SlotCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	slots, err := unit.Slots().InRange(execCtx, domainavailability.ResourceID(strings.TrimSpace(q.ResourceID)), r)
	if err != nil {
		return dto.SlotCollection{}, err
	}
	sortSlots(slots)
	return dto.MapSlots(slots), nil
}

func sortSlots(slots []*domainavailability.Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].Range.Start.Equal(slots[j].Range.Start) {
			return slots[i].Range.Start.Before(slots[j].Range.Start)
		}
		return slots[i].ResourceID < slots[j].ResourceID
	})
}

var (
	_ queries.Handler[AvailableSlotsQuery, dto.SlotCollection] = (*AvailableSlotsHandler)(nil)
	_ queries.Handler[ListSlotsQuery, dto.SlotCollection]      = (*ListSlotsHandler)(nil)
)
