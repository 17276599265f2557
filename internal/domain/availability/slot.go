package availability

import (
	"context"
	"strings"
	"time"

	"shutterbook/internal/domain/shared/apperr"
	"shutterbook/internal/domain/shared/events"
	"shutterbook/internal/domain/shared/timerange"
)

var (
	ErrInvalidInterval  = apperr.Validation("InvalidInterval", "slot start must be before its end")
	ErrInvalidUntilDate = apperr.Validation("InvalidUntilDate", "recurrence end date must be after today")
	ErrResourceRequired = apperr.Validation("ResourceRequired", "photographer reference is required")
	ErrResourceNotFound = apperr.NotFound("ResourceNotFound", "photographer not found")
	ErrSlotNotFound     = apperr.NotFound("SlotNotFound", "availability slot not found")
	ErrOverlap          = apperr.Conflict("OverlapConflict", "this time slot overlaps with an existing availability slot")
	ErrSlotIsBooked     = apperr.Conflict("SlotIsBooked", "booked slots cannot be deleted")
	ErrSlotUnavailable  = apperr.Conflict("SlotUnavailable", "slot is already booked or blocked")
	ErrSlotResource     = apperr.Validation("SlotResourceMismatch", "slot belongs to a different photographer")
)

type SlotID string

type ResourceID string

// Slot is one interval of a photographer's time. All slots of a resource,
// whatever their flags, are pairwise non-overlapping.
type Slot struct {
	ID         SlotID
	ResourceID ResourceID
	Range      timerange.Range
	IsBooked   bool
	IsBlocked  bool
	Recurrence *time.Weekday
	BookingID  *string
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	events.Recorder
}

type Repository interface {
	ByID(ctx context.Context, id SlotID) (*Slot, error)
	// Overlapping returns every slot of resource intersecting r, booked or not.
	Overlapping(ctx context.Context, resource ResourceID, r timerange.Range) ([]*Slot, error)
	// InRange returns slots starting inside r; an empty resource means all resources.
	InRange(ctx context.Context, resource ResourceID, r timerange.Range) ([]*Slot, error)
	ByBooking(ctx context.Context, bookingID string) ([]*Slot, error)
	Insert(ctx context.Context, slot *Slot) error
	Save(ctx context.Context, slot *Slot) error
	Delete(ctx context.Context, id SlotID) error
}

type NewSlotParams struct {
	ID         SlotID
	ResourceID ResourceID
	Range      timerange.Range
	Blocked    bool
	Recurrence *time.Weekday
	Notes      string
	CreatedAt  time.Time
}

// NewSlot validates the interval and builds an open or blocked slot. Overlap
// is checked by the scheduler against the store.
func NewSlot(p NewSlotParams) (*Slot, error) {
	if strings.TrimSpace(string(p.ResourceID)) == "" {
		return nil, ErrResourceRequired
	}
	r := timerange.Range{Start: p.Range.Start.UTC(), End: p.Range.End.UTC()}
	if err := r.Validate(); err != nil {
		return nil, ErrInvalidInterval
	}
	now := p.CreatedAt.UTC()
	s := &Slot{
		ID:         p.ID,
		ResourceID: p.ResourceID,
		Range:      r,
		IsBlocked:  p.Blocked,
		Recurrence: p.Recurrence,
		Notes:      strings.TrimSpace(p.Notes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if p.Blocked {
		s.Record(SlotBlocked{SlotID: s.ID, ResourceID: s.ResourceID, Start: r.Start, End: r.End, At: now})
	} else {
		s.Record(SlotCreated{SlotID: s.ID, ResourceID: s.ResourceID, Start: r.Start, End: r.End, At: now})
	}
	return s, nil
}

// Free reports an open slot: neither booked nor blocked.
func (s *Slot) Free() bool {
	return !s.IsBooked && !s.IsBlocked
}

// Book marks the slot as occupied by bookingID.
func (s *Slot) Book(bookingID string, now time.Time) error {
	if !s.Free() {
		return ErrSlotUnavailable
	}
	s.IsBooked = true
	s.BookingID = &bookingID
	s.UpdatedAt = now.UTC()
	return nil
}

// Release un-books the slot and clears its booking back-reference.
func (s *Slot) Release(now time.Time) {
	var bookingID string
	if s.BookingID != nil {
		bookingID = *s.BookingID
	}
	s.IsBooked = false
	s.BookingID = nil
	s.UpdatedAt = now.UTC()
	s.Record(SlotReleased{SlotID: s.ID, ResourceID: s.ResourceID, BookingID: bookingID, At: s.UpdatedAt})
}

func (s *Slot) EnsureDeletable() error {
	if s.IsBooked {
		return ErrSlotIsBooked
	}
	return nil
}

func (s *Slot) Clone() *Slot {
	out := *s
	out.Recorder = events.Recorder{}
	if s.Recurrence != nil {
		d := *s.Recurrence
		out.Recurrence = &d
	}
	if s.BookingID != nil {
		id := *s.BookingID
		out.BookingID = &id
	}
	return &out
}

// AnyOverlap reports whether r intersects any of slots.
func AnyOverlap(slots []*Slot, r timerange.Range) bool {
	for _, s := range slots {
		if s.Range.Overlaps(r) {
			return true
		}
	}
	return false
}

// FilterAvailable keeps free candidates that no slot in blocked of the same
// resource overlaps. Both conditions are required.
func FilterAvailable(candidates, blocked []*Slot) []*Slot {
	byResource := make(map[ResourceID][]*Slot)
	for _, s := range blocked {
		if s.IsBlocked {
			byResource[s.ResourceID] = append(byResource[s.ResourceID], s)
		}
	}
	out := make([]*Slot, 0, len(candidates))
	for _, s := range candidates {
		if !s.Free() {
			continue
		}
		if AnyOverlap(byResource[s.ResourceID], s.Range) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// MarkDeleted guards deletion and records the removal.
func (s *Slot) MarkDeleted(now time.Time) error {
	if err := s.EnsureDeletable(); err != nil {
		return err
	}
	s.Record(SlotDeleted{SlotID: s.ID, ResourceID: s.ResourceID, At: now.UTC()})
	return nil
}
