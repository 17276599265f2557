package dto

import (
	"time"

	domainavailability "shutterbook/internal/domain/availability"
)

type SlotView struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	IsBooked   bool      `json:"is_booked"`
	IsBlocked  bool      `json:"is_blocked"`
	Recurrence string    `json:"recurrence,omitempty"`
	BookingID  *string   `json:"booking_id,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

type SlotCollection struct {
	Items []SlotView `json:"items"`
}

// RecurringResult lists the weeks that were created; conflicting weeks are
// reported in Skipped and are not errors.
type RecurringResult struct {
	Created []SlotView `json:"created"`
	Skipped []string   `json:"skipped_dates"`
}

func MapSlot(s *domainavailability.Slot) SlotView {
	view := SlotView{
		ID:         string(s.ID),
		ResourceID: string(s.ResourceID),
		Start:      s.Range.Start,
		End:        s.Range.End,
		IsBooked:   s.IsBooked,
		IsBlocked:  s.IsBlocked,
		BookingID:  copyString(s.BookingID),
		Notes:      s.Notes,
	}
	if s.Recurrence != nil {
		view.Recurrence = s.Recurrence.String()
	}
	return view
}

func MapSlots(items []*domainavailability.Slot) SlotCollection {
	out := SlotCollection{Items: make([]SlotView, 0, len(items))}
	for _, s := range items {
		out.Items = append(out.Items, MapSlot(s))
	}
	return out
}
