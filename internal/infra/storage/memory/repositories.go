package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	domainavailability "shutterbook/internal/domain/availability"
	domainbooking "shutterbook/internal/domain/booking"
	domainrecords "shutterbook/internal/domain/records"
	"shutterbook/internal/domain/shared/timerange"
)

type bookingRepo struct{ u *Unit }

func (r bookingRepo) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	if err := r.u.live(); err != nil {
		return nil, err
	}
	b, ok := r.u.state.bookings[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return b.Clone(), nil
}

func (r bookingRepo) ByReference(ctx context.Context, ref domainbooking.Reference) (*domainbooking.Booking, error) {
	if err := r.u.live(); err != nil {
		return nil, err
	}
	for _, b := range r.u.state.bookings {
		if b.Reference == ref {
			return b.Clone(), nil
		}
	}
	return nil, domainbooking.ErrNotFound
}

// ForUpdate is ByID: the unit already excludes other writers.
func (r bookingRepo) ForUpdate(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	if err := r.u.writable(); err != nil {
		return nil, err
	}
	return r.ByID(ctx, id)
}

func (r bookingRepo) List(ctx context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, error) {
	if err := r.u.live(); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.u.state.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.ClientID != "" && b.ClientID != filter.ClientID {
			continue
		}
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PreferredDate.Equal(out[j].PreferredDate) {
			return out[i].PreferredDate.Before(out[j].PreferredDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r bookingRepo) Insert(ctx context.Context, b *domainbooking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, exists := r.u.state.bookings[b.ID]; exists {
		return fmt.Errorf("memory: booking %s already exists", b.ID)
	}
	for _, other := range r.u.state.bookings {
		if other.Reference == b.Reference {
			return domainbooking.ErrDuplicateReference
		}
	}
	stored := b.Clone()
	stored.Version = 1
	b.Version = 1
	r.u.state.bookings[b.ID] = stored
	return nil
}

func (r bookingRepo) Save(ctx context.Context, b *domainbooking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	current, ok := r.u.state.bookings[b.ID]
	if !ok {
		return domainbooking.ErrNotFound
	}
	b.Version = current.Version + 1
	r.u.state.bookings[b.ID] = b.Clone()
	return nil
}

func (r bookingRepo) Delete(ctx context.Context, id domainbooking.BookingID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, ok := r.u.state.bookings[id]; !ok {
		return domainbooking.ErrNotFound
	}
	delete(r.u.state.bookings, id)
	return nil
}

type slotRepo struct{ u *Unit }

func (r slotRepo) ByID(ctx context.Context, id domainavailability.SlotID) (*domainavailability.Slot, error) {
	if err := r.u.live(); err != nil {
		return nil, err
	}
	s, ok := r.u.state.slots[id]
	if !ok {
		return nil, domainavailability.ErrSlotNotFound
	}
	return s.Clone(), nil
}

func (r slotRepo) Overlapping(ctx context.Context, resource domainavailability.ResourceID, rng timerange.Range) ([]*domainavailability.Slot, error) {
	return r.collect(func(s *domainavailability.Slot) bool {
		return s.ResourceID == resource && s.Range.Overlaps(rng)
	})
}

func (r slotRepo) InRange(ctx context.Context, resource domainavailability.ResourceID, rng timerange.Range) ([]*domainavailability.Slot, error) {
	return r.collect(func(s *domainavailability.Slot) bool {
		if resource != "" && s.ResourceID != resource {
			return false
		}
		return !s.Range.Start.Before(rng.Start) && s.Range.Start.Before(rng.End)
	})
}

func (r slotRepo) ByBooking(ctx context.Context, bookingID string) ([]*domainavailability.Slot, error) {
	return r.collect(func(s *domainavailability.Slot) bool {
		return s.BookingID != nil && *s.BookingID == bookingID
	})
}

func (r slotRepo) collect(match func(*domainavailability.Slot) bool) ([]*domainavailability.Slot, error) {
	if err := r.u.live(); err != nil {
		return nil, err
	}
	out := make([]*domainavailability.Slot, 0)
	for _, s := range r.u.state.slots {
		if match(s) {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Range.Start.Equal(out[j].Range.Start) {
			return out[i].Range.Start.Before(out[j].Range.Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r slotRepo) Insert(ctx context.Context, slot *domainavailability.Slot) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, exists := r.u.state.slots[slot.ID]; exists {
		return fmt.Errorf("memory: slot %s already exists", slot.ID)
	}
	r.u.state.slots[slot.ID] = slot.Clone()
	return nil
}

func (r slotRepo) Save(ctx context.Context, slot *domainavailability.Slot) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, ok := r.u.state.slots[slot.ID]; !ok {
		return domainavailability.ErrSlotNotFound
	}
	r.u.state.slots[slot.ID] = slot.Clone()
	return nil
}

func (r slotRepo) Delete(ctx context.Context, id domainavailability.SlotID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, ok := r.u.state.slots[id]; !ok {
		return domainavailability.ErrSlotNotFound
	}
	delete(r.u.state.slots, id)
	return nil
}

type engagementRepo struct{ u *Unit }

func (r engagementRepo) ByID(ctx context.Context, id string) (*domainrecords.Engagement, error) {
	if err := r.u.live(); err != nil {
		return nil, err
	}
	e, ok := r.u.state.engagements[id]
	if !ok {
		return nil, domainrecords.ErrEngagementNotFound
	}
	return &e, nil
}

func (r engagementRepo) ByBooking(ctx context.Context, bookingID string) (*domainrecords.Engagement, error) {
	if err := r.u.live(); err != nil {
		return nil, err
	}
	for _, e := range r.u.state.engagements {
		if e.BookingID == bookingID {
			found := e
			return &found, nil
		}
	}
	return nil, domainrecords.ErrEngagementNotFound
}

func (r engagementRepo) Insert(ctx context.Context, e *domainrecords.Engagement) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, exists := r.u.state.engagements[e.ID]; exists {
		return fmt.Errorf("memory: engagement %s already exists", e.ID)
	}
	r.u.state.engagements[e.ID] = *e
	return nil
}

type financialRepo struct{ u *Unit }

func (r financialRepo) ByID(ctx context.Context, id string) (*domainrecords.FinancialRecord, error) {
	if err := r.u.live(); err != nil {
		return nil, err
	}
	rec, ok := r.u.state.financial[id]
	if !ok {
		return nil, domainrecords.ErrFinancialNotFound
	}
	return &rec, nil
}

func (r financialRepo) ByEngagement(ctx context.Context, engagementID string) ([]*domainrecords.FinancialRecord, error) {
	if err := r.u.live(); err != nil {
		return nil, err
	}
	out := make([]*domainrecords.FinancialRecord, 0)
	for _, rec := range r.u.state.financial {
		if rec.EngagementID == engagementID {
			found := rec
			out = append(out, &found)
		}
	}
	return out, nil
}

func (r financialRepo) Insert(ctx context.Context, rec *domainrecords.FinancialRecord) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, exists := r.u.state.financial[rec.ID]; exists {
		return fmt.Errorf("memory: financial record %s already exists", rec.ID)
	}
	r.u.state.financial[rec.ID] = *rec
	return nil
}

func (r financialRepo) Count(ctx context.Context, prefix string) (int, error) {
	if err := r.u.live(); err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range r.u.state.financial {
		if strings.HasPrefix(rec.Number, prefix) {
			n++
		}
	}
	return n, nil
}

type legalRepo struct{ u *Unit }

func (r legalRepo) ByID(ctx context.Context, id string) (*domainrecords.LegalRecord, error) {
	if err := r.u.live(); err != nil {
		return nil, err
	}
	rec, ok := r.u.state.legal[id]
	if !ok {
		return nil, domainrecords.ErrLegalNotFound
	}
	return &rec, nil
}

func (r legalRepo) ByEngagement(ctx context.Context, engagementID string) ([]*domainrecords.LegalRecord, error) {
	if err := r.u.live(); err != nil {
		return nil, err
	}
	out := make([]*domainrecords.LegalRecord, 0)
	for _, rec := range r.u.state.legal {
		if rec.EngagementID == engagementID {
			found := rec
			out = append(out, &found)
		}
	}
	return out, nil
}

func (r legalRepo) Insert(ctx context.Context, rec *domainrecords.LegalRecord) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	if _, exists := r.u.state.legal[rec.ID]; exists {
		return fmt.Errorf("memory: legal record %s already exists", rec.ID)
	}
	r.u.state.legal[rec.ID] = *rec
	return nil
}
