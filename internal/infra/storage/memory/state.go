package memory

import (
	domainavailability "shutterbook/internal/domain/availability"
	domainbooking "shutterbook/internal/domain/booking"
	domainrecords "shutterbook/internal/domain/records"
)

type state struct {
	bookings    map[domainbooking.BookingID]*domainbooking.Booking
	slots       map[domainavailability.SlotID]*domainavailability.Slot
	engagements map[string]domainrecords.Engagement
	financial   map[string]domainrecords.FinancialRecord
	legal       map[string]domainrecords.LegalRecord
}

func newState() *state {
	return &state{
		bookings:    make(map[domainbooking.BookingID]*domainbooking.Booking),
		slots:       make(map[domainavailability.SlotID]*domainavailability.Slot),
		engagements: make(map[string]domainrecords.Engagement),
		financial:   make(map[string]domainrecords.FinancialRecord),
		legal:       make(map[string]domainrecords.LegalRecord),
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.bookings {
		out.bookings[k] = v.Clone()
	}
	for k, v := range s.slots {
		out.slots[k] = v.Clone()
	}
	for k, v := range s.engagements {
		out.engagements[k] = v
	}
	for k, v := range s.financial {
		out.financial[k] = v
	}
	for k, v := range s.legal {
		out.legal[k] = v
	}
	return out
}
