package booking

import "time"

type Created struct {
	BookingID BookingID `json:"booking_id"`
	Reference Reference `json:"reference"`
	ClientID  string    `json:"client_id"`
	Preferred time.Time `json:"preferred_date"`
	At        time.Time `json:"at"`
}

func (e Created) EventName() string     { return "booking.created" }
func (e Created) AggregateID() string   { return string(e.BookingID) }
func (e Created) OccurredAt() time.Time { return e.At }

type Confirmed struct {
	BookingID  BookingID  `json:"booking_id"`
	ResourceID ResourceID `json:"resource_id"`
	At         time.Time  `json:"at"`
}

func (e Confirmed) EventName() string     { return "booking.confirmed" }
func (e Confirmed) AggregateID() string   { return string(e.BookingID) }
func (e Confirmed) OccurredAt() time.Time { return e.At }

type Declined struct {
	BookingID BookingID `json:"booking_id"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

func (e Declined) EventName() string     { return "booking.declined" }
func (e Declined) AggregateID() string   { return string(e.BookingID) }
func (e Declined) OccurredAt() time.Time { return e.At }

type Cancelled struct {
	BookingID     BookingID `json:"booking_id"`
	ReleasedSlots int       `json:"released_slots"`
	At            time.Time `json:"at"`
}

func (e Cancelled) EventName() string     { return "booking.cancelled" }
func (e Cancelled) AggregateID() string   { return string(e.BookingID) }
func (e Cancelled) OccurredAt() time.Time { return e.At }

type Reopened struct {
	BookingID  BookingID  `json:"booking_id"`
	ResourceID ResourceID `json:"resource_id"`
	At         time.Time  `json:"at"`
}

func (e Reopened) EventName() string     { return "booking.reopened" }
func (e Reopened) AggregateID() string   { return string(e.BookingID) }
func (e Reopened) OccurredAt() time.Time { return e.At }

type Converted struct {
	BookingID    BookingID `json:"booking_id"`
	EngagementID string    `json:"engagement_id"`
	At           time.Time `json:"at"`
}

func (e Converted) EventName() string     { return "booking.converted" }
func (e Converted) AggregateID() string   { return string(e.BookingID) }
func (e Converted) OccurredAt() time.Time { return e.At }
