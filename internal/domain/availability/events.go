package availability

import "time"

type SlotCreated struct {
	SlotID     SlotID     `json:"slot_id"`
	ResourceID ResourceID `json:"resource_id"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	At         time.Time  `json:"at"`
}

func (e SlotCreated) EventName() string     { return "availability.slot_created" }
func (e SlotCreated) AggregateID() string   { return string(e.SlotID) }
func (e SlotCreated) OccurredAt() time.Time { return e.At }

type SlotBlocked struct {
	SlotID     SlotID     `json:"slot_id"`
	ResourceID ResourceID `json:"resource_id"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	At         time.Time  `json:"at"`
}

func (e SlotBlocked) EventName() string     { return "availability.slot_blocked" }
func (e SlotBlocked) AggregateID() string   { return string(e.SlotID) }
func (e SlotBlocked) OccurredAt() time.Time { return e.At }

type SlotReleased struct {
	SlotID     SlotID     `json:"slot_id"`
	ResourceID ResourceID `json:"resource_id"`
	BookingID  string     `json:"booking_id,omitempty"`
	At         time.Time  `json:"at"`
}

func (e SlotReleased) EventName() string     { return "availability.slot_released" }
func (e SlotReleased) AggregateID() string   { return string(e.SlotID) }
func (e SlotReleased) OccurredAt() time.Time { return e.At }

type SlotDeleted struct {
	SlotID     SlotID     `json:"slot_id"`
	ResourceID ResourceID `json:"resource_id"`
	At         time.Time  `json:"at"`
}

func (e SlotDeleted) EventName() string     { return "availability.slot_deleted" }
func (e SlotDeleted) AggregateID() string   { return string(e.SlotID) }
func (e SlotDeleted) OccurredAt() time.Time { return e.At }
