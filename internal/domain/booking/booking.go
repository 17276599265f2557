package booking

import (
	"context"
	"math"
	"strings"
	"time"

	"shutterbook/internal/domain/shared/apperr"
	"shutterbook/internal/domain/shared/events"
	"shutterbook/internal/domain/shared/money"
	"shutterbook/internal/domain/shared/timerange"
)

const (
	MinDurationHours = 0.5
	MaxDurationHours = 12.0
)

var (
	ErrNotFound            = apperr.NotFound("NotFound", "booking not found")
	ErrClientNotFound      = apperr.NotFound("ClientNotFound", "client not found")
	ErrResourceNotFound    = apperr.NotFound("ResourceNotFound", "photographer not found")
	ErrClientRequired      = apperr.Validation("ClientRequired", "client reference is required")
	ErrEventTypeRequired   = apperr.Validation("EventTypeRequired", "event type is required")
	ErrLocationRequired    = apperr.Validation("LocationRequired", "location is required")
	ErrPreferredDateInPast = apperr.Validation("PastDate", "preferred date must not be in the past")
	ErrInvalidDuration     = apperr.Validation("InvalidDuration", "estimated duration must be between 0.5 and 12 hours")
	ErrInvalidReference    = apperr.Validation("InvalidReference", "booking reference must match BK-YYMMDD-NNNN")
	ErrReasonRequired      = apperr.Validation("ReasonRequired", "a decline reason is required")
	ErrDuplicateReference  = apperr.Conflict("DuplicateReference", "booking reference already exists")
	ErrNotPendingConfirm   = apperr.StateTransition("NotPendingConfirm", "only pending bookings can be confirmed")
	ErrNotPendingDecline   = apperr.StateTransition("NotPendingDecline", "only pending bookings can be declined")
	ErrNotPendingEdit      = apperr.StateTransition("NotPendingEdit", "only pending bookings can be edited")
	ErrNotCancelledReopen  = apperr.StateTransition("NotCancelledReopen", "only cancelled bookings can be reopened")
	ErrNotConfirmedConvert = apperr.StateTransition("InvalidState", "only confirmed bookings can be converted")
	ErrNotConfirmedSlot    = apperr.StateTransition("NotConfirmedSlot", "only confirmed bookings can hold a slot")
	ErrCannotCancel        = apperr.StateTransition("CannotCancel", "booking cannot be cancelled from its current status")
	ErrAlreadyCompleted    = apperr.StateTransition("AlreadyCompleted", "completed bookings cannot be cancelled")
	ErrNoResourceAssigned  = apperr.Precondition("NoResourceAssigned", "no photographer is assigned to this booking")
	ErrAlreadyConverted    = apperr.Precondition("AlreadyConverted", "booking has already been converted to an engagement")
)

type BookingID string

type ResourceID string

type Booking struct {
	ID                  BookingID
	Reference           Reference
	ClientID            string
	ResourceID          *ResourceID
	PackageID           *string
	EventType           string
	PreferredDate       time.Time
	AlternativeDate     *time.Time
	PreferredStart      timerange.TimeOfDay
	DurationHours       float64
	Location            string
	SpecialRequirements string
	EstimatedPrice      *money.Money
	Status              Status
	AdminNotes          string
	DeclineReason       string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ConfirmedAt         *time.Time
	DeclinedAt          *time.Time
	CancelledAt         *time.Time
	EngagementID        *string
	Version             int64
	events.Recorder
}

// Filter narrows ListBookings; empty fields match everything.
type Filter struct {
	Status   Status
	ClientID string
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	ByReference(ctx context.Context, ref Reference) (*Booking, error)
	// ForUpdate loads the booking and holds it for the rest of the unit of work.
	ForUpdate(ctx context.Context, id BookingID) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, error)
	Insert(ctx context.Context, b *Booking) error
	Save(ctx context.Context, b *Booking) error
	Delete(ctx context.Context, id BookingID) error
}

// Details are the client-editable attributes shared by create and update.
type Details struct {
	ClientID            string
	ResourceID          *ResourceID
	PackageID           *string
	EventType           string
	PreferredDate       time.Time
	AlternativeDate     *time.Time
	PreferredStart      timerange.TimeOfDay
	DurationHours       float64
	Location            string
	SpecialRequirements string
	EstimatedPrice      *money.Money
}

type CreateParams struct {
	ID        BookingID
	Reference Reference
	Details
	CreatedAt time.Time
}

func (d Details) validate(now time.Time) error {
	if strings.TrimSpace(d.ClientID) == "" {
		return ErrClientRequired
	}
	if strings.TrimSpace(d.EventType) == "" {
		return ErrEventTypeRequired
	}
	if strings.TrimSpace(d.Location) == "" {
		return ErrLocationRequired
	}
	if timerange.DateOf(d.PreferredDate).Before(timerange.DateOf(now)) {
		return ErrPreferredDateInPast
	}
	if math.IsNaN(d.DurationHours) || d.DurationHours < MinDurationHours || d.DurationHours > MaxDurationHours {
		return ErrInvalidDuration
	}
	return nil
}

// NewBooking validates a request and returns it Pending. A reference is
// generated when none is supplied.
func NewBooking(params CreateParams) (*Booking, error) {
	now := params.CreatedAt.UTC()
	if err := params.Details.validate(now); err != nil {
		return nil, err
	}
	ref := params.Reference
	if ref == "" {
		generated, err := NewReference(now)
		if err != nil {
			return nil, err
		}
		ref = generated
	} else if !ref.Valid() {
		return nil, ErrInvalidReference
	}
	b := &Booking{
		ID:        params.ID,
		Reference: ref,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.apply(params.Details)
	b.Record(Created{BookingID: b.ID, Reference: b.Reference, ClientID: b.ClientID, Preferred: b.PreferredDate, At: now})
	return b, nil
}

func (b *Booking) apply(d Details) {
	b.ClientID = strings.TrimSpace(d.ClientID)
	b.ResourceID = d.ResourceID
	b.PackageID = d.PackageID
	b.EventType = strings.TrimSpace(d.EventType)
	b.PreferredDate = timerange.DateOf(d.PreferredDate)
	if d.AlternativeDate != nil {
		alt := timerange.DateOf(*d.AlternativeDate)
		b.AlternativeDate = &alt
	} else {
		b.AlternativeDate = nil
	}
	b.PreferredStart = d.PreferredStart
	b.DurationHours = d.DurationHours
	b.Location = strings.TrimSpace(d.Location)
	b.SpecialRequirements = strings.TrimSpace(d.SpecialRequirements)
	b.EstimatedPrice = d.EstimatedPrice
}

// Details returns the editable attributes, the starting point for a patch.
func (b *Booking) Details() Details {
	return Details{
		ClientID:            b.ClientID,
		ResourceID:          b.ResourceID,
		PackageID:           b.PackageID,
		EventType:           b.EventType,
		PreferredDate:       b.PreferredDate,
		AlternativeDate:     b.AlternativeDate,
		PreferredStart:      b.PreferredStart,
		DurationHours:       b.DurationHours,
		Location:            b.Location,
		SpecialRequirements: b.SpecialRequirements,
		EstimatedPrice:      b.EstimatedPrice,
	}
}

// Update replaces the editable attributes of a pending booking. The
// reference never changes.
func (b *Booking) Update(d Details, now time.Time) error {
	if b.Status != StatusPending {
		return ErrNotPendingEdit
	}
	if err := d.validate(now); err != nil {
		return err
	}
	b.apply(d)
	b.UpdatedAt = now.UTC()
	return nil
}

// ResolveConfirmResource guards the Pending→Confirmed move and picks the
// override over the current assignment.
func (b *Booking) ResolveConfirmResource(override *ResourceID) (ResourceID, error) {
	if b.Status != StatusPending {
		return "", ErrNotPendingConfirm
	}
	if override != nil && strings.TrimSpace(string(*override)) != "" {
		return ResourceID(strings.TrimSpace(string(*override))), nil
	}
	if b.ResourceID != nil && *b.ResourceID != "" {
		return *b.ResourceID, nil
	}
	return "", ErrNoResourceAssigned
}

// Confirm moves a pending booking to Confirmed with the resolved resource.
// Existence of the resource is checked by the caller.
func (b *Booking) Confirm(resource ResourceID, adminNotes string, now time.Time) error {
	if b.Status != StatusPending {
		return ErrNotPendingConfirm
	}
	if resource == "" {
		return ErrNoResourceAssigned
	}
	now = now.UTC()
	b.ResourceID = &resource
	if notes := strings.TrimSpace(adminNotes); notes != "" {
		b.AdminNotes = notes
	}
	b.Status = StatusConfirmed
	b.ConfirmedAt = &now
	b.UpdatedAt = now
	b.Record(Confirmed{BookingID: b.ID, ResourceID: resource, At: now})
	return nil
}

func (b *Booking) Decline(reason string, now time.Time) error {
	if b.Status != StatusPending {
		return ErrNotPendingDecline
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	now = now.UTC()
	b.Status = StatusDeclined
	b.DeclineReason = reason
	b.DeclinedAt = &now
	b.UpdatedAt = now
	b.Record(Declined{BookingID: b.ID, Reason: reason, At: now})
	return nil
}

// Cancel records the cancellation. Releasing slots is the caller's job since
// slots belong to the availability aggregate.
func (b *Booking) Cancel(releasedSlots int, now time.Time) error {
	if b.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}
	if !b.Status.CanTransitionTo(StatusCancelled) {
		return ErrCannotCancel
	}
	now = now.UTC()
	b.Status = StatusCancelled
	b.CancelledAt = &now
	b.UpdatedAt = now
	b.Record(Cancelled{BookingID: b.ID, ReleasedSlots: releasedSlots, At: now})
	return nil
}

// EnsureCancellable reports whether Cancel would succeed, so slot release can
// happen before the booking row is rewritten.
func (b *Booking) EnsureCancellable() error {
	if b.Status == StatusCompleted {
		return ErrAlreadyCompleted
	}
	if !b.Status.CanTransitionTo(StatusCancelled) {
		return ErrCannotCancel
	}
	return nil
}

// ResolveReopenResource guards Cancelled→Confirmed and returns the resource
// that must still exist.
func (b *Booking) ResolveReopenResource() (ResourceID, error) {
	if b.Status != StatusCancelled {
		return "", ErrNotCancelledReopen
	}
	if b.ResourceID == nil || *b.ResourceID == "" {
		return "", ErrNoResourceAssigned
	}
	return *b.ResourceID, nil
}

// Reopen returns a cancelled booking to Confirmed. The released slot is not
// re-reserved.
func (b *Booking) Reopen(now time.Time) error {
	resource, err := b.ResolveReopenResource()
	if err != nil {
		return err
	}
	now = now.UTC()
	b.Status = StatusConfirmed
	b.ConfirmedAt = &now
	b.UpdatedAt = now
	b.Record(Reopened{BookingID: b.ID, ResourceID: resource, At: now})
	return nil
}

// EnsureConvertible checks the conversion preconditions in order.
// SlotHolder returns the photographer whose slots this booking may hold.
// Only a confirmed booking with an assignment qualifies.
func (b *Booking) SlotHolder() (ResourceID, error) {
	if b.Status != StatusConfirmed {
		return "", ErrNotConfirmedSlot
	}
	if b.ResourceID == nil || *b.ResourceID == "" {
		return "", ErrNoResourceAssigned
	}
	return *b.ResourceID, nil
}

func (b *Booking) EnsureConvertible() error {
	// A linked engagement wins over the status check so a repeated conversion
	// reports AlreadyConverted rather than the Completed status.
	if b.EngagementID != nil {
		return ErrAlreadyConverted
	}
	if b.Status != StatusConfirmed {
		return ErrNotConfirmedConvert
	}
	if b.ResourceID == nil || *b.ResourceID == "" {
		return ErrNoResourceAssigned
	}
	return nil
}

// MarkConverted links the engagement and completes the booking.
func (b *Booking) MarkConverted(engagementID string, now time.Time) error {
	if err := b.EnsureConvertible(); err != nil {
		return err
	}
	now = now.UTC()
	b.EngagementID = &engagementID
	b.Status = StatusCompleted
	b.UpdatedAt = now
	b.Record(Converted{BookingID: b.ID, EngagementID: engagementID, At: now})
	return nil
}

// DurationSplit splits the fractional duration into whole hours and minutes.
func (b *Booking) DurationSplit() (hours, minutes int) {
	return SplitHours(b.DurationHours)
}

func SplitHours(h float64) (hours, minutes int) {
	total := int(math.Round(h * 60))
	return total / 60, total % 60
}

// Window is the requested time window on the preferred date.
func (b *Booking) Window() timerange.Range {
	start := b.PreferredStart.On(b.PreferredDate)
	hours, minutes := b.DurationSplit()
	end := start.Add(time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute)
	return timerange.Range{Start: start, End: end}
}

// Clone returns a deep copy without pending events.
func (b *Booking) Clone() *Booking {
	out := *b
	out.Recorder = events.Recorder{}
	out.ResourceID = clonePtr(b.ResourceID)
	out.PackageID = clonePtr(b.PackageID)
	out.AlternativeDate = clonePtr(b.AlternativeDate)
	out.EstimatedPrice = clonePtr(b.EstimatedPrice)
	out.ConfirmedAt = clonePtr(b.ConfirmedAt)
	out.DeclinedAt = clonePtr(b.DeclinedAt)
	out.CancelledAt = clonePtr(b.CancelledAt)
	out.EngagementID = clonePtr(b.EngagementID)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
