package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"shutterbook/internal/app/commands"
	"shutterbook/internal/app/dto"
	"shutterbook/internal/app/handlers/support"
	"shutterbook/internal/app/middleware"
	"shutterbook/internal/app/policies"
	"shutterbook/internal/app/uow"
	domainbooking "shutterbook/internal/domain/booking"
	"shutterbook/internal/domain/shared/apperr"
	"shutterbook/internal/domain/shared/money"
	"shutterbook/internal/domain/shared/timerange"
)

const (
	createBookingKey = "booking.create"
	updateBookingKey = "booking.update"

	// referenceAttempts bounds regeneration when a random suffix collides.
	referenceAttempts = 5
)

var ErrInvalidStartTime = apperr.Validation("InvalidStartTime", "preferred start must be HH:MM")

// BookingInput carries the client-editable attributes of a request.
type BookingInput struct {
	ClientID            string
	ResourceID          *string
	PackageID           *string
	EventType           string
	PreferredDate       time.Time
	AlternativeDate     *time.Time
	PreferredStart      string
	DurationHours       float64
	Location            string
	SpecialRequirements string
	EstimatedPrice      *money.Money
}

func (in BookingInput) details() (domainbooking.Details, error) {
	start, err := timerange.ParseTimeOfDay(strings.TrimSpace(in.PreferredStart))
	if err != nil {
		return domainbooking.Details{}, ErrInvalidStartTime.Wrap(err)
	}
	d := domainbooking.Details{
		ClientID:            in.ClientID,
		PackageID:           trimmed(in.PackageID),
		EventType:           in.EventType,
		PreferredDate:       in.PreferredDate,
		AlternativeDate:     in.AlternativeDate,
		PreferredStart:      start,
		DurationHours:       in.DurationHours,
		Location:            in.Location,
		SpecialRequirements: in.SpecialRequirements,
		EstimatedPrice:      in.EstimatedPrice,
	}
	if id := trimmed(in.ResourceID); id != nil {
		r := domainbooking.ResourceID(*id)
		d.ResourceID = &r
	}
	return d, nil
}

type CreateBookingCommand struct {
	BookingInput
	Reference       string
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &dto.BookingView{} }

type CreateBookingHandler struct {
	Clients   policies.ClientDirectory
	Resources policies.ResourceDirectory
	Effects   *support.Effects
	Logger    *slog.Logger
	Clock     func() time.Time
	IDs       func() string
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.BookingView, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	details, err := cmd.details()
	if err != nil {
		return nil, err
	}
	now := support.Clock(h.Clock)
	params := domainbooking.CreateParams{
		ID:        domainbooking.BookingID(support.NewID(h.IDs)),
		Reference: domainbooking.Reference(strings.TrimSpace(cmd.Reference)),
		Details:   details,
		CreatedAt: now,
	}
	// Shape validation runs before the directory lookups.
	if _, err := domainbooking.NewBooking(params); err != nil {
		return nil, err
	}
	if err := checkParties(ctx, h.Clients, h.Resources, details); err != nil {
		return nil, err
	}

	b, err := newUniqueBooking(ctx, unit.Bookings(), params)
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Insert(ctx, b); err != nil {
		return nil, err
	}

	h.Effects.After(ctx, support.Entry(policies.AuditCreated, "booking", string(b.ID), string(b.Reference),
		"Booking request created for "+b.EventType, now), b)
	if h.Logger != nil {
		h.Logger.Info("booking created", "booking_id", b.ID, "reference", b.Reference, "client_id", b.ClientID)
	}
	view := dto.MapBooking(b)
	return &view, nil
}

// newUniqueBooking builds the booking, regenerating the reference while it
// collides. A caller-supplied reference is never regenerated.
func newUniqueBooking(ctx context.Context, repo domainbooking.Repository, params domainbooking.CreateParams) (*domainbooking.Booking, error) {
	explicit := params.Reference != ""
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		b, err := domainbooking.NewBooking(params)
		if err != nil {
			return nil, err
		}
		_, err = repo.ByReference(ctx, b.Reference)
		switch {
		case errors.Is(err, domainbooking.ErrNotFound):
			return b, nil
		case err != nil:
			return nil, err
		case explicit:
			return nil, domainbooking.ErrDuplicateReference
		}
	}
	return nil, domainbooking.ErrDuplicateReference
}

func checkParties(ctx context.Context, clients policies.ClientDirectory, resources policies.ResourceDirectory, d domainbooking.Details) error {
	if clients != nil {
		ok, err := clients.ClientExists(ctx, d.ClientID)
		if err != nil {
			return err
		}
		if !ok {
			return domainbooking.ErrClientNotFound
		}
	}
	if d.ResourceID != nil {
		return ensureResource(ctx, resources, *d.ResourceID)
	}
	return nil
}

func ensureResource(ctx context.Context, resources policies.ResourceDirectory, id domainbooking.ResourceID) error {
	if resources == nil {
		return nil
	}
	ok, err := resources.ResourceExists(ctx, string(id))
	if err != nil {
		return err
	}
	if !ok {
		return domainbooking.ErrResourceNotFound
	}
	return nil
}

type UpdateBookingCommand struct {
	BookingID string
	BookingInput
}

func (c UpdateBookingCommand) Key() string { return updateBookingKey }

type UpdateBookingHandler struct {
	Clients   policies.ClientDirectory
	Resources policies.ResourceDirectory
	Effects   *support.Effects
	Logger    *slog.Logger
	Clock     func() time.Time
}

func (h *UpdateBookingHandler) Handle(ctx context.Context, cmd UpdateBookingCommand) (*dto.BookingView, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	b, err := unit.Bookings().ForUpdate(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	details, err := cmd.details()
	if err != nil {
		return nil, err
	}
	now := support.Clock(h.Clock)
	if err := b.Update(details, now); err != nil {
		return nil, err
	}
	if err := checkParties(ctx, h.Clients, h.Resources, details); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	h.Effects.After(ctx, support.Entry(policies.AuditUpdated, "booking", string(b.ID), string(b.Reference),
		"Booking request details updated", now), b)
	if h.Logger != nil {
		h.Logger.Info("booking updated", "booking_id", b.ID)
	}
	view := dto.MapBooking(b)
	return &view, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

var (
	_ commands.Handler[CreateBookingCommand, *dto.BookingView] = (*CreateBookingHandler)(nil)
	_ commands.Handler[UpdateBookingCommand, *dto.BookingView] = (*UpdateBookingHandler)(nil)
	_ middleware.IdempotentCommand                             = CreateBookingCommand{}
)
