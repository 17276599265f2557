package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shutterbook/internal/app/commands"
	"shutterbook/internal/app/dto"
	"shutterbook/internal/app/handlers/support"
	"shutterbook/internal/app/policies"
	"shutterbook/internal/app/uow"
	domainavailability "shutterbook/internal/domain/availability"
	domainbooking "shutterbook/internal/domain/booking"
	"shutterbook/internal/domain/shared/events"
)

const (
	confirmBookingKey = "booking.confirm"
	declineBookingKey = "booking.decline"
	cancelBookingKey  = "booking.cancel"
	reopenBookingKey  = "booking.reopen"
	deleteBookingKey  = "booking.delete"
)

type ConfirmBookingCommand struct {
	BookingID  string
	ResourceID *string
	AdminNotes string
	// SlotID optionally names a free slot of the final resource to reserve.
	SlotID string
}

func (c ConfirmBookingCommand) Key() string { return confirmBookingKey }
func (c ConfirmBookingCommand) AdminOnly()  {}

type DeclineBookingCommand struct {
	BookingID string
	Reason    string
}

func (c DeclineBookingCommand) Key() string { return declineBookingKey }
func (c DeclineBookingCommand) AdminOnly()  {}

type CancelBookingCommand struct {
	BookingID string
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

type ReopenBookingCommand struct {
	BookingID string
}

func (c ReopenBookingCommand) Key() string { return reopenBookingKey }
func (c ReopenBookingCommand) AdminOnly()  {}

type DeleteBookingCommand struct {
	BookingID string
}

func (c DeleteBookingCommand) Key() string { return deleteBookingKey }
func (c DeleteBookingCommand) AdminOnly()  {}

// lifecycle holds what every transition handler needs.
type lifecycle struct {
	Resources policies.ResourceDirectory
	Effects   *support.Effects
	Logger    *slog.Logger
	Clock     func() time.Time
}

func (l lifecycle) load(ctx context.Context, id string) (uow.UnitOfWork, *domainbooking.Booking, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	b, err := unit.Bookings().ForUpdate(ctx, domainbooking.BookingID(strings.TrimSpace(id)))
	if err != nil {
		return nil, nil, err
	}
	return unit, b, nil
}

func (l lifecycle) finish(ctx context.Context, b *domainbooking.Booking, action, description string, now time.Time, extra ...events.Source) *dto.BookingView {
	sources := append([]events.Source{b}, extra...)
	l.Effects.After(ctx, support.Entry(action, "booking", string(b.ID), string(b.Reference), description, now), sources...)
	if l.Logger != nil {
		l.Logger.Info("booking "+strings.ToLower(string(b.Status)), "booking_id", b.ID, "reference", b.Reference)
	}
	view := dto.MapBooking(b)
	return &view
}

type ConfirmBookingHandler struct{ lifecycle }

func NewConfirmBookingHandler(resources policies.ResourceDirectory, effects *support.Effects, logger *slog.Logger, clock func() time.Time) *ConfirmBookingHandler {
	return &ConfirmBookingHandler{lifecycle{Resources: resources, Effects: effects, Logger: logger, Clock: clock}}
}

func (h *ConfirmBookingHandler) Handle(ctx context.Context, cmd ConfirmBookingCommand) (*dto.BookingView, error) {
	unit, b, err := h.load(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	var override *domainbooking.ResourceID
	if id := trimmed(cmd.ResourceID); id != nil {
		r := domainbooking.ResourceID(*id)
		override = &r
	}
	resource, err := b.ResolveConfirmResource(override)
	if err != nil {
		return nil, err
	}
	if err := ensureResource(ctx, h.Resources, resource); err != nil {
		return nil, err
	}
	now := support.Clock(h.Clock)

	var slot *domainavailability.Slot
	if slotID := strings.TrimSpace(cmd.SlotID); slotID != "" {
		if err := unit.LockResource(ctx, string(resource)); err != nil {
			return nil, err
		}
		slot, err = unit.Slots().ByID(ctx, domainavailability.SlotID(slotID))
		if err != nil {
			return nil, err
		}
		if string(slot.ResourceID) != string(resource) {
			return nil, domainavailability.ErrSlotResource
		}
		if err := slot.Book(string(b.ID), now); err != nil {
			return nil, err
		}
		if err := unit.Slots().Save(ctx, slot); err != nil {
			return nil, err
		}
	}

	if err := b.Confirm(resource, cmd.AdminNotes, now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("Updated - confirmed with photographer %s", resource)
	if slot != nil {
		return h.finish(ctx, b, policies.AuditUpdated, desc, now, slot), nil
	}
	return h.finish(ctx, b, policies.AuditUpdated, desc, now), nil
}

type DeclineBookingHandler struct{ lifecycle }

func NewDeclineBookingHandler(effects *support.Effects, logger *slog.Logger, clock func() time.Time) *DeclineBookingHandler {
	return &DeclineBookingHandler{lifecycle{Effects: effects, Logger: logger, Clock: clock}}
}

func (h *DeclineBookingHandler) Handle(ctx context.Context, cmd DeclineBookingCommand) (*dto.BookingView, error) {
	unit, b, err := h.load(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	now := support.Clock(h.Clock)
	if err := b.Decline(cmd.Reason, now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	return h.finish(ctx, b, policies.AuditUpdated, "Updated - declined: "+b.DeclineReason, now), nil
}

type CancelBookingHandler struct{ lifecycle }

func NewCancelBookingHandler(effects *support.Effects, logger *slog.Logger, clock func() time.Time) *CancelBookingHandler {
	return &CancelBookingHandler{lifecycle{Effects: effects, Logger: logger, Clock: clock}}
}

// Handle cancels the booking and releases every slot it occupies in the same
// unit of work.
func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.BookingView, error) {
	unit, b, err := h.load(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if err := b.EnsureCancellable(); err != nil {
		return nil, err
	}
	now := support.Clock(h.Clock)
	released, err := releaseSlots(ctx, unit, string(b.ID), now)
	if err != nil {
		return nil, err
	}
	if err := b.Cancel(len(released), now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("Updated - cancelled, %d slot(s) released", len(released))
	return h.finish(ctx, b, policies.AuditUpdated, desc, now, released...), nil
}

// releaseSlots un-books every slot referencing bookingID.
func releaseSlots(ctx context.Context, unit uow.UnitOfWork, bookingID string, now time.Time) ([]events.Source, error) {
	slots, err := unit.Slots().ByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	released := make([]events.Source, 0, len(slots))
	for _, s := range slots {
		if err := unit.LockResource(ctx, string(s.ResourceID)); err != nil {
			return nil, err
		}
		s.Release(now)
		if err := unit.Slots().Save(ctx, s); err != nil {
			return nil, err
		}
		released = append(released, s)
	}
	return released, nil
}

type ReopenBookingHandler struct{ lifecycle }

func NewReopenBookingHandler(resources policies.ResourceDirectory, effects *support.Effects, logger *slog.Logger, clock func() time.Time) *ReopenBookingHandler {
	return &ReopenBookingHandler{lifecycle{Resources: resources, Effects: effects, Logger: logger, Clock: clock}}
}

// Handle returns a cancelled booking to Confirmed. Slots released by the
// cancellation stay free.
func (h *ReopenBookingHandler) Handle(ctx context.Context, cmd ReopenBookingCommand) (*dto.BookingView, error) {
	unit, b, err := h.load(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	resource, err := b.ResolveReopenResource()
	if err != nil {
		return nil, err
	}
	if err := ensureResource(ctx, h.Resources, resource); err != nil {
		return nil, err
	}
	now := support.Clock(h.Clock)
	if err := b.Reopen(now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	return h.finish(ctx, b, policies.AuditUpdated, "Updated - reopened", now), nil
}

type DeleteBookingHandler struct{ lifecycle }

func NewDeleteBookingHandler(effects *support.Effects, logger *slog.Logger, clock func() time.Time) *DeleteBookingHandler {
	return &DeleteBookingHandler{lifecycle{Effects: effects, Logger: logger, Clock: clock}}
}

// Handle removes the booking whatever its status. Slots pointing at it are
// released first so no back-reference dangles.
func (h *DeleteBookingHandler) Handle(ctx context.Context, cmd DeleteBookingCommand) (*dto.DeletedResult, error) {
	unit, b, err := h.load(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	now := support.Clock(h.Clock)
	released, err := releaseSlots(ctx, unit, string(b.ID), now)
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Delete(ctx, b.ID); err != nil {
		return nil, err
	}
	h.Effects.After(ctx, support.Entry(policies.AuditDeleted, "booking", string(b.ID), string(b.Reference),
		"Booking request deleted", now), released...)
	if h.Logger != nil {
		h.Logger.Info("booking deleted", "booking_id", b.ID, "status", b.Status)
	}
	return &dto.DeletedResult{ID: string(b.ID), Deleted: true}, nil
}

var (
	_ commands.Handler[ConfirmBookingCommand, *dto.BookingView]  = (*ConfirmBookingHandler)(nil)
	_ commands.Handler[DeclineBookingCommand, *dto.BookingView]  = (*DeclineBookingHandler)(nil)
	_ commands.Handler[CancelBookingCommand, *dto.BookingView]   = (*CancelBookingHandler)(nil)
	_ commands.Handler[ReopenBookingCommand, *dto.BookingView]   = (*ReopenBookingHandler)(nil)
	_ commands.Handler[DeleteBookingCommand, *dto.DeletedResult] = (*DeleteBookingHandler)(nil)
)
