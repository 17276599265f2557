package availability

import (
	"context"
	"errors"
	"fmt"
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
	"shutterbook/internal/domain/shared/timerange"
)

const (
	createSlotKey      = "availability.slot.create"
	createRecurringKey = "availability.slot.recurring"
	blockSlotKey       = "availability.slot.block"
	deleteSlotKey      = "availability.slot.delete"
	releaseSlotKey     = "availability.slot.release"
	bookSlotKey        = "availability.slot.book"
)

type CreateSlotCommand struct {
	ResourceID string
	Start      time.Time
	End        time.Time
	Notes      string
}

func (c CreateSlotCommand) Key() string { return createSlotKey }
func (c CreateSlotCommand) AdminOnly()  {}

type CreateSlotHandler struct{ *Scheduler }

func (h CreateSlotHandler) Handle(ctx context.Context, cmd CreateSlotCommand) (*dto.SlotView, error) {
	slot, err := h.place(ctx, cmd.ResourceID, cmd.Start, cmd.End, false, cmd.Notes)
	if err != nil {
		return nil, err
	}
	h.Effects.After(ctx, support.Entry(policies.AuditCreated, "availability_slot", string(slot.ID), slotLabel(slot),
		"Availability slot created", slot.CreatedAt), slot)
	h.log("availability slot created", slot)
	view := dto.MapSlot(slot)
	return &view, nil
}

type BlockSlotCommand struct {
	ResourceID string
	Start      time.Time
	End        time.Time
	Notes      string
}

func (c BlockSlotCommand) Key() string { return blockSlotKey }
func (c BlockSlotCommand) AdminOnly()  {}

type BlockSlotHandler struct{ *Scheduler }

func (h BlockSlotHandler) Handle(ctx context.Context, cmd BlockSlotCommand) (*dto.SlotView, error) {
	slot, err := h.place(ctx, cmd.ResourceID, cmd.Start, cmd.End, true, cmd.Notes)
	if err != nil {
		return nil, err
	}
	h.Effects.After(ctx, support.Entry(policies.AuditCreated, "availability_slot", string(slot.ID), slotLabel(slot),
		"Time blocked", slot.CreatedAt), slot)
	h.log("time slot blocked", slot)
	view := dto.MapSlot(slot)
	return &view, nil
}

type CreateRecurringCommand struct {
	ResourceID string
	Weekday    time.Weekday
	StartTime  string
	EndTime    string
	Until      time.Time
	Notes      string
}

func (c CreateRecurringCommand) Key() string { return createRecurringKey }
func (c CreateRecurringCommand) AdminOnly()  {}

type CreateRecurringHandler struct{ *Scheduler }

// Handle creates one slot per week and skips, without failing, every week
// whose window overlaps an existing slot.
func (h CreateRecurringHandler) Handle(ctx context.Context, cmd CreateRecurringCommand) (*dto.RecurringResult, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	from, err := timerange.ParseTimeOfDay(strings.TrimSpace(cmd.StartTime))
	if err != nil {
		return nil, domainavailability.ErrInvalidInterval.Wrap(err)
	}
	to, err := timerange.ParseTimeOfDay(strings.TrimSpace(cmd.EndTime))
	if err != nil {
		return nil, domainavailability.ErrInvalidInterval.Wrap(err)
	}
	plan := domainavailability.WeeklyPlan{
		ResourceID: domainavailability.ResourceID(strings.TrimSpace(cmd.ResourceID)),
		Weekday:    cmd.Weekday,
		From:       from,
		To:         to,
		Until:      cmd.Until,
	}
	now := support.Clock(h.Clock)
	if err := plan.Validate(now); err != nil {
		return nil, err
	}
	if err := h.ensureResource(ctx, plan.ResourceID); err != nil {
		return nil, err
	}
	if err := unit.LockResource(ctx, string(plan.ResourceID)); err != nil {
		return nil, err
	}

	result := &dto.RecurringResult{Created: []dto.SlotView{}, Skipped: []string{}}
	var created []events.Source
	for _, window := range plan.Occurrences(now) {
		weekday := cmd.Weekday
		slot, err := domainavailability.NewSlot(domainavailability.NewSlotParams{
			ID:         domainavailability.SlotID(support.NewID(h.IDs)),
			ResourceID: plan.ResourceID,
			Range:      window,
			Recurrence: &weekday,
			Notes:      cmd.Notes,
			CreatedAt:  now,
		})
		if err != nil {
			return nil, err
		}
		err = insert(ctx, unit, slot)
		switch {
		case err == nil:
			result.Created = append(result.Created, dto.MapSlot(slot))
			created = append(created, slot)
		case errors.Is(err, domainavailability.ErrOverlap):
			result.Skipped = append(result.Skipped, window.Start.Format("2006-01-02"))
		default:
			return nil, err
		}
	}

	desc := fmt.Sprintf("Recurring %s availability %s-%s: %d created, %d skipped",
		cmd.Weekday, from, to, len(result.Created), len(result.Skipped))
	h.Effects.After(ctx, support.Entry(policies.AuditCreated, "availability_slot", string(plan.ResourceID),
		"recurring "+cmd.Weekday.String(), desc, now), created...)
	if h.Logger != nil {
		h.Logger.Info("recurring availability created", "resource_id", plan.ResourceID, "weekday", cmd.Weekday,
			"created", len(result.Created), "skipped", len(result.Skipped))
	}
	return result, nil
}

type DeleteSlotCommand struct {
	SlotID string
}

func (c DeleteSlotCommand) Key() string { return deleteSlotKey }
func (c DeleteSlotCommand) AdminOnly()  {}

type DeleteSlotHandler struct{ *Scheduler }

func (h DeleteSlotHandler) Handle(ctx context.Context, cmd DeleteSlotCommand) (*dto.DeletedResult, error) {
	unit, slot, err := h.lockedSlot(ctx, cmd.SlotID)
	if err != nil {
		return nil, err
	}
	now := support.Clock(h.Clock)
	if err := slot.MarkDeleted(now); err != nil {
		return nil, err
	}
	if err := unit.Slots().Delete(ctx, slot.ID); err != nil {
		return nil, err
	}
	h.Effects.After(ctx, support.Entry(policies.AuditDeleted, "availability_slot", string(slot.ID), slotLabel(slot),
		"Availability slot deleted", now), slot)
	h.log("availability slot deleted", slot)
	return &dto.DeletedResult{ID: string(slot.ID), Deleted: true}, nil
}

type ReleaseSlotCommand struct {
	SlotID string
}

func (c ReleaseSlotCommand) Key() string { return releaseSlotKey }
func (c ReleaseSlotCommand) AdminOnly()  {}

type ReleaseSlotHandler struct{ *Scheduler }

func (h ReleaseSlotHandler) Handle(ctx context.Context, cmd ReleaseSlotCommand) (*dto.SlotView, error) {
	unit, slot, err := h.lockedSlot(ctx, cmd.SlotID)
	if err != nil {
		return nil, err
	}
	now := support.Clock(h.Clock)
	slot.Release(now)
	if err := unit.Slots().Save(ctx, slot); err != nil {
		return nil, err
	}
	h.Effects.After(ctx, support.Entry(policies.AuditUpdated, "availability_slot", string(slot.ID), slotLabel(slot),
		"Availability slot released", now), slot)
	h.log("availability slot released", slot)
	view := dto.MapSlot(slot)
	return &view, nil
}

type BookSlotCommand struct {
	SlotID    string
	BookingID string
}

func (c BookSlotCommand) Key() string { return bookSlotKey }
func (c BookSlotCommand) AdminOnly()  {}

type BookSlotHandler struct{ *Scheduler }

func (h BookSlotHandler) Handle(ctx context.Context, cmd BookSlotCommand) (*dto.SlotView, error) {
	unit, slot, err := h.lockedSlot(ctx, cmd.SlotID)
	if err != nil {
		return nil, err
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	holder, err := b.SlotHolder()
	if err != nil {
		return nil, err
	}
	if string(holder) != string(slot.ResourceID) {
		return nil, domainavailability.ErrSlotResource
	}
	now := support.Clock(h.Clock)
	if err := slot.Book(string(b.ID), now); err != nil {
		return nil, err
	}
	if err := unit.Slots().Save(ctx, slot); err != nil {
		return nil, err
	}
	h.Effects.After(ctx, support.Entry(policies.AuditUpdated, "availability_slot", string(slot.ID), slotLabel(slot),
		"Availability slot booked for "+string(b.Reference), now))
	h.log("availability slot booked", slot)
	view := dto.MapSlot(slot)
	return &view, nil
}

// lockedSlot loads a slot and takes its resource lock before returning it.
func (s *Scheduler) lockedSlot(ctx context.Context, id string) (uow.UnitOfWork, *domainavailability.Slot, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	slotID := domainavailability.SlotID(strings.TrimSpace(id))
	slot, err := unit.Slots().ByID(ctx, slotID)
	if err != nil {
		return nil, nil, err
	}
	if err := unit.LockResource(ctx, string(slot.ResourceID)); err != nil {
		return nil, nil, err
	}
	// Re-read under the lock so the flags are current.
	slot, err = unit.Slots().ByID(ctx, slotID)
	if err != nil {
		return nil, nil, err
	}
	return unit, slot, nil
}

var (
	_ commands.Handler[CreateSlotCommand, *dto.SlotView]             = CreateSlotHandler{}
	_ commands.Handler[BlockSlotCommand, *dto.SlotView]              = BlockSlotHandler{}
	_ commands.Handler[CreateRecurringCommand, *dto.RecurringResult] = CreateRecurringHandler{}
	_ commands.Handler[DeleteSlotCommand, *dto.DeletedResult]        = DeleteSlotHandler{}
	_ commands.Handler[ReleaseSlotCommand, *dto.SlotView]            = ReleaseSlotHandler{}
	_ commands.Handler[BookSlotCommand, *dto.SlotView]               = BookSlotHandler{}
)
