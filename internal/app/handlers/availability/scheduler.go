package availability

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"shutterbook/internal/app/handlers/support"
	"shutterbook/internal/app/policies"
	"shutterbook/internal/app/uow"
	domainavailability "shutterbook/internal/domain/availability"
	"shutterbook/internal/domain/shared/timerange"
)

// Scheduler holds the dependencies shared by the slot handlers.
type Scheduler struct {
	Resources policies.ResourceDirectory
	Effects   *support.Effects
	Logger    *slog.Logger
	Clock     func() time.Time
	IDs       func() string
}

func (s *Scheduler) ensureResource(ctx context.Context, id domainavailability.ResourceID) error {
	if strings.TrimSpace(string(id)) == "" {
		return domainavailability.ErrResourceRequired
	}
	if s.Resources == nil {
		return nil
	}
	ok, err := s.Resources.ResourceExists(ctx, string(id))
	if err != nil {
		return err
	}
	if !ok {
		return domainavailability.ErrResourceNotFound
	}
	return nil
}

// insert stores slot after checking it against every slot of its resource.
// The caller must hold the resource lock.
func insert(ctx context.Context, unit uow.UnitOfWork, slot *domainavailability.Slot) error {
	existing, err := unit.Slots().Overlapping(ctx, slot.ResourceID, slot.Range)
	if err != nil {
		return err
	}
	if domainavailability.AnyOverlap(existing, slot.Range) {
		return domainavailability.ErrOverlap
	}
	return unit.Slots().Insert(ctx, slot)
}

// place validates, locks, checks overlap and inserts one slot.
func (s *Scheduler) place(ctx context.Context, resourceID string, start, end time.Time, blocked bool, notes string) (*domainavailability.Slot, error) {
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	now := support.Clock(s.Clock)
	slot, err := domainavailability.NewSlot(domainavailability.NewSlotParams{
		ID:         domainavailability.SlotID(support.NewID(s.IDs)),
		ResourceID: domainavailability.ResourceID(strings.TrimSpace(resourceID)),
		Range:      timerange.Range{Start: start, End: end},
		Blocked:    blocked,
		Notes:      notes,
		CreatedAt:  now,
	})
	if err != nil {
		return nil, err
	}
	if err := s.ensureResource(ctx, slot.ResourceID); err != nil {
		return nil, err
	}
	if err := unit.LockResource(ctx, string(slot.ResourceID)); err != nil {
		return nil, err
	}
	if err := insert(ctx, unit, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

func (s *Scheduler) log(msg string, slot *domainavailability.Slot) {
	if s.Logger != nil {
		s.Logger.Info(msg, "slot_id", slot.ID, "resource_id", slot.ResourceID,
			"start", slot.Range.Start, "end", slot.Range.End)
	}
}

func slotLabel(slot *domainavailability.Slot) string {
	return slot.Range.Start.Format("2006-01-02 15:04") + "-" + slot.Range.End.Format("15:04")
}
