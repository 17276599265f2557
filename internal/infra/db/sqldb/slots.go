package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domainavailability "shutterbook/internal/domain/availability"
	"shutterbook/internal/domain/shared/timerange"
)

type slotRepo struct{ u *Unit }

func (r slotRepo) ByID(ctx context.Context, id domainavailability.SlotID) (*domainavailability.Slot, error) {
	var row slotRow
	if err := r.u.get(ctx, &row, `SELECT `+slotColumns+` FROM availability_slots WHERE id = ?`, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainavailability.ErrSlotNotFound
		}
		return nil, fmt.Errorf("sqldb: load slot: %w", err)
	}
	return row.toDomain(), nil
}

func (r slotRepo) Overlapping(ctx context.Context, resource domainavailability.ResourceID, rng timerange.Range) ([]*domainavailability.Slot, error) {
	return r.many(ctx, `SELECT `+slotColumns+` FROM availability_slots
		WHERE resource_id = ? AND start_at < ? AND end_at > ?
		ORDER BY start_at, id`, string(resource), millis(rng.End), millis(rng.Start))
}

func (r slotRepo) InRange(ctx context.Context, resource domainavailability.ResourceID, rng timerange.Range) ([]*domainavailability.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE start_at >= ? AND start_at < ?`
	args := []any{millis(rng.Start), millis(rng.End)}
	if resource != "" {
		query += ` AND resource_id = ?`
		args = append(args, string(resource))
	}
	return r.many(ctx, query+` ORDER BY start_at, id`, args...)
}

func (r slotRepo) ByBooking(ctx context.Context, bookingID string) ([]*domainavailability.Slot, error) {
	return r.many(ctx, `SELECT `+slotColumns+` FROM availability_slots WHERE booking_id = ? ORDER BY start_at, id`, bookingID)
}

func (r slotRepo) many(ctx context.Context, query string, args ...any) ([]*domainavailability.Slot, error) {
	var rows []slotRow
	if err := r.u.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sqldb: query slots: %w", err)
	}
	out := make([]*domainavailability.Slot, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r slotRepo) Insert(ctx context.Context, slot *domainavailability.Slot) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	query := `INSERT INTO availability_slots (` + slotColumns + `) VALUES (
		:id, :resource_id, :start_at, :end_at, :is_booked, :is_blocked, :recurrence, :booking_id, :notes, :created_at, :updated_at)`
	if _, err := r.u.tx.NamedExecContext(ctx, query, toSlotRow(slot)); err != nil {
		return fmt.Errorf("sqldb: insert slot: %w", err)
	}
	return nil
}

func (r slotRepo) Save(ctx context.Context, slot *domainavailability.Slot) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	query := `UPDATE availability_slots SET
		start_at = :start_at, end_at = :end_at, is_booked = :is_booked, is_blocked = :is_blocked,
		recurrence = :recurrence, booking_id = :booking_id, notes = :notes, updated_at = :updated_at
		WHERE id = :id`
	res, err := r.u.tx.NamedExecContext(ctx, query, toSlotRow(slot))
	if err != nil {
		return fmt.Errorf("sqldb: save slot: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domainavailability.ErrSlotNotFound
	}
	return nil
}

func (r slotRepo) Delete(ctx context.Context, id domainavailability.SlotID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	n, err := r.u.exec(ctx, `DELETE FROM availability_slots WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("sqldb: delete slot: %w", err)
	}
	if n == 0 {
		return domainavailability.ErrSlotNotFound
	}
	return nil
}
