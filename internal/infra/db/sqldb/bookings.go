package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domainbooking "shutterbook/internal/domain/booking"
)

type bookingRepo struct{ u *Unit }

func (r bookingRepo) one(ctx context.Context, query string, args ...any) (*domainbooking.Booking, error) {
	var row bookingRow
	if err := r.u.get(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, fmt.Errorf("sqldb: load booking: %w", err)
	}
	return row.toDomain(), nil
}

func (r bookingRepo) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return r.one(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, string(id))
}

func (r bookingRepo) ByReference(ctx context.Context, ref domainbooking.Reference) (*domainbooking.Booking, error) {
	return r.one(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference = ?`, string(ref))
}

func (r bookingRepo) ForUpdate(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	if err := r.u.writable(); err != nil {
		return nil, err
	}
	return r.one(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`+r.u.store.dialect.ForUpdate, string(id))
}

func (r bookingRepo) List(ctx context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1 = 1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.ClientID != "" {
		query += ` AND client_id = ?`
		args = append(args, filter.ClientID)
	}
	query += ` ORDER BY preferred_date, created_at, id`
	var rows []bookingRow
	if err := r.u.selectAll(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sqldb: list bookings: %w", err)
	}
	out := make([]*domainbooking.Booking, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r bookingRepo) Insert(ctx context.Context, b *domainbooking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	b.Version = 1
	row := toBookingRow(b)
	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES (
		:id, :reference, :client_id, :resource_id, :package_id, :event_type, :preferred_date,
		:alternative_date, :preferred_start, :duration_hours, :location, :special_requirements, :estimated_amount,
		:estimated_currency, :status, :admin_notes, :decline_reason, :created_at, :updated_at, :confirmed_at,
		:declined_at, :cancelled_at, :engagement_id, :version)`
	if _, err := r.u.tx.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return domainbooking.ErrDuplicateReference
		}
		return fmt.Errorf("sqldb: insert booking: %w", err)
	}
	return nil
}

func (r bookingRepo) Save(ctx context.Context, b *domainbooking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	row := toBookingRow(b)
	query := `UPDATE bookings SET
		client_id = :client_id, resource_id = :resource_id, package_id = :package_id, event_type = :event_type,
		preferred_date = :preferred_date, alternative_date = :alternative_date, preferred_start = :preferred_start,
		duration_hours = :duration_hours, location = :location, special_requirements = :special_requirements,
		estimated_amount = :estimated_amount, estimated_currency = :estimated_currency, status = :status,
		admin_notes = :admin_notes, decline_reason = :decline_reason, updated_at = :updated_at,
		confirmed_at = :confirmed_at, declined_at = :declined_at, cancelled_at = :cancelled_at,
		engagement_id = :engagement_id, version = version + 1
		WHERE id = :id`
	res, err := r.u.tx.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("sqldb: save booking: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domainbooking.ErrNotFound
	}
	b.Version++
	return nil
}

func (r bookingRepo) Delete(ctx context.Context, id domainbooking.BookingID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	n, err := r.u.exec(ctx, `DELETE FROM bookings WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("sqldb: delete booking: %w", err)
	}
	if n == 0 {
		return domainbooking.ErrNotFound
	}
	return nil
}
