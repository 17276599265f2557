package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domainrecords "shutterbook/internal/domain/records"
)

type engagementRepo struct{ u *Unit }

func (r engagementRepo) one(ctx context.Context, query string, arg string) (*domainrecords.Engagement, error) {
	var row engagementRow
	if err := r.u.get(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainrecords.ErrEngagementNotFound
		}
		return nil, fmt.Errorf("sqldb: load engagement: %w", err)
	}
	return row.toDomain(), nil
}

func (r engagementRepo) ByID(ctx context.Context, id string) (*domainrecords.Engagement, error) {
	return r.one(ctx, `SELECT `+engagementColumns+` FROM engagements WHERE id = ?`, id)
}

func (r engagementRepo) ByBooking(ctx context.Context, bookingID string) (*domainrecords.Engagement, error) {
	return r.one(ctx, `SELECT `+engagementColumns+` FROM engagements WHERE booking_id = ?`, bookingID)
}

func (r engagementRepo) Insert(ctx context.Context, e *domainrecords.Engagement) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	query := `INSERT INTO engagements (` + engagementColumns + `) VALUES (
		:id, :booking_id, :booking_reference, :client_id, :resource_id, :event_type, :date_at,
		:start_minute, :hours, :minutes, :location, :price_amount, :price_currency, :status, :notes, :created_at)`
	if _, err := r.u.tx.NamedExecContext(ctx, query, toEngagementRow(e)); err != nil {
		return fmt.Errorf("sqldb: insert engagement: %w", err)
	}
	return nil
}

type financialRepo struct{ u *Unit }

func (r financialRepo) ByID(ctx context.Context, id string) (*domainrecords.FinancialRecord, error) {
	var row financialRow
	if err := r.u.get(ctx, &row, `SELECT `+financialColumns+` FROM financial_records WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainrecords.ErrFinancialNotFound
		}
		return nil, fmt.Errorf("sqldb: load financial record: %w", err)
	}
	return row.toDomain(), nil
}

func (r financialRepo) ByEngagement(ctx context.Context, engagementID string) ([]*domainrecords.FinancialRecord, error) {
	var rows []financialRow
	if err := r.u.selectAll(ctx, &rows, `SELECT `+financialColumns+` FROM financial_records WHERE engagement_id = ? ORDER BY created_at, id`, engagementID); err != nil {
		return nil, fmt.Errorf("sqldb: list financial records: %w", err)
	}
	out := make([]*domainrecords.FinancialRecord, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r financialRepo) Insert(ctx context.Context, rec *domainrecords.FinancialRecord) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	row := financialRow{
		ID:           rec.ID,
		Number:       rec.Number,
		ClientID:     rec.ClientID,
		EngagementID: rec.EngagementID,
		Amount:       rec.Amount.Amount,
		Currency:     rec.Amount.Currency,
		Status:       string(rec.Status),
		DueDate:      millis(rec.DueDate),
		Notes:        rec.Notes,
		CreatedAt:    millis(rec.CreatedAt),
	}
	query := `INSERT INTO financial_records (` + financialColumns + `) VALUES (
		:id, :number, :client_id, :engagement_id, :amount, :currency, :status, :due_date, :notes, :created_at)`
	if _, err := r.u.tx.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("sqldb: insert financial record: %w", err)
	}
	return nil
}

func (r financialRepo) Count(ctx context.Context, prefix string) (int, error) {
	var n int
	if err := r.u.get(ctx, &n, `SELECT COUNT(*) FROM financial_records WHERE number LIKE ?`, prefix+"%"); err != nil {
		return 0, fmt.Errorf("sqldb: count financial records: %w", err)
	}
	return n, nil
}

type legalRepo struct{ u *Unit }

func (r legalRepo) ByID(ctx context.Context, id string) (*domainrecords.LegalRecord, error) {
	var row legalRow
	if err := r.u.get(ctx, &row, `SELECT `+legalColumns+` FROM legal_records WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainrecords.ErrLegalNotFound
		}
		return nil, fmt.Errorf("sqldb: load legal record: %w", err)
	}
	return row.toDomain(), nil
}

func (r legalRepo) ByEngagement(ctx context.Context, engagementID string) ([]*domainrecords.LegalRecord, error) {
	var rows []legalRow
	if err := r.u.selectAll(ctx, &rows, `SELECT `+legalColumns+` FROM legal_records WHERE engagement_id = ? ORDER BY created_at, id`, engagementID); err != nil {
		return nil, fmt.Errorf("sqldb: list legal records: %w", err)
	}
	out := make([]*domainrecords.LegalRecord, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func (r legalRepo) Insert(ctx context.Context, rec *domainrecords.LegalRecord) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	row := legalRow{
		ID:           rec.ID,
		ClientID:     rec.ClientID,
		EngagementID: rec.EngagementID,
		Title:        rec.Title,
		Content:      rec.Content,
		Status:       string(rec.Status),
		CreatedAt:    millis(rec.CreatedAt),
	}
	query := `INSERT INTO legal_records (` + legalColumns + `) VALUES (
		:id, :client_id, :engagement_id, :title, :content, :status, :created_at)`
	if _, err := r.u.tx.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("sqldb: insert legal record: %w", err)
	}
	return nil
}
