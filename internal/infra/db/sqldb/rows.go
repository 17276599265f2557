package sqldb

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	domainavailability "shutterbook/internal/domain/availability"
	domainbooking "shutterbook/internal/domain/booking"
	domainrecords "shutterbook/internal/domain/records"
	"shutterbook/internal/domain/shared/money"
	"shutterbook/internal/domain/shared/timerange"
)

// Instants are stored as Unix milliseconds in UTC.

func millis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: millis(*t), Valid: true}
}

func fromNullMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

type bookingRow struct {
	ID                  string         `db:"id"`
	Reference           string         `db:"reference"`
	ClientID            string         `db:"client_id"`
	ResourceID          sql.NullString `db:"resource_id"`
	PackageID           sql.NullString `db:"package_id"`
	EventType           string         `db:"event_type"`
	PreferredDate       int64          `db:"preferred_date"`
	AlternativeDate     sql.NullInt64  `db:"alternative_date"`
	PreferredStart      int            `db:"preferred_start"`
	DurationHours       float64        `db:"duration_hours"`
	Location            string         `db:"location"`
	SpecialRequirements string         `db:"special_requirements"`
	EstimatedAmount     sql.NullInt64  `db:"estimated_amount"`
	EstimatedCurrency   sql.NullString `db:"estimated_currency"`
	Status              string         `db:"status"`
	AdminNotes          string         `db:"admin_notes"`
	DeclineReason       string         `db:"decline_reason"`
	CreatedAt           int64          `db:"created_at"`
	UpdatedAt           int64          `db:"updated_at"`
	ConfirmedAt         sql.NullInt64  `db:"confirmed_at"`
	DeclinedAt          sql.NullInt64  `db:"declined_at"`
	CancelledAt         sql.NullInt64  `db:"cancelled_at"`
	EngagementID        sql.NullString `db:"engagement_id"`
	Version             int64          `db:"version"`
}

const bookingColumns = `id, reference, client_id, resource_id, package_id, event_type, preferred_date,
	alternative_date, preferred_start, duration_hours, location, special_requirements, estimated_amount,
	estimated_currency, status, admin_notes, decline_reason, created_at, updated_at, confirmed_at,
	declined_at, cancelled_at, engagement_id, version`

func toBookingRow(b *domainbooking.Booking) bookingRow {
	row := bookingRow{
		ID:                  string(b.ID),
		Reference:           string(b.Reference),
		ClientID:            b.ClientID,
		PackageID:           nullString(b.PackageID),
		EventType:           b.EventType,
		PreferredDate:       millis(b.PreferredDate),
		AlternativeDate:     nullMillis(b.AlternativeDate),
		PreferredStart:      int(b.PreferredStart),
		DurationHours:       b.DurationHours,
		Location:            b.Location,
		SpecialRequirements: b.SpecialRequirements,
		Status:              string(b.Status),
		AdminNotes:          b.AdminNotes,
		DeclineReason:       b.DeclineReason,
		CreatedAt:           millis(b.CreatedAt),
		UpdatedAt:           millis(b.UpdatedAt),
		ConfirmedAt:         nullMillis(b.ConfirmedAt),
		DeclinedAt:          nullMillis(b.DeclinedAt),
		CancelledAt:         nullMillis(b.CancelledAt),
		EngagementID:        nullString(b.EngagementID),
		Version:             b.Version,
	}
	if b.ResourceID != nil {
		row.ResourceID = sql.NullString{String: string(*b.ResourceID), Valid: true}
	}
	if b.EstimatedPrice != nil {
		row.EstimatedAmount = sql.NullInt64{Int64: b.EstimatedPrice.Amount, Valid: true}
		row.EstimatedCurrency = sql.NullString{String: b.EstimatedPrice.Currency, Valid: true}
	}
	return row
}

func (r bookingRow) toDomain() *domainbooking.Booking {
	b := &domainbooking.Booking{
		ID:                  domainbooking.BookingID(r.ID),
		Reference:           domainbooking.Reference(r.Reference),
		ClientID:            r.ClientID,
		PackageID:           fromNullString(r.PackageID),
		EventType:           r.EventType,
		PreferredDate:       fromMillis(r.PreferredDate),
		AlternativeDate:     fromNullMillis(r.AlternativeDate),
		PreferredStart:      timerange.TimeOfDay(r.PreferredStart),
		DurationHours:       r.DurationHours,
		Location:            r.Location,
		SpecialRequirements: r.SpecialRequirements,
		Status:              domainbooking.Status(r.Status),
		AdminNotes:          r.AdminNotes,
		DeclineReason:       r.DeclineReason,
		CreatedAt:           fromMillis(r.CreatedAt),
		UpdatedAt:           fromMillis(r.UpdatedAt),
		ConfirmedAt:         fromNullMillis(r.ConfirmedAt),
		DeclinedAt:          fromNullMillis(r.DeclinedAt),
		CancelledAt:         fromNullMillis(r.CancelledAt),
		EngagementID:        fromNullString(r.EngagementID),
		Version:             r.Version,
	}
	if r.ResourceID.Valid {
		id := domainbooking.ResourceID(r.ResourceID.String)
		b.ResourceID = &id
	}
	if r.EstimatedAmount.Valid {
		b.EstimatedPrice = &money.Money{Amount: r.EstimatedAmount.Int64, Currency: r.EstimatedCurrency.String}
	}
	return b
}

type slotRow struct {
	ID         string         `db:"id"`
	ResourceID string         `db:"resource_id"`
	StartAt    int64          `db:"start_at"`
	EndAt      int64          `db:"end_at"`
	IsBooked   bool           `db:"is_booked"`
	IsBlocked  bool           `db:"is_blocked"`
	Recurrence sql.NullInt64  `db:"recurrence"`
	BookingID  sql.NullString `db:"booking_id"`
	Notes      string         `db:"notes"`
	CreatedAt  int64          `db:"created_at"`
	UpdatedAt  int64          `db:"updated_at"`
}

const slotColumns = `id, resource_id, start_at, end_at, is_booked, is_blocked, recurrence, booking_id, notes, created_at, updated_at`

func toSlotRow(s *domainavailability.Slot) slotRow {
	row := slotRow{
		ID:         string(s.ID),
		ResourceID: string(s.ResourceID),
		StartAt:    millis(s.Range.Start),
		EndAt:      millis(s.Range.End),
		IsBooked:   s.IsBooked,
		IsBlocked:  s.IsBlocked,
		BookingID:  nullString(s.BookingID),
		Notes:      s.Notes,
		CreatedAt:  millis(s.CreatedAt),
		UpdatedAt:  millis(s.UpdatedAt),
	}
	if s.Recurrence != nil {
		row.Recurrence = sql.NullInt64{Int64: int64(*s.Recurrence), Valid: true}
	}
	return row
}

func (r slotRow) toDomain() *domainavailability.Slot {
	s := &domainavailability.Slot{
		ID:         domainavailability.SlotID(r.ID),
		ResourceID: domainavailability.ResourceID(r.ResourceID),
		Range:      timerange.Range{Start: fromMillis(r.StartAt), End: fromMillis(r.EndAt)},
		IsBooked:   r.IsBooked,
		IsBlocked:  r.IsBlocked,
		BookingID:  fromNullString(r.BookingID),
		Notes:      r.Notes,
		CreatedAt:  fromMillis(r.CreatedAt),
		UpdatedAt:  fromMillis(r.UpdatedAt),
	}
	if r.Recurrence.Valid {
		wd := time.Weekday(r.Recurrence.Int64)
		s.Recurrence = &wd
	}
	return s
}

type engagementRow struct {
	ID               string `db:"id"`
	BookingID        string `db:"booking_id"`
	BookingReference string `db:"booking_reference"`
	ClientID         string `db:"client_id"`
	ResourceID       string `db:"resource_id"`
	EventType        string `db:"event_type"`
	DateAt           int64  `db:"date_at"`
	StartMinute      int    `db:"start_minute"`
	Hours            int    `db:"hours"`
	Minutes          int    `db:"minutes"`
	Location         string `db:"location"`
	PriceAmount      int64  `db:"price_amount"`
	PriceCurrency    string `db:"price_currency"`
	Status           string `db:"status"`
	Notes            string `db:"notes"`
	CreatedAt        int64  `db:"created_at"`
}

const engagementColumns = `id, booking_id, booking_reference, client_id, resource_id, event_type, date_at,
	start_minute, hours, minutes, location, price_amount, price_currency, status, notes, created_at`

func toEngagementRow(e *domainrecords.Engagement) engagementRow {
	return engagementRow{
		ID:               e.ID,
		BookingID:        e.BookingID,
		BookingReference: e.BookingReference,
		ClientID:         e.ClientID,
		ResourceID:       e.ResourceID,
		EventType:        e.EventType,
		DateAt:           millis(e.Date),
		StartMinute:      int(e.Start),
		Hours:            e.Hours,
		Minutes:          e.Minutes,
		Location:         e.Location,
		PriceAmount:      e.Price.Amount,
		PriceCurrency:    e.Price.Currency,
		Status:           string(e.Status),
		Notes:            e.Notes,
		CreatedAt:        millis(e.CreatedAt),
	}
}

func (r engagementRow) toDomain() *domainrecords.Engagement {
	return &domainrecords.Engagement{
		ID:               r.ID,
		BookingID:        r.BookingID,
		BookingReference: r.BookingReference,
		ClientID:         r.ClientID,
		ResourceID:       r.ResourceID,
		EventType:        r.EventType,
		Date:             fromMillis(r.DateAt),
		Start:            timerange.TimeOfDay(r.StartMinute),
		Hours:            r.Hours,
		Minutes:          r.Minutes,
		Location:         r.Location,
		Price:            money.Money{Amount: r.PriceAmount, Currency: r.PriceCurrency},
		Status:           domainrecords.EngagementStatus(r.Status),
		Notes:            r.Notes,
		CreatedAt:        fromMillis(r.CreatedAt),
	}
}

type financialRow struct {
	ID           string `db:"id"`
	Number       string `db:"number"`
	ClientID     string `db:"client_id"`
	EngagementID string `db:"engagement_id"`
	Amount       int64  `db:"amount"`
	Currency     string `db:"currency"`
	Status       string `db:"status"`
	DueDate      int64  `db:"due_date"`
	Notes        string `db:"notes"`
	CreatedAt    int64  `db:"created_at"`
}

const financialColumns = `id, number, client_id, engagement_id, amount, currency, status, due_date, notes, created_at`

func (r financialRow) toDomain() *domainrecords.FinancialRecord {
	return &domainrecords.FinancialRecord{
		ID:           r.ID,
		Number:       r.Number,
		ClientID:     r.ClientID,
		EngagementID: r.EngagementID,
		Amount:       money.Money{Amount: r.Amount, Currency: r.Currency},
		Status:       domainrecords.FinancialStatus(r.Status),
		DueDate:      fromMillis(r.DueDate),
		Notes:        r.Notes,
		CreatedAt:    fromMillis(r.CreatedAt),
	}
}

type legalRow struct {
	ID           string `db:"id"`
	ClientID     string `db:"client_id"`
	EngagementID string `db:"engagement_id"`
	Title        string `db:"title"`
	Content      string `db:"content"`
	Status       string `db:"status"`
	CreatedAt    int64  `db:"created_at"`
}

const legalColumns = `id, client_id, engagement_id, title, content, status, created_at`

func (r legalRow) toDomain() *domainrecords.LegalRecord {
	return &domainrecords.LegalRecord{
		ID:           r.ID,
		ClientID:     r.ClientID,
		EngagementID: r.EngagementID,
		Title:        r.Title,
		Content:      r.Content,
		Status:       domainrecords.LegalStatus(r.Status),
		CreatedAt:    fromMillis(r.CreatedAt),
	}
}
