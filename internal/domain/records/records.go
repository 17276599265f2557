package records

import (
	"context"
	"strings"
	"time"

	"shutterbook/internal/domain/shared/apperr"
	"shutterbook/internal/domain/shared/money"
	"shutterbook/internal/domain/shared/timerange"
)

const (
	EngagementScheduled EngagementStatus = "Scheduled"
	FinancialDraft      FinancialStatus  = "Draft"
	LegalDraft          LegalStatus      = "Draft"
)

var (
	ErrEngagementNotFound = apperr.NotFound("EngagementNotFound", "engagement not found")
	ErrFinancialNotFound  = apperr.NotFound("FinancialRecordNotFound", "financial record not found")
	ErrLegalNotFound      = apperr.NotFound("LegalRecordNotFound", "legal record not found")
	ErrBookingRequired    = apperr.Validation("BookingRequired", "engagement must reference a booking")
	ErrResourceRequired   = apperr.Validation("EngagementResourceRequired", "engagement must reference a photographer")
	ErrEngagementRequired = apperr.Validation("EngagementRequired", "record must reference an engagement")
)

type (
	EngagementStatus string
	FinancialStatus  string
	LegalStatus      string
)

// Engagement is the scheduled job produced by converting a booking.
type Engagement struct {
	ID               string
	BookingID        string
	BookingReference string
	ClientID         string
	ResourceID       string
	EventType        string
	Date             time.Time
	Start            timerange.TimeOfDay
	Hours            int
	Minutes          int
	Location         string
	Price            money.Money
	Status           EngagementStatus
	Notes            string
	CreatedAt        time.Time
}

type NewEngagementParams struct {
	ID               string
	BookingID        string
	BookingReference string
	ClientID         string
	ResourceID       string
	EventType        string
	Date             time.Time
	Start            timerange.TimeOfDay
	Hours            int
	Minutes          int
	Location         string
	Price            money.Money
	CreatedAt        time.Time
}

func NewEngagement(p NewEngagementParams) (*Engagement, error) {
	if strings.TrimSpace(p.BookingID) == "" {
		return nil, ErrBookingRequired
	}
	if strings.TrimSpace(p.ResourceID) == "" {
		return nil, ErrResourceRequired
	}
	return &Engagement{
		ID:               p.ID,
		BookingID:        p.BookingID,
		BookingReference: p.BookingReference,
		ClientID:         p.ClientID,
		ResourceID:       p.ResourceID,
		EventType:        p.EventType,
		Date:             timerange.DateOf(p.Date),
		Start:            p.Start,
		Hours:            p.Hours,
		Minutes:          p.Minutes,
		Location:         p.Location,
		Price:            p.Price,
		Status:           EngagementScheduled,
		Notes:            "Created from booking " + p.BookingReference,
		CreatedAt:        p.CreatedAt.UTC(),
	}, nil
}

// Window returns the engagement's start and end on its date.
func (e *Engagement) Window() timerange.Range {
	start := e.Start.On(e.Date)
	end := start.Add(time.Duration(e.Hours)*time.Hour + time.Duration(e.Minutes)*time.Minute)
	return timerange.Range{Start: start, End: end}
}

// FinancialRecord is a draft invoice owned by the invoicing subsystem after
// creation.
type FinancialRecord struct {
	ID           string
	Number       string
	ClientID     string
	EngagementID string
	Amount       money.Money
	Status       FinancialStatus
	DueDate      time.Time
	Notes        string
	CreatedAt    time.Time
}

// LegalRecord is a draft contract generated from the engagement.
type LegalRecord struct {
	ID           string
	ClientID     string
	EngagementID string
	Title        string
	Content      string
	Status       LegalStatus
	CreatedAt    time.Time
}

type EngagementRepository interface {
	ByID(ctx context.Context, id string) (*Engagement, error)
	ByBooking(ctx context.Context, bookingID string) (*Engagement, error)
	Insert(ctx context.Context, e *Engagement) error
}

type FinancialRepository interface {
	ByID(ctx context.Context, id string) (*FinancialRecord, error)
	ByEngagement(ctx context.Context, engagementID string) ([]*FinancialRecord, error)
	Insert(ctx context.Context, r *FinancialRecord) error
	// Count returns the number of records whose number begins with prefix.
	Count(ctx context.Context, prefix string) (int, error)
}

type LegalRepository interface {
	ByID(ctx context.Context, id string) (*LegalRecord, error)
	ByEngagement(ctx context.Context, engagementID string) ([]*LegalRecord, error)
	Insert(ctx context.Context, r *LegalRecord) error
}
