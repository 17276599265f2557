package dto

import (
	"time"

	domainbooking "shutterbook/internal/domain/booking"
	"shutterbook/internal/domain/shared/money"
)

const dateLayout = "2006-01-02"

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(m money.Money) MoneyDTO {
	return MoneyDTO{Amount: m.Amount, Currency: m.Currency}
}

type BookingView struct {
	ID                  string     `json:"id"`
	Reference           string     `json:"reference"`
	ClientID            string     `json:"client_id"`
	ResourceID          *string    `json:"resource_id,omitempty"`
	PackageID           *string    `json:"package_id,omitempty"`
	EventType           string     `json:"event_type"`
	PreferredDate       string     `json:"preferred_date"`
	AlternativeDate     *string    `json:"alternative_date,omitempty"`
	PreferredStart      string     `json:"preferred_start"`
	DurationHours       float64    `json:"duration_hours"`
	Location            string     `json:"location"`
	SpecialRequirements string     `json:"special_requirements,omitempty"`
	EstimatedPrice      *MoneyDTO  `json:"estimated_price,omitempty"`
	Status              string     `json:"status"`
	StatusLabel         string     `json:"status_label"`
	AdminNotes          string     `json:"admin_notes,omitempty"`
	DeclineReason       string     `json:"decline_reason,omitempty"`
	EngagementID        *string    `json:"engagement_id,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	ConfirmedAt         *time.Time `json:"confirmed_at,omitempty"`
	DeclinedAt          *time.Time `json:"declined_at,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
}

type BookingCollection struct {
	Items []BookingView `json:"items"`
}

func MapBooking(b *domainbooking.Booking) BookingView {
	view := BookingView{
		ID:                  string(b.ID),
		Reference:           string(b.Reference),
		ClientID:            b.ClientID,
		PackageID:           copyString(b.PackageID),
		EventType:           b.EventType,
		PreferredDate:       b.PreferredDate.Format(dateLayout),
		PreferredStart:      b.PreferredStart.String(),
		DurationHours:       b.DurationHours,
		Location:            b.Location,
		SpecialRequirements: b.SpecialRequirements,
		Status:              string(b.Status),
		StatusLabel:         b.Status.Label(),
		AdminNotes:          b.AdminNotes,
		DeclineReason:       b.DeclineReason,
		EngagementID:        copyString(b.EngagementID),
		CreatedAt:           b.CreatedAt,
		UpdatedAt:           b.UpdatedAt,
		ConfirmedAt:         b.ConfirmedAt,
		DeclinedAt:          b.DeclinedAt,
		CancelledAt:         b.CancelledAt,
	}
	if b.ResourceID != nil {
		id := string(*b.ResourceID)
		view.ResourceID = &id
	}
	if b.AlternativeDate != nil {
		alt := b.AlternativeDate.Format(dateLayout)
		view.AlternativeDate = &alt
	}
	if b.EstimatedPrice != nil {
		m := MapMoney(*b.EstimatedPrice)
		view.EstimatedPrice = &m
	}
	return view
}

func MapBookings(items []*domainbooking.Booking) BookingCollection {
	out := BookingCollection{Items: make([]BookingView, 0, len(items))}
	for _, b := range items {
		out.Items = append(out.Items, MapBooking(b))
	}
	return out
}

// DeletedResult acknowledges an administrative removal.
type DeletedResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
