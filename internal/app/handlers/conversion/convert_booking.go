package conversion

import (
	"context"
	"errors"
	"fmt"
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
	domainrecords "shutterbook/internal/domain/records"
	"shutterbook/internal/domain/shared/money"
)

const (
	convertBookingKey = "booking.convert"

	defaultCurrency = "USD"
	defaultDueDays  = 14
)

var ErrGeneratorMissing = errors.New("conversion: financial record generator not configured")

type ConvertBookingCommand struct {
	BookingID       string
	IdempotencyKeyV string
}

func (c ConvertBookingCommand) Key() string { return convertBookingKey }
func (c ConvertBookingCommand) AdminOnly()  {}

func (c ConvertBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ConvertBookingCommand) ResultPrototype() any { return &dto.ConversionResult{} }

// ConvertBookingHandler turns a confirmed booking into an engagement, a draft
// financial record and a draft legal record. It writes only through the unit
// of work in ctx, so any failure leaves the store untouched.
type ConvertBookingHandler struct {
	Packages        policies.PackageCatalog
	Financial       policies.FinancialRecordGenerator
	Effects         *support.Effects
	Logger          *slog.Logger
	Clock           func() time.Time
	IDs             func() string
	DefaultCurrency string
	DueDays         int
}

func (h *ConvertBookingHandler) Handle(ctx context.Context, cmd ConvertBookingCommand) (*dto.ConversionResult, error) {
	if h.Financial == nil {
		return nil, ErrGeneratorMissing
	}
	unit, err := uow.MustFromContext(ctx)
	if err != nil {
		return nil, err
	}
	b, err := unit.Bookings().ForUpdate(ctx, domainbooking.BookingID(strings.TrimSpace(cmd.BookingID)))
	if err != nil {
		return nil, err
	}
	if err := b.EnsureConvertible(); err != nil {
		return nil, err
	}
	if _, err := unit.Engagements().ByBooking(ctx, string(b.ID)); err == nil {
		return nil, domainbooking.ErrAlreadyConverted
	} else if !errors.Is(err, domainrecords.ErrEngagementNotFound) {
		return nil, err
	}

	now := support.Clock(h.Clock)
	hours, minutes := b.DurationSplit()
	price, err := h.resolvePrice(ctx, b)
	if err != nil {
		return nil, err
	}

	engagement, err := domainrecords.NewEngagement(domainrecords.NewEngagementParams{
		ID:               support.NewID(h.IDs),
		BookingID:        string(b.ID),
		BookingReference: string(b.Reference),
		ClientID:         b.ClientID,
		ResourceID:       string(*b.ResourceID),
		EventType:        b.EventType,
		Date:             b.PreferredDate,
		Start:            b.PreferredStart,
		Hours:            hours,
		Minutes:          minutes,
		Location:         b.Location,
		Price:            price,
		CreatedAt:        now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Engagements().Insert(ctx, engagement); err != nil {
		return nil, fmt.Errorf("create engagement: %w", err)
	}

	financial, err := h.Financial.CreateDraft(ctx, policies.DraftRequest{
		ClientID:     b.ClientID,
		EngagementID: engagement.ID,
		Amount:       price,
		DueDate:      now.AddDate(0, 0, h.dueDays()),
		Notes:        fmt.Sprintf("%s photography, booking %s", b.EventType, b.Reference),
	})
	if err != nil {
		return nil, fmt.Errorf("create financial record: %w", err)
	}

	window := engagement.Window()
	legal, err := domainrecords.NewLegalRecord(domainrecords.NewLegalParams{
		ID:           support.NewID(h.IDs),
		ClientID:     b.ClientID,
		EngagementID: engagement.ID,
		Terms: domainrecords.ContractTerms{
			EventType:    b.EventType,
			Date:         engagement.Date,
			Start:        window.Start,
			End:          window.End,
			Location:     b.Location,
			Hours:        hours,
			Minutes:      minutes,
			Price:        price,
			Requirements: b.SpecialRequirements,
		},
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	if err := unit.LegalRecords().Insert(ctx, legal); err != nil {
		return nil, fmt.Errorf("create legal record: %w", err)
	}

	if err := b.MarkConverted(engagement.ID, now); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Engagement %s scheduled from booking %s; draft financial record %s (%s); draft legal record %s created",
		engagement.ID, b.Reference, financial.ID, financial.Number, legal.ID)
	h.Effects.After(ctx, support.Entry(policies.AuditCreated, "engagement", engagement.ID, string(b.Reference), desc, now), b)
	if h.Logger != nil {
		h.Logger.Info("booking converted", "booking_id", b.ID, "engagement_id", engagement.ID,
			"financial_record_id", financial.ID, "legal_record_id", legal.ID)
	}

	return &dto.ConversionResult{
		BookingID:             string(b.ID),
		BookingReference:      string(b.Reference),
		EngagementID:          engagement.ID,
		FinancialRecordID:     financial.ID,
		FinancialRecordNumber: financial.Number,
		LegalRecordID:         legal.ID,
		Hours:                 hours,
		Minutes:               minutes,
		Price:                 dto.MapMoney(price),
	}, nil
}

// resolvePrice prefers the booking estimate, then the package price, then
// zero.
func (h *ConvertBookingHandler) resolvePrice(ctx context.Context, b *domainbooking.Booking) (money.Money, error) {
	if b.EstimatedPrice != nil {
		return *b.EstimatedPrice, nil
	}
	if b.PackageID != nil && h.Packages != nil {
		price, ok, err := h.Packages.PackagePrice(ctx, *b.PackageID)
		if err != nil {
			return money.Money{}, err
		}
		if ok {
			return price, nil
		}
	}
	currency := h.DefaultCurrency
	if currency == "" {
		currency = defaultCurrency
	}
	return money.Zero(currency), nil
}

func (h *ConvertBookingHandler) dueDays() int {
	if h.DueDays > 0 {
		return h.DueDays
	}
	return defaultDueDays
}

var (
	_ commands.Handler[ConvertBookingCommand, *dto.ConversionResult] = (*ConvertBookingHandler)(nil)
	_ middleware.IdempotentCommand                                   = ConvertBookingCommand{}
)
