package booking

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"shutterbook/internal/app/dto"
	"shutterbook/internal/app/handlers/support"
	"shutterbook/internal/app/queries"
	"shutterbook/internal/app/uow"
	domainbooking "shutterbook/internal/domain/booking"
	"shutterbook/internal/domain/shared/apperr"
)

const (
	getBookingKey   = "booking.get"
	listBookingsKey = "booking.list"
)

var ErrInvalidStatusFilter = apperr.Validation("InvalidStatus", "unknown booking status")

// GetBookingQuery looks a booking up by surrogate id or BK- reference.
type GetBookingQuery struct {
	IDOrReference string
}

func (q GetBookingQuery) Key() string { return getBookingKey }

type GetBookingHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (*dto.BookingView, error) {
	needle := strings.TrimSpace(q.IDOrReference)
	if needle == "" {
		return nil, domainbooking.ErrNotFound
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	var b *domainbooking.Booking
	if domainbooking.LooksLikeReference(needle) {
		b, err = unit.Bookings().ByReference(execCtx, domainbooking.Reference(needle))
	} else {
		b, err = unit.Bookings().ByID(execCtx, domainbooking.BookingID(needle))
	}
	if err != nil {
		return nil, err
	}
	view := dto.MapBooking(b)
	return &view, nil
}

type ListBookingsQuery struct {
	Status   string
	ClientID string
}

func (q ListBookingsQuery) Key() string { return listBookingsKey }

type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

// Handle lists bookings ordered by preferred date, then creation time.
func (h *ListBookingsHandler) Handle(ctx context.Context, q ListBookingsQuery) (dto.BookingCollection, error) {
	filter := domainbooking.Filter{ClientID: strings.TrimSpace(q.ClientID)}
	if raw := strings.TrimSpace(q.Status); raw != "" {
		status, ok := domainbooking.ParseStatus(raw)
		if !ok {
			return dto.BookingCollection{}, ErrInvalidStatusFilter.Withf("%q", raw)
		}
		filter.Status = status
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Bookings().List(execCtx, filter)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].PreferredDate.Equal(items[j].PreferredDate) {
			return items[i].PreferredDate.Before(items[j].PreferredDate)
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if h.Logger != nil {
		h.Logger.Debug("bookings listed", "count", len(items), "status", filter.Status, "client_id", filter.ClientID)
	}
	return dto.MapBookings(items), nil
}

var (
	_ queries.Handler[GetBookingQuery, *dto.BookingView]        = (*GetBookingHandler)(nil)
	_ queries.Handler[ListBookingsQuery, dto.BookingCollection] = (*ListBookingsHandler)(nil)
)
