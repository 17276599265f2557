package ginserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"shutterbook/internal/app/commands"
	"shutterbook/internal/app/dto"
	bookingapp "shutterbook/internal/app/handlers/booking"
	conversionapp "shutterbook/internal/app/handlers/conversion"
	"shutterbook/internal/app/queries"
	"shutterbook/internal/domain/shared/money"
)

const dateLayout = "2006-01-02"

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type bookingRequest struct {
	Reference           string        `json:"reference"`
	ClientID            string        `json:"client_id"`
	ResourceID          *string       `json:"resource_id"`
	PackageID           *string       `json:"package_id"`
	EventType           string        `json:"event_type"`
	PreferredDate       string        `json:"preferred_date"`
	AlternativeDate     *string       `json:"alternative_date"`
	PreferredStart      string        `json:"preferred_start"`
	DurationHours       float64       `json:"duration_hours"`
	Location            string        `json:"location"`
	SpecialRequirements string        `json:"special_requirements"`
	EstimatedPrice      *dto.MoneyDTO `json:"estimated_price"`
}

func (r bookingRequest) input() (bookingapp.BookingInput, error) {
	preferred, err := time.Parse(dateLayout, strings.TrimSpace(r.PreferredDate))
	if err != nil {
		return bookingapp.BookingInput{}, errInvalidDate.Wrap(err)
	}
	in := bookingapp.BookingInput{
		ClientID:            r.ClientID,
		ResourceID:          r.ResourceID,
		PackageID:           r.PackageID,
		EventType:           r.EventType,
		PreferredDate:       preferred,
		PreferredStart:      r.PreferredStart,
		DurationHours:       r.DurationHours,
		Location:            r.Location,
		SpecialRequirements: r.SpecialRequirements,
	}
	if r.AlternativeDate != nil && strings.TrimSpace(*r.AlternativeDate) != "" {
		alt, err := time.Parse(dateLayout, strings.TrimSpace(*r.AlternativeDate))
		if err != nil {
			return bookingapp.BookingInput{}, errInvalidDate.Wrap(err)
		}
		in.AlternativeDate = &alt
	}
	if r.EstimatedPrice != nil {
		price, err := money.New(r.EstimatedPrice.Amount, r.EstimatedPrice.Currency)
		if err != nil {
			return bookingapp.BookingInput{}, errInvalidPrice.Wrap(err)
		}
		in.EstimatedPrice = &price
	}
	return in, nil
}

func (h BookingHandler) Create(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.Logger, errInvalidBody.Wrap(err))
		return
	}
	in, err := req.input()
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		BookingInput:    in,
		Reference:       req.Reference,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Update(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.Logger, errInvalidBody.Wrap(err))
		return
	}
	in, err := req.input()
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.UpdateBookingCommand{BookingID: c.Param("id"), BookingInput: in}
	result, err := commands.Dispatch[bookingapp.UpdateBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	q := bookingapp.GetBookingQuery{IDOrReference: c.Param("id")}
	result, err := queries.Ask[bookingapp.GetBookingQuery, *dto.BookingView](c.Request.Context(), h.Queries, q)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) List(c *gin.Context) {
	q := bookingapp.ListBookingsQuery{Status: c.Query("status"), ClientID: c.Query("client_id")}
	result, err := queries.Ask[bookingapp.ListBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type confirmRequest struct {
	ResourceID *string `json:"resource_id"`
	AdminNotes string  `json:"admin_notes"`
	SlotID     string  `json:"slot_id"`
}

func (h BookingHandler) Confirm(c *gin.Context) {
	var req confirmRequest
	if !bindOptionalJSON(c, h.Logger, &req) {
		return
	}
	cmd := bookingapp.ConfirmBookingCommand{
		BookingID:  c.Param("id"),
		ResourceID: req.ResourceID,
		AdminNotes: req.AdminNotes,
		SlotID:     req.SlotID,
	}
	h.respondBooking(c, func() (*dto.BookingView, error) {
		return commands.Dispatch[bookingapp.ConfirmBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	})
}

type declineRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Decline(c *gin.Context) {
	var req declineRequest
	if !bindOptionalJSON(c, h.Logger, &req) {
		return
	}
	cmd := bookingapp.DeclineBookingCommand{BookingID: c.Param("id"), Reason: req.Reason}
	h.respondBooking(c, func() (*dto.BookingView, error) {
		return commands.Dispatch[bookingapp.DeclineBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Cancel(c *gin.Context) {
	cmd := bookingapp.CancelBookingCommand{BookingID: c.Param("id")}
	h.respondBooking(c, func() (*dto.BookingView, error) {
		return commands.Dispatch[bookingapp.CancelBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Reopen(c *gin.Context) {
	cmd := bookingapp.ReopenBookingCommand{BookingID: c.Param("id")}
	h.respondBooking(c, func() (*dto.BookingView, error) {
		return commands.Dispatch[bookingapp.ReopenBookingCommand, *dto.BookingView](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Delete(c *gin.Context) {
	cmd := bookingapp.DeleteBookingCommand{BookingID: c.Param("id")}
	result, err := commands.Dispatch[bookingapp.DeleteBookingCommand, *dto.DeletedResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Convert(c *gin.Context) {
	cmd := conversionapp.ConvertBookingCommand{
		BookingID:       c.Param("id"),
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[conversionapp.ConvertBookingCommand, *dto.ConversionResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) respondBooking(c *gin.Context, run func() (*dto.BookingView, error)) {
	result, err := run()
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// bindOptionalJSON decodes a body when one was sent. It reports false after
// writing the error response.
func bindOptionalJSON(c *gin.Context, logger *slog.Logger, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		handleError(c, logger, errInvalidBody.Wrap(err))
		return false
	}
	return true
}

var _ BookingHTTP = BookingHandler{}
