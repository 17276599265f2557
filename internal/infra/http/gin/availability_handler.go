package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"shutterbook/internal/app/commands"
	"shutterbook/internal/app/dto"
	availabilityapp "shutterbook/internal/app/handlers/availability"
	"shutterbook/internal/app/queries"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type slotRequest struct {
	ResourceID string    `json:"resource_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Notes      string    `json:"notes"`
}

func (h AvailabilityHandler) CreateSlot(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.Logger, errInvalidBody.Wrap(err))
		return
	}
	cmd := availabilityapp.CreateSlotCommand{ResourceID: req.ResourceID, Start: req.Start, End: req.End, Notes: req.Notes}
	result, err := commands.Dispatch[availabilityapp.CreateSlotCommand, *dto.SlotView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AvailabilityHandler) BlockSlot(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.Logger, errInvalidBody.Wrap(err))
		return
	}
	cmd := availabilityapp.BlockSlotCommand{ResourceID: req.ResourceID, Start: req.Start, End: req.End, Notes: req.Notes}
	result, err := commands.Dispatch[availabilityapp.BlockSlotCommand, *dto.SlotView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type recurringRequest struct {
	ResourceID string `json:"resource_id"`
	Weekday    string `json:"weekday"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Until      string `json:"until"`
	Notes      string `json:"notes"`
}

func (h AvailabilityHandler) CreateRecurring(c *gin.Context) {
	var req recurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.Logger, errInvalidBody.Wrap(err))
		return
	}
	weekday, ok := parseWeekday(req.Weekday)
	if !ok {
		handleError(c, h.Logger, errInvalidDay)
		return
	}
	until, err := time.Parse(dateLayout, strings.TrimSpace(req.Until))
	if err != nil {
		handleError(c, h.Logger, errInvalidDate.Wrap(err))
		return
	}
	cmd := availabilityapp.CreateRecurringCommand{
		ResourceID: req.ResourceID,
		Weekday:    weekday,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Until:      until,
		Notes:      req.Notes,
	}
	result, err := commands.Dispatch[availabilityapp.CreateRecurringCommand, *dto.RecurringResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h AvailabilityHandler) ListSlots(c *gin.Context) {
	from, err := parseInstant(c.Query("from"))
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	to, err := parseInstant(c.Query("to"))
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	q := availabilityapp.ListSlotsQuery{ResourceID: c.Query("resource_id"), From: from, To: to}
	result, err := queries.Ask[availabilityapp.ListSlotsQuery, dto.SlotCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Available(c *gin.Context) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(c.Query("date")))
	if err != nil {
		handleError(c, h.Logger, errInvalidDate.Wrap(err))
		return
	}
	q := availabilityapp.AvailableSlotsQuery{Date: day, ResourceID: c.Query("resource_id")}
	result, err := queries.Ask[availabilityapp.AvailableSlotsQuery, dto.SlotCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) DeleteSlot(c *gin.Context) {
	cmd := availabilityapp.DeleteSlotCommand{SlotID: c.Param("id")}
	result, err := commands.Dispatch[availabilityapp.DeleteSlotCommand, *dto.DeletedResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) ReleaseSlot(c *gin.Context) {
	cmd := availabilityapp.ReleaseSlotCommand{SlotID: c.Param("id")}
	result, err := commands.Dispatch[availabilityapp.ReleaseSlotCommand, *dto.SlotView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type bookSlotRequest struct {
	BookingID string `json:"booking_id"`
}

func (h AvailabilityHandler) BookSlot(c *gin.Context) {
	var req bookSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, h.Logger, errInvalidBody.Wrap(err))
		return
	}
	cmd := availabilityapp.BookSlotCommand{SlotID: c.Param("id"), BookingID: req.BookingID}
	result, err := commands.Dispatch[availabilityapp.BookSlotCommand, *dto.SlotView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
}

func parseWeekday(raw string) (time.Weekday, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if wd, ok := weekdays[raw]; ok {
		return wd, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 6 {
		return 0, false
	}
	return time.Weekday(n), true
}

// parseInstant accepts RFC 3339 or a bare date; empty means unset.
func parseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, errInvalidDate.Wrap(err)
	}
	return t, nil
}

var _ AvailabilityHTTP = AvailabilityHandler{}
