package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"shutterbook/internal/app/middleware"
	"shutterbook/internal/domain/shared/apperr"
)

var (
	errInvalidBody  = apperr.Validation("InvalidBody", "request body is not valid JSON")
	errInvalidDate  = apperr.Validation("InvalidDate", "dates must be YYYY-MM-DD and instants RFC 3339")
	errInvalidPrice = apperr.Validation("InvalidPrice", "price needs a non-negative amount and a 3-letter currency")
	errInvalidDay   = apperr.Validation("InvalidWeekday", "weekday must be a day name or 0-6 with 0 for Sunday")
	errInvalidLimit = apperr.Validation("InvalidLimit", "limit must be a positive integer")
)

// statusFor maps an error to its HTTP status; business kinds are fixed,
// anything else is a server fault.
func statusFor(err error) int {
	if errors.Is(err, middleware.ErrForbidden) {
		return http.StatusForbidden
	}
	kind, ok := apperr.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindStateTransition, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindPrecondition:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func handleError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if appErr, ok := apperr.As(err); ok {
		body["code"] = appErr.Code
		body["kind"] = string(appErr.Kind)
	}
	switch status {
	case http.StatusForbidden:
		body["code"] = "Forbidden"
	case http.StatusInternalServerError:
		if logger != nil {
			logger.Error("request failed", "path", c.FullPath(), "request_id", c.GetString("request_id"), "error", err)
		}
		body["error"] = "internal error"
	}
	c.JSON(status, body)
}
