package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"shutterbook/internal/app/dto"
	activityapp "shutterbook/internal/app/handlers/activity"
	"shutterbook/internal/app/queries"
)

type ActivityHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h ActivityHandler) Recent(c *gin.Context) {
	q := activityapp.RecentActivityQuery{EntityKind: c.Param("kind"), EntityID: c.Param("id")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			handleError(c, h.Logger, errInvalidLimit)
			return
		}
		q.Limit = limit
	}
	result, err := queries.Ask[activityapp.RecentActivityQuery, dto.ActivityCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		handleError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ActivityHTTP = ActivityHandler{}
