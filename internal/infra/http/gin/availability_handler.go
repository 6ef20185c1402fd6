package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/dto"
	availabilityapp "staybook/internal/app/handlers/availability"
	"staybook/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

// Calendar lists blocked ranges of a listing. Anonymous callers are allowed; only
// the host sees booking ids.
func (h AvailabilityHandler) Calendar(c *gin.Context) {
	from, to, err := parseStay(c.Query("from"), c.Query("to"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	query := availabilityapp.GetCalendarQuery{ListingID: c.Param("id"), From: from, To: to}
	if p, ok := currentPrincipal(c); ok {
		query.PrincipalID = p.ID
	}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err, "Failed to load calendar")
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
