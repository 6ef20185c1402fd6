package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	listingapp "staybook/internal/app/handlers/listings"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
)

type HostListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type hostListingRequest struct {
	Title        string   `json:"title"`
	Currency     string   `json:"currency"`
	MinNights    int      `json:"minNights"`
	GuestsLimit  int      `json:"guestsLimit"`
	NightlyPrice *float64 `json:"nightlyPrice"`
	WeeklyPrice  *float64 `json:"weeklyPrice"`
	MonthlyPrice *float64 `json:"monthlyPrice"`
	CleaningFee  float64  `json:"cleaningFee"`
	Publish      bool     `json:"publish"`
}

func (r hostListingRequest) payload() listingapp.HostListingPayload {
	return listingapp.HostListingPayload{
		Title:        strings.TrimSpace(r.Title),
		Currency:     strings.ToUpper(strings.TrimSpace(r.Currency)),
		MinNights:    r.MinNights,
		GuestsLimit:  r.GuestsLimit,
		NightlyPrice: r.NightlyPrice,
		WeeklyPrice:  r.WeeklyPrice,
		MonthlyPrice: r.MonthlyPrice,
		CleaningFee:  r.CleaningFee,
	}
}

func (h HostListingHandler) Create(c *gin.Context) {
	host, ok := requireRole(c, policies.RoleHost)
	if !ok {
		return
	}
	var req hostListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cmd := listingapp.CreateHostListingCommand{HostID: host.ID, Payload: req.payload(), Publish: req.Publish}
	result, err := commands.Dispatch[listingapp.CreateHostListingCommand, *dto.HostListingDetail](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err, "failed to create listing")
		return
	}
	c.Header("Location", "/api/v1/host/listings/"+result.ID)
	c.JSON(http.StatusCreated, result)
}

func (h HostListingHandler) Get(c *gin.Context) {
	host, ok := requireRole(c, policies.RoleHost)
	if !ok {
		return
	}
	query := listingapp.GetHostListingQuery{HostID: host.ID, ListingID: c.Param("id")}
	result, err := queries.Ask[listingapp.GetHostListingQuery, dto.HostListingDetail](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err, "failed to load listing")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostListingHandler) Update(c *gin.Context) {
	host, ok := requireRole(c, policies.RoleHost)
	if !ok {
		return
	}
	var req hostListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	cmd := listingapp.UpdateHostListingCommand{HostID: host.ID, ListingID: c.Param("id"), Payload: req.payload()}
	result, err := commands.Dispatch[listingapp.UpdateHostListingCommand, *dto.HostListingDetail](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err, "failed to update listing")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostListingHandler) Publish(c *gin.Context) {
	host, ok := requireRole(c, policies.RoleHost)
	if !ok {
		return
	}
	cmd := listingapp.PublishHostListingCommand{HostID: host.ID, ListingID: c.Param("id")}
	result, err := commands.Dispatch[listingapp.PublishHostListingCommand, *dto.HostListingDetail](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err, "failed to publish listing")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostListingHandler) Unpublish(c *gin.Context) {
	host, ok := requireRole(c, policies.RoleHost)
	if !ok {
		return
	}
	cmd := listingapp.UnpublishHostListingCommand{HostID: host.ID, ListingID: c.Param("id")}
	result, err := commands.Dispatch[listingapp.UnpublishHostListingCommand, *dto.HostListingDetail](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err, "failed to unpublish listing")
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostListingHTTP = HostListingHandler{}
