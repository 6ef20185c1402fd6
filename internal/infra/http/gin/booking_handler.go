package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	"staybook/internal/app/queries"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type stayRequest struct {
	ListingID string `json:"listingId"`
	CheckIn   string `json:"checkIn"`
	CheckOut  string `json:"checkOut"`
	Guests    int    `json:"guests"`
}

type createBookingRequest struct {
	stayRequest
	SpecialRequests string `json:"specialRequests"`
	PaymentMethod   string `json:"paymentMethod"`
	// PaymentDetails is accepted for compatibility and never stored.
	PaymentDetails map[string]any `json:"paymentDetails"`
	Pricing        *struct {
		Total *float64 `json:"total"`
	} `json:"pricing"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

// Check answers whether the stay can be booked and what it costs. An unavailable
// stay is a 400 carrying available:false and the reason.
func (h BookingHandler) Check(c *gin.Context) {
	var req stayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	checkIn, checkOut, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	query := availabilityapp.CheckAvailabilityQuery{
		ListingID: strings.TrimSpace(req.ListingID),
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Guests:    req.Guests,
	}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.AvailabilityResult](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err, "Failed to check availability")
		return
	}
	if !result.Available {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	checkIn, checkOut, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		ListingID:       strings.TrimSpace(req.ListingID),
		GuestID:         user.ID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
		PaymentMethod:   req.PaymentMethod,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader)),
	}
	if req.Pricing != nil {
		cmd.ExpectedTotal = req.Pricing.Total
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.CreateBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err, "Failed to create booking")
		return
	}
	c.Header("Location", "/api/v1/bookings/"+result.ID)
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	query := bookingapp.GetBookingQuery{BookingID: c.Param("id"), PrincipalID: user.ID}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.BookingDetail](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err, "Failed to load booking")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body")
			return
		}
	}
	cmd := bookingapp.CancelBookingCommand{
		BookingID:   c.Param("id"),
		PrincipalID: user.ID,
		Reason:      strings.TrimSpace(req.Reason),
	}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, *dto.CancelBookingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err, "Failed to cancel booking")
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
