package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"olago/internal/domain"
	"olago/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	engine    *service.Engine
	persister Persister
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(engine *service.Engine, persister Persister) *RideHandler {
	return &RideHandler{engine: engine, persister: orNoop(persister)}
}

// CreateRideRequest is the HTTP request body for requesting a ride.
type CreateRideRequest struct {
	Pickup      domain.Place `json:"pickup"`
	Destination domain.Place `json:"destination"`
	Category    string       `json:"category"`
}

// ApplyPromoRequest is the HTTP request body for applying a promo code.
type ApplyPromoRequest struct {
	Code string `json:"code" binding:"required"`
}

// ConfirmPaymentRequest is the HTTP request body for settling a ride.
type ConfirmPaymentRequest struct {
	Method string `json:"method" binding:"required"`
}

// CancelRideRequest is the optional HTTP request body for cancelling a ride.
type CancelRideRequest struct {
	Reason string `json:"reason"`
}

// ConfirmPaymentResponse is the HTTP response for a settled ride.
type ConfirmPaymentResponse struct {
	Ride          *domain.Ride `json:"ride"`
	WalletBalance int64        `json:"wallet_balance"`
}

// CompleteRideResponse is the HTTP response for a completed ride.
type CompleteRideResponse struct {
	Ride    *domain.Ride    `json:"ride"`
	Receipt *domain.Receipt `json:"receipt"`
}

// RidesResponse is the HTTP response for listing rides.
type RidesResponse struct {
	Rides []*domain.Ride `json:"rides"`
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	riderID, ok := currentRider(c)
	if !ok {
		return
	}

	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	ride, err := h.engine.RequestRide(c.Request.Context(), service.RequestRideCommand{
		RiderID:     riderID,
		Pickup:      req.Pickup,
		Destination: req.Destination,
		Category:    req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.persister.Persist(c.Request.Context())

	respondJSON(c, http.StatusCreated, ride)
}

// GetAll handles GET /v1/rides
func (h *RideHandler) GetAll(c *gin.Context) {
	riderID, ok := currentRider(c)
	if !ok {
		return
	}

	rides, err := h.engine.ListRides(c.Request.Context(), riderID)
	if err != nil {
		respondError(c, err)
		return
	}
	if rides == nil {
		rides = []*domain.Ride{}
	}

	respondJSON(c, http.StatusOK, RidesResponse{Rides: rides})
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	riderID, ok := currentRider(c)
	if !ok {
		return
	}

	ride, err := h.engine.GetRide(c.Request.Context(), riderID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ride)
}

// ApplyPromo handles POST /v1/rides/:id/promo
func (h *RideHandler) ApplyPromo(c *gin.Context) {
	riderID, ok := currentRider(c)
	if !ok {
		return
	}

	var req ApplyPromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "code is required")
		return
	}

	ride, err := h.engine.ApplyPromo(c.Request.Context(), service.ApplyPromoCommand{
		RiderID: riderID,
		RideID:  c.Param("id"),
		Code:    req.Code,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.persister.Persist(c.Request.Context())

	respondJSON(c, http.StatusOK, ride)
}

// ConfirmPayment handles POST /v1/rides/:id/payment
func (h *RideHandler) ConfirmPayment(c *gin.Context) {
	riderID, ok := currentRider(c)
	if !ok {
		return
	}

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "method is required")
		return
	}

	ride, balance, err := h.engine.ConfirmPayment(c.Request.Context(), service.ConfirmPaymentCommand{
		RiderID: riderID,
		RideID:  c.Param("id"),
		Method:  req.Method,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.persister.Persist(c.Request.Context())

	respondJSON(c, http.StatusOK, ConfirmPaymentResponse{Ride: ride, WalletBalance: balance})
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	riderID, ok := currentRider(c)
	if !ok {
		return
	}

	ride, err := h.engine.CompleteOrCancelRide(c.Request.Context(), service.FinishRideCommand{
		RiderID: riderID,
		RideID:  c.Param("id"),
		Outcome: service.RideOutcomeComplete,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.persister.Persist(c.Request.Context())

	receipt, err := h.engine.Receipt(c.Request.Context(), riderID, ride.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CompleteRideResponse{Ride: ride, Receipt: receipt})
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	riderID, ok := currentRider(c)
	if !ok {
		return
	}

	var req CancelRideRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	ride, err := h.engine.CompleteOrCancelRide(c.Request.Context(), service.FinishRideCommand{
		RiderID: riderID,
		RideID:  c.Param("id"),
		Outcome: service.RideOutcomeCancel,
		Reason:  req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.persister.Persist(c.Request.Context())

	respondJSON(c, http.StatusOK, ride)
}

// Receipt handles GET /v1/rides/:id/receipt. ?format=text renders plain text.
func (h *RideHandler) Receipt(c *gin.Context) {
	riderID, ok := currentRider(c)
	if !ok {
		return
	}

	receipt, err := h.engine.Receipt(c.Request.Context(), riderID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if c.Query("format") == "text" {
		c.String(http.StatusOK, h.engine.FormatReceipt(receipt))
		return
	}
	respondJSON(c, http.StatusOK, receipt)
}
