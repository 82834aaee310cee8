package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"olago/internal/domain"
	"olago/internal/service"
)

// WalletHandler handles HTTP requests for the rider's wallet.
type WalletHandler struct {
	engine    *service.Engine
	persister Persister
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(engine *service.Engine, persister Persister) *WalletHandler {
	return &WalletHandler{engine: engine, persister: orNoop(persister)}
}

// WalletResponse is the HTTP response for wallet reads and updates.
type WalletResponse struct {
	Balance      int64                      `json:"balance"`
	Transactions []domain.WalletTransaction `json:"transactions,omitempty"`
}

// TopUpRequest is the HTTP request body for a wallet top-up.
type TopUpRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// DonateRequest is the HTTP request body for a donation.
type DonateRequest struct {
	Amount int64  `json:"amount" binding:"required"`
	Note   string `json:"note,omitempty"`
}

// Get handles GET /v1/wallet
func (h *WalletHandler) Get(c *gin.Context) {
	riderID, ok := currentRider(c)
	if !ok {
		return
	}

	rider, err := h.engine.GetRider(c.Request.Context(), riderID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, WalletResponse{Balance: rider.Balance, Transactions: rider.Transactions})
}

// TopUp handles POST /v1/wallet/topup
func (h *WalletHandler) TopUp(c *gin.Context) {
	riderID, ok := currentRider(c)
	if !ok {
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "amount is required")
		return
	}

	balance, err := h.engine.TopUp(c.Request.Context(), riderID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	h.persister.Persist(c.Request.Context())

	respondJSON(c, http.StatusOK, WalletResponse{Balance: balance})
}

// Donate handles POST /v1/wallet/donate
func (h *WalletHandler) Donate(c *gin.Context) {
	riderID, ok := currentRider(c)
	if !ok {
		return
	}

	var req DonateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "amount is required")
		return
	}

	balance, err := h.engine.Donate(c.Request.Context(), riderID, req.Amount, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	h.persister.Persist(c.Request.Context())

	respondJSON(c, http.StatusOK, WalletResponse{Balance: balance})
}
