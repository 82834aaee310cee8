package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"olago/internal/domain"
	"olago/internal/middleware"
	"olago/internal/service"
)

func riderFromContext(c *gin.Context) (string, bool) {
	return middleware.RiderID(c)
}

// TokenIssuer issues bearer tokens for riders.
type TokenIssuer interface {
	Issue(riderID string) (string, error)
}

// RiderHandler handles HTTP requests for riders.
type RiderHandler struct {
	engine    *service.Engine
	issuer    TokenIssuer
	persister Persister
}

// NewRiderHandler creates a new RiderHandler.
func NewRiderHandler(engine *service.Engine, issuer TokenIssuer, persister Persister) *RiderHandler {
	return &RiderHandler{
		engine:    engine,
		issuer:    issuer,
		persister: orNoop(persister),
	}
}

// RegisterRiderRequest is the HTTP request body for rider signup.
type RegisterRiderRequest struct {
	Name           string `json:"name" binding:"required"`
	InitialBalance *int64 `json:"initial_balance,omitempty"`
}

// RegisterRiderResponse is the HTTP response for rider signup.
type RegisterRiderResponse struct {
	Rider *domain.Rider `json:"rider"`
	Token string        `json:"token"`
}

// Register handles POST /v1/riders
func (h *RiderHandler) Register(c *gin.Context) {
	var req RegisterRiderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	rider, err := h.engine.RegisterRider(c.Request.Context(), service.RegisterRiderCommand{
		Name:           strings.TrimSpace(req.Name),
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	h.persister.Persist(c.Request.Context())

	token, err := h.issuer.Issue(rider.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, RegisterRiderResponse{Rider: rider, Token: token})
}

// Me handles GET /v1/me
func (h *RiderHandler) Me(c *gin.Context) {
	riderID, ok := currentRider(c)
	if !ok {
		return
	}

	rider, err := h.engine.GetRider(c.Request.Context(), riderID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, rider)
}
