package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"olago/internal/domain"
	"olago/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	engine *service.Engine
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(engine *service.Engine) *DriverHandler {
	return &DriverHandler{engine: engine}
}

// DriversResponse is the HTTP response for listing drivers.
type DriversResponse struct {
	Drivers   []*domain.Driver `json:"drivers"`
	Available int              `json:"available"`
}

// GetAll handles GET /v1/drivers
func (h *DriverHandler) GetAll(c *gin.Context) {
	drivers := h.engine.ListDrivers(c.Request.Context())

	available := 0
	for _, d := range drivers {
		if d.Available {
			available++
		}
	}

	respondJSON(c, http.StatusOK, DriversResponse{Drivers: drivers, Available: available})
}
