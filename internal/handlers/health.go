package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string `json:"status"`
	Validation string `json:"validation"` // available or unavailable
}

// HealthCheck handles the health check endpoint. The service is healthy
// without price providers; only validation is degraded.
func (h *Handler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:     "ok",
		Validation: "unavailable",
	}
	if h.validationAvailable() {
		response.Validation = "available"
	}
	c.JSON(http.StatusOK, response)
}
