package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler answers the liveness probe.
type HealthHandler struct{}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Home handles GET /
func (h *HealthHandler) Home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "Bill extractor running successfully!",
		"message": "Webhook Ready",
	})
}
