package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/hospitalbillflow/internal/handler"
	"github.com/Lllllllleong/hospitalbillflow/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(healthH *handler.HealthHandler, extractionH *handler.ExtractionHandler, allowedOrigins []string) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	r.GET("/", healthH.Home)
	r.POST("/extract-bill-data", extractionH.Extract)

	return r
}
