package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter creates and configures the Gin router.
// An empty allowedOrigins list allows all origins.
func SetupRouter(handler *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.GET("/plants", handler.GetPlants)

	profiles := v1.Group("/profiles")
	profiles.GET("/wind", handler.GetWindProfile)
	profiles.GET("/solar", handler.GetSolarProfile)

	// Health check.
	router.GET("/health", handler.HealthCheck)

	return router
}
