// Package httpapi is the HTTP trigger for pipeline runs.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(mode string, log zerolog.Logger, handler *Handler) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware(log))

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/stages/:name", handler.RunStage)
		v1.POST("/pipeline", handler.RunPipeline)
		v1.GET("/scheduler", handler.SchedulerStatus)
	}

	return router
}
