package router

import (
	"github.com/gin-gonic/gin"

	"schedex/internal/auth"
	"schedex/internal/handler"
	"schedex/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	tokens auth.TokenService,
	allowedOrigins []string,
	runH *handler.RunHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(tokens))

	runs := v1.Group("/runs")
	runs.POST("", runH.Create)
	runs.GET("", runH.List)
	runs.GET("/:id", runH.GetByID)

	return r
}
