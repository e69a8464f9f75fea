package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lambda-http/internal/config"
	"lambda-http/internal/functions"
	"lambda-http/internal/middleware"
	"lambda-http/pkg/lambda"
)

// NewRouter builds the gin engine that serves the container's functions
func NewRouter(c *Container) *gin.Engine {
	if c.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(c.Logger))
	router.Use(middleware.StructuredLogger(c.Logger))
	router.Use(middleware.PerformanceMonitor(c.Logger, c.Config.HandlerTimeout/2))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RateLimiter(c.Logger, c.Config.RateLimit.RPS, c.Config.RateLimit.Burst))

	// Health check endpoint
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"mode":      config.GetDeploymentMode(),
			"functions": c.Registry.Paths(),
		})
	})

	serve := c.handleFunction
	router.Any(functions.BasePath+"/*name", serve)
	// Methods gin does not route, and unknown paths, still go to the
	// registry so they get the same JSON errors as functions.
	router.NoRoute(serve)

	return router
}

func (c *Container) handleFunction(ctx *gin.Context) {
	raw := lambda.FromHTTP(ctx.Request)
	resp := c.Serve(raw, ctx.GetString(middleware.RequestIDKey), ctx.ClientIP())
	if err := resp.Write(ctx.Writer); err != nil {
		c.Logger.WithError(err).WithField("request_id", ctx.GetString(middleware.RequestIDKey)).Error("Failed to write response")
	}
}
