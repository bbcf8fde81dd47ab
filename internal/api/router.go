package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/dynasty-values/internal/api/handlers"
	"github.com/stitts-dev/dynasty-values/internal/api/middleware"
	"github.com/stitts-dev/dynasty-values/internal/services"
)

// Dependencies are the collaborators the HTTP surface needs.
type Dependencies struct {
	Values  services.ValueReader
	Runner  handlers.ETLRunner
	DB      handlers.HealthChecker
	Cache   handlers.Pinger // nil when Redis is not configured
	Metrics prometheus.Gatherer
	Logger  *logrus.Logger
}

// NewRouter builds the gin engine with health, metrics and the /api/v1 routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))

	health := handlers.NewHealthHandler(deps.DB, deps.Cache)
	router.GET("/health", health.GetHealth)
	router.GET("/ready", health.GetReady)

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{})))
	}

	SetupRoutes(router.Group("/api/v1"), deps)
	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, deps Dependencies) {
	dynastyHandler := handlers.NewDynastyHandler(deps.Values, deps.Runner, deps.Logger)

	dynastyGroup := group.Group("/dynasty")
	{
		dynastyGroup.GET("/values", dynastyHandler.GetValues)
		dynastyGroup.POST("/values/batch", dynastyHandler.GetValuesBatch)
		dynastyGroup.POST("/etl", dynastyHandler.TriggerETL)
		dynastyGroup.GET("/status", dynastyHandler.GetStatus)
	}
}
