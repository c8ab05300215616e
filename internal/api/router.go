package api

import (
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"github.com/Conceptual-Machines/prompt-architect/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/prompt-architect/internal/api/middleware"
	"github.com/Conceptual-Machines/prompt-architect/internal/catalog"
	"github.com/Conceptual-Machines/prompt-architect/internal/config"
	"github.com/Conceptual-Machines/prompt-architect/internal/metrics"
	"github.com/Conceptual-Machines/prompt-architect/internal/studio"
)

// Deps are the services the router exposes
type Deps struct {
	Config    *config.Config
	Catalog   *catalog.Catalog
	Registry  *studio.Registry
	Sessions  sessions.Store
	Recorder  *metrics.Recorder
	DB        handlers.Pinger
	PublicURL *url.URL
	Provider  string
	Version   string
}

func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking(deps.Recorder))

	router.Use(apimiddleware.CORS(deps.Config.CORSOrigins))

	healthHandler := handlers.NewHealthHandler(deps.DB)
	router.GET("/health", healthHandler.HealthCheck)

	metricsHandler := handlers.NewMetricsHandler(deps.Version, deps.Provider, deps.Config.LLMModel, deps.Registry)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	v1 := router.Group("/api/v1")
	{
		catalogHandler := handlers.NewCatalogHandler(deps.Catalog)
		v1.GET("/catalog", catalogHandler.GetCatalog)
		v1.GET("/catalog/influences", catalogHandler.Influences)
	}

	// Session-scoped wizard routes
	studioRoutes := v1.Group("")
	studioRoutes.Use(apimiddleware.Session(deps.Sessions))
	{
		h := handlers.NewStudioHandler(deps.Registry, deps.PublicURL)
		studioRoutes.GET("/state", h.State)
		studioRoutes.POST("/actions", h.Action)
		studioRoutes.POST("/randomize", h.Randomize)

		studioRoutes.POST("/generate", h.Generate)
		studioRoutes.POST("/enhance", h.Enhance)
		studioRoutes.POST("/analyze", h.Analyze)
		studioRoutes.POST("/analyze/use", h.UseAnalysis)
		studioRoutes.POST("/video-treatment", h.VideoTreatment)
		studioRoutes.GET("/artists", h.Artists)

		studioRoutes.GET("/share", h.Share)
		studioRoutes.POST("/share/restore", h.Restore)

		studioRoutes.GET("/history", h.History)
		studioRoutes.GET("/history/export", h.ExportHistory)
		studioRoutes.POST("/history/:id/reuse", h.ReuseHistory)
		studioRoutes.DELETE("/history", h.ClearHistory)
	}

	return router
}
