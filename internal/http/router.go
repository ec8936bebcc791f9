package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/geocoder89/whattodo/internal/config"
	"github.com/geocoder89/whattodo/internal/http/handlers"
	"github.com/geocoder89/whattodo/internal/http/middlewares"
	"github.com/geocoder89/whattodo/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// RouterDeps carries everything the HTTP layer needs; Ping and Statuses are optional.
type RouterDeps struct {
	Log            *slog.Logger
	Config         config.Config
	Searcher       handlers.EventSearcher
	Statuses       func() []handlers.SourceStatus
	Prom           *observability.Prom
	Gatherer       prometheus.Gatherer
	Ping           func(ctx context.Context) error
	IsShuttingDown func() bool
}

func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config

	if cfg.Env != "dev" && cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(deps.Log))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(middlewares.SecurityOptions{HSTS: cfg.Env == "prod"}))
	r.Use(middlewares.CORSMiddleware(cfg.Server.CORSOrigins))

	// health
	var stats func() any
	if deps.Prom != nil {
		stats = func() any { return deps.Prom.Stats.Snapshot() }
	}
	h := handlers.NewHealthHandler(deps.Ping, stats, deps.IsShuttingDown)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// search; every call fans out to the providers, so it sits behind the limiter
	search := handlers.NewSearchHandler(deps.Log, deps.Searcher, cfg.Pipeline.RequestTimeout, deps.Statuses)
	limiter := middlewares.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)

	events := r.Group("/events", limiter.RateLimiterMiddleware(middlewares.KeyByIP))
	events.GET("/all", search.SearchAll)
	events.GET("/:source", search.SearchSource)

	r.GET("/sources", search.ListSources)

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondError(ctx, http.StatusNotFound, "not_found", "Route not found", nil)
	})

	return r
}
