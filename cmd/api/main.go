package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/whattodo/internal/aggregate"
	"github.com/geocoder89/whattodo/internal/config"
	"github.com/geocoder89/whattodo/internal/geocode"
	httpx "github.com/geocoder89/whattodo/internal/http"
	"github.com/geocoder89/whattodo/internal/http/handlers"
	"github.com/geocoder89/whattodo/internal/observability"
	"github.com/geocoder89/whattodo/internal/redisclient"
	"github.com/geocoder89/whattodo/internal/sources"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	shutdownTracer, err := observability.InitTracer(context.Background(), cfg.Tracing, cfg.Env)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	// geocode cache: shared through redis when configured, per process otherwise
	var (
		geocodeCache geocode.Cache = geocode.NewMemoryCache(cfg.Geocoder.CacheTTL)
		ping         func(ctx context.Context) error
		rdb          *redisclient.Client
	)
	if cfg.Redis.Addr != "" {
		rdb = redisclient.New(redisclient.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   "whattodo:",
		})
		geocodeCache = geocode.NewRedisCache(log, rdb, cfg.Geocoder.CacheTTL)
		ping = rdb.Ping
		log.Info("geocode cache on redis", "addr", cfg.Redis.Addr)
	}

	resolver := geocode.NewResolver(log, geocode.NewNominatim(
		geocode.WithBaseURL(cfg.Geocoder.BaseURL),
		geocode.WithUserAgent(cfg.Geocoder.UserAgent),
		geocode.WithMinInterval(cfg.Geocoder.MinInterval),
		geocode.WithHTTPClient(&http.Client{Timeout: cfg.Geocoder.Timeout}),
	), geocodeCache)

	// sources
	protected := sources.Build(log, cfg.Sources, sources.NewHTTPClient(cfg.Pipeline.CallTimeout), cfg.Pipeline.CallTimeout)
	if len(protected) == 0 {
		log.Warn("no event sources registered; every search will be empty")
	}

	pipeline := aggregate.NewPipeline(log, resolver, protected.Sources(), aggregate.Config{
		CallTimeout:    cfg.Pipeline.CallTimeout,
		MaxConcurrency: cfg.Pipeline.MaxConcurrency,
	}, prom)

	var shuttingDown atomic.Bool

	// set up routers with the log
	router := httpx.NewRouter(httpx.RouterDeps{
		Log:      log,
		Config:   cfg,
		Searcher: pipeline,
		Statuses: func() []handlers.SourceStatus {
			out := make([]handlers.SourceStatus, len(protected))
			for i, p := range protected {
				out[i] = handlers.SourceStatus{Name: p.Name(), State: p.State()}
			}
			return out
		},
		Prom:           prom,
		Gatherer:       reg,
		Ping:           ping,
		IsShuttingDown: shuttingDown.Load,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "sources", pipeline.Sources())
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	shuttingDown.Store(true)
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				log.Error("redis close failed", "err", err)
			}
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(cfg.Server.ShutdownTimeout + 2*time.Second):
		log.Error("shutdown timed out")
	}
}
