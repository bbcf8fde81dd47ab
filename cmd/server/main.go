package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/dynasty-values/internal/api"
	"github.com/stitts-dev/dynasty-values/internal/api/handlers"
	"github.com/stitts-dev/dynasty-values/internal/providers"
	"github.com/stitts-dev/dynasty-values/internal/services"
	"github.com/stitts-dev/dynasty-values/pkg/config"
	"github.com/stitts-dev/dynasty-values/pkg/database"
	"github.com/stitts-dev/dynasty-values/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Redis is optional; without it every run downloads the roster.
	var (
		cache  providers.CacheProvider
		pinger handlers.Pinger
	)
	if cfg.RedisURL != "" {
		redisClient, err := services.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		cacheService := services.NewCacheService(redisClient)
		cache, pinger = cacheService, cacheService
	} else {
		log.Warn("REDIS_URL not set, roster cache disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(registry)

	pipeline, breakers, err := services.NewPipelineFromConfig(cfg, db.DB, cache, metrics, log)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	scheduler := services.NewScheduler(pipeline, cfg.ETLSchedule, breakers, log)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	router := api.NewRouter(api.Dependencies{
		Values:  services.NewGormStore(db.DB),
		Runner:  scheduler,
		DB:      db,
		Cache:   pinger,
		Metrics: registry,
		Logger:  log,
	})

	for _, route := range router.Routes() {
		log.Debugf("%s %s", route.Method, route.Path)
	}

	// Manual runs hold the request open for the whole pipeline.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ETLTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithService(log, "dynasty-values").WithFields(logrus.Fields{
			"port":       cfg.Port,
			"adp_source": cfg.ADPSource,
			"schedule":   cfg.ETLSchedule,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
