// Command etl runs the valuation pipeline once and prints the run summary as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/dynasty-values/internal/providers"
	"github.com/stitts-dev/dynasty-values/internal/services"
	"github.com/stitts-dev/dynasty-values/pkg/config"
	"github.com/stitts-dev/dynasty-values/pkg/database"
	"github.com/stitts-dev/dynasty-values/pkg/logger"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code so deferred cleanup finishes before exit.
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("etl", flag.ContinueOnError)
	flags.SetOutput(stderr)
	dateFlag := flags.String("date", "", "as-of date (YYYY-MM-DD), defaults to today in UTC")
	if err := flags.Parse(args); err != nil {
		return exitUsage
	}

	date, err := parseDate(*dateFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Errorf("Failed to load config: %v", err)
		return exitFailed
	}
	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Errorf("Failed to connect to database: %v", err)
		return exitFailed
	}
	defer db.Close()

	var cache providers.CacheProvider
	if cfg.RedisURL != "" {
		redisClient, err := services.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Warnf("Redis unavailable, continuing without roster cache: %v", err)
		} else {
			defer redisClient.Close()
			cache = services.NewCacheService(redisClient)
		}
	}

	pipeline, _, err := services.NewPipelineFromConfig(cfg, db.DB, cache, nil, log)
	if err != nil {
		log.Errorf("Failed to build pipeline: %v", err)
		return exitFailed
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, runErr := pipeline.Run(ctx, date)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		log.Errorf("Failed to encode summary: %v", err)
	}

	if runErr != nil {
		log.WithError(runErr).WithField("stage", summary.Stage).Error("ETL run failed")
		return exitFailed
	}
	return exitOK
}

// parseDate returns nil for an empty value so the pipeline uses today.
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("invalid -date %q: expected YYYY-MM-DD", raw)
	}
	return &parsed, nil
}
