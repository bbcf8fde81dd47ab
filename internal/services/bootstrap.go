package services

import (
	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/dynasty-values/internal/providers"
	"github.com/stitts-dev/dynasty-values/pkg/config"
	"gorm.io/gorm"
)

// Upstream service names guarded by circuit breakers.
var upstreamServices = []string{providers.SourceSleeper, providers.SourceFFC, providers.SourcePlayerIDs}

// NewPipelineFromConfig wires the roster client, the configured ADP source
// and the gorm store into a Pipeline. cache and metrics may be nil.
func NewPipelineFromConfig(
	cfg *config.Config,
	db *gorm.DB,
	cache providers.CacheProvider,
	metrics *Metrics,
	logger *logrus.Logger,
) (*Pipeline, *CircuitBreakerService, error) {
	breakers := NewCircuitBreakerService(cfg.CircuitBreakerThreshold, cfg.ExternalAPITimeout*2, upstreamServices, logger)
	fetcher := providers.NewHTTPFetcher(cfg.ExternalAPITimeout, cfg.ExternalAPIRPS, breakers, logger)

	roster := providers.NewSleeperClient(fetcher, cfg.SleeperBaseURL, cache, cfg.RosterCacheTTL, logger)

	var adp providers.ADPProvider
	switch cfg.ADPSource {
	case "synthetic":
		adp = providers.NewSyntheticADP(roster, logger)
	default:
		adp = providers.NewFFCClient(fetcher, cfg.FFCADPURL, cfg.PlayerIDsURL, logger)
	}

	pipeline, err := NewPipeline(NewGormStore(db), roster, adp, PipelineConfigFromConfig(cfg), metrics, logger)
	if err != nil {
		return nil, nil, err
	}
	return pipeline, breakers, nil
}
