package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/dynasty-values/pkg/logger"
)

const (
	SourceSleeper = "sleeper"

	sleeperPlayersCacheKey = "sleeper:players:nfl"
)

// SleeperClient implements RosterProvider against the Sleeper public API
type SleeperClient struct {
	fetcher  *HTTPFetcher
	baseURL  string
	cache    CacheProvider
	cacheTTL time.Duration
	logger   *logrus.Logger
}

// NewSleeperClient creates a new Sleeper client. cache may be nil.
func NewSleeperClient(fetcher *HTTPFetcher, baseURL string, cache CacheProvider, cacheTTL time.Duration, logger *logrus.Logger) *SleeperClient {
	return &SleeperClient{
		fetcher:  fetcher,
		baseURL:  strings.TrimRight(baseURL, "/"),
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Sleeper API response structure. Most fields are nullable.
type sleeperPlayer struct {
	PlayerID        string   `json:"player_id"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	FullName        string   `json:"full_name"`
	Position        *string  `json:"position"`
	Team            *string  `json:"team"`
	Age             *float64 `json:"age"`
	YearsExp        *int     `json:"years_exp"`
	InjuryStatus    *string  `json:"injury_status"`
	DepthChartOrder *int     `json:"depth_chart_order"`
	Active          bool     `json:"active"`
}

func (c *SleeperClient) Name() string {
	return SourceSleeper
}

// FetchPlayers returns the NFL player universe keyed by Sleeper player id.
func (c *SleeperClient) FetchPlayers(ctx context.Context) (map[string]RosterPlayer, error) {
	log := logger.WithSource(c.logger, SourceSleeper)

	if c.cache != nil {
		var cached map[string]RosterPlayer
		if err := c.cache.GetSimple(sleeperPlayersCacheKey, &cached); err == nil && len(cached) > 0 {
			log.WithField("players", len(cached)).Debug("Roster served from cache")
			return cached, nil
		}
	}

	body, err := c.fetcher.Get(ctx, SourceSleeper, c.baseURL+"/players/nfl")
	if err != nil {
		return nil, err
	}

	players, err := decodeSleeperPlayers(body)
	if err != nil {
		return nil, err
	}
	log.WithField("players", len(players)).Info("Fetched roster")

	if c.cache != nil && len(players) > 0 {
		if err := c.cache.SetSimple(sleeperPlayersCacheKey, players, c.cacheTTL); err != nil {
			log.WithError(err).Warn("Failed to cache roster")
		}
	}

	return players, nil
}

func decodeSleeperPlayers(body []byte) (map[string]RosterPlayer, error) {
	var raw map[string]sleeperPlayer
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode sleeper players: %w", err)
	}

	players := make(map[string]RosterPlayer, len(raw))
	for key, p := range raw {
		id := p.PlayerID
		if id == "" {
			id = key
		}
		players[id] = RosterPlayer{
			ID:              id,
			FirstName:       p.FirstName,
			LastName:        p.LastName,
			FullName:        p.FullName,
			Position:        deref(p.Position),
			Team:            deref(p.Team),
			Age:             p.Age,
			YearsExp:        p.YearsExp,
			InjuryStatus:    deref(p.InjuryStatus),
			DepthChartOrder: p.DepthChartOrder,
			Active:          p.Active,
		}
	}
	return players, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
