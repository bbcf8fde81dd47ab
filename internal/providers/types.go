package providers

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SourceKind tells consumers whether an ADP source reflects real market
// consensus or a heuristic stand-in.
type SourceKind string

const (
	SourceKindMarket    SourceKind = "market"
	SourceKindSynthetic SourceKind = "synthetic"
)

// RosterPlayer is one entry of the external player universe.
type RosterPlayer struct {
	ID              string   `json:"id"`
	FirstName       string   `json:"first_name,omitempty"`
	LastName        string   `json:"last_name,omitempty"`
	FullName        string   `json:"full_name,omitempty"`
	Position        string   `json:"position,omitempty"`
	Team            string   `json:"team,omitempty"`
	Age             *float64 `json:"age,omitempty"`
	YearsExp        *int     `json:"years_exp,omitempty"`
	InjuryStatus    string   `json:"injury_status,omitempty"`
	DepthChartOrder *int     `json:"depth_chart_order,omitempty"`
	Active          bool     `json:"active"`
}

// DisplayName prefers the full name and falls back to first + last.
func (p RosterPlayer) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ADPRow is one market-consensus draft position keyed in the roster's
// identifier scheme.
type ADPRow struct {
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name,omitempty"`
	Position string  `json:"position,omitempty"`
	ADP      float64 `json:"adp"`
}

// RosterProvider returns the full player universe keyed by stable identifier.
type RosterProvider interface {
	FetchPlayers(ctx context.Context) (map[string]RosterPlayer, error)
	Name() string
}

// ADPProvider returns market-consensus draft positions.
type ADPProvider interface {
	FetchADP(ctx context.Context) ([]ADPRow, error)
	// Source is the tag persisted on each observation.
	Source() string
	Kind() SourceKind
}

// RosterADPProvider derives its board from a roster instead of a remote
// source, so callers that already hold the roster can skip a second fetch.
type RosterADPProvider interface {
	ADPProvider
	ADPFromRoster(players map[string]RosterPlayer) []ADPRow
}

// CacheProvider interface for cache operations
type CacheProvider interface {
	SetSimple(key string, value interface{}, expiration time.Duration) error
	GetSimple(key string, dest interface{}) error
}

// Breaker guards calls to one named external service.
type Breaker interface {
	Execute(service string, fn func() (interface{}, error)) (interface{}, error)
}

// StatusError is returned when an external source answers with a non-2xx status.
type StatusError struct {
	Source     string
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d for %s", e.Source, e.StatusCode, e.URL)
}
