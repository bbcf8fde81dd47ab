// Package dynasty holds the pure valuation math: age curves, ADP
// normalization, the composite formula and trend deltas. Nothing in this
// package performs I/O.
package dynasty

import (
	"math"
	"strings"
)

// Position is a fantasy-relevant roster position.
type Position string

const (
	PositionQB  Position = "QB"
	PositionRB  Position = "RB"
	PositionWR  Position = "WR"
	PositionTE  Position = "TE"
	PositionK   Position = "K"
	PositionDEF Position = "DEF"
)

// FantasyPositions is the allow-list used by the player filter.
var FantasyPositions = []Position{PositionQB, PositionRB, PositionWR, PositionTE, PositionK, PositionDEF}

// ExcludedPositions are roles that show up in roster feeds but never score.
var ExcludedPositions = []string{"OL", "G", "OT", "C", "OG", "P", "LS"}

// ParsePosition returns the fantasy position for a raw feed value and false
// when the position is outside the allow-list.
func ParsePosition(raw string) (Position, bool) {
	p := Position(strings.ToUpper(strings.TrimSpace(raw)))
	for _, allowed := range FantasyPositions {
		if p == allowed {
			return p, true
		}
	}
	return "", false
}

// IsExcludedPosition reports whether raw is a known non-fantasy role.
func IsExcludedPosition(raw string) bool {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	for _, p := range ExcludedPositions {
		if raw == p {
			return true
		}
	}
	return false
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
