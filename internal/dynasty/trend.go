package dynasty

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// HistoryPoint is one prior dynasty value for a player.
type HistoryPoint struct {
	PlayerID     string
	AsOf         time.Time
	DynastyValue *float64
}

// WindowStart returns the inclusive start of a lookback window ending at asOf.
func WindowStart(asOf time.Time, windowDays int) time.Time {
	return asOf.AddDate(0, 0, -windowDays)
}

// TrendDeltas computes latest - mean(history in [asOf-window, asOf)) per
// player. Players without a usable historical row are omitted, so callers
// leave their trend null.
func TrendDeltas(latest map[string]float64, history []HistoryPoint, asOf time.Time, windowDays int) map[string]float64 {
	since := WindowStart(asOf, windowDays)

	samples := make(map[string][]float64)
	for _, h := range history {
		if h.DynastyValue == nil {
			continue
		}
		if h.AsOf.Before(since) || !h.AsOf.Before(asOf) {
			continue
		}
		samples[h.PlayerID] = append(samples[h.PlayerID], *h.DynastyValue)
	}

	deltas := make(map[string]float64, len(samples))
	for playerID, current := range latest {
		values := samples[playerID]
		if len(values) == 0 {
			continue
		}
		deltas[playerID] = Round2(current - stat.Mean(values, nil))
	}
	return deltas
}
