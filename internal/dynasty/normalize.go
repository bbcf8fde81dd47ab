package dynasty

import (
	"fmt"
	"math"
)

// NormalizationMode selects how raw ADP becomes a 0-100 market value.
type NormalizationMode string

const (
	// ModeGlobal scales every player against one cross-position range. It
	// drives the single leaderboard and is the default.
	ModeGlobal NormalizationMode = "global"
	// ModePosition scales each position bucket independently.
	ModePosition NormalizationMode = "position"
	// ModeLogistic passes the global range position through a sigmoid.
	ModeLogistic NormalizationMode = "logistic"
)

// DefaultSteepness is the sigmoid k used by the logistic mode.
const DefaultSteepness = 10.0

const neutralScore = 50.0

// ADPInput is one player's market-consensus draft position.
type ADPInput struct {
	PlayerID string
	Position Position
	ADP      float64
}

// MinMax maps adp onto [0,100] with lower ADP scoring higher. A degenerate
// range returns the neutral midpoint.
func MinMax(adp, min, max float64) float64 {
	if min == max {
		return neutralScore
	}
	score := 100 * (1 - (adp-min)/(max-min))
	return Round2(clamp(score, 0, 100))
}

// Logistic maps adp through a sigmoid centred on the middle of [min,max].
// Larger steepness sharpens the transition.
func Logistic(adp, min, max, steepness float64) float64 {
	if min == max {
		return neutralScore
	}
	z := (adp - min) / (max - min)
	score := 100 / (1 + math.Exp(steepness*(z-0.5)))
	return Round2(clamp(score, 0, 100))
}

// Normalizer converts a set of ADP inputs into market values keyed by player.
type Normalizer struct {
	Mode      NormalizationMode
	Steepness float64
}

// NewNormalizer validates mode and returns a Normalizer.
func NewNormalizer(mode NormalizationMode, steepness float64) (*Normalizer, error) {
	switch mode {
	case ModeGlobal, ModePosition, ModeLogistic:
	default:
		return nil, fmt.Errorf("unknown normalization mode %q", mode)
	}
	if steepness <= 0 {
		steepness = DefaultSteepness
	}
	return &Normalizer{Mode: mode, Steepness: steepness}, nil
}

// Normalize scores every input with a finite ADP. Inputs with NaN or
// infinite ADP are skipped.
func (n *Normalizer) Normalize(inputs []ADPInput) map[string]float64 {
	valid := finiteInputs(inputs)
	switch n.Mode {
	case ModePosition:
		return MinMaxByPosition(valid, true)
	case ModeLogistic:
		lo, hi := adpRange(valid)
		out := make(map[string]float64, len(valid))
		for _, in := range valid {
			out[in.PlayerID] = Logistic(in.ADP, lo, hi, n.Steepness)
		}
		return out
	default:
		return MinMaxGlobal(valid)
	}
}

// MinMaxGlobal scales inputs against the range of the whole set.
func MinMaxGlobal(inputs []ADPInput) map[string]float64 {
	lo, hi := adpRange(inputs)
	out := make(map[string]float64, len(inputs))
	for _, in := range inputs {
		out[in.PlayerID] = MinMax(in.ADP, lo, hi)
	}
	return out
}

// MinMaxByPosition scales each position bucket against its own range. With
// invert set, lower ADP scores higher; otherwise the raw order is kept.
func MinMaxByPosition(inputs []ADPInput, invert bool) map[string]float64 {
	buckets := make(map[Position][]ADPInput)
	for _, in := range inputs {
		buckets[in.Position] = append(buckets[in.Position], in)
	}

	out := make(map[string]float64, len(inputs))
	for _, bucket := range buckets {
		lo, hi := adpRange(bucket)
		for _, in := range bucket {
			score := MinMax(in.ADP, lo, hi)
			if !invert && lo != hi {
				score = Round2(100 - score)
			}
			out[in.PlayerID] = score
		}
	}
	return out
}

func finiteInputs(inputs []ADPInput) []ADPInput {
	out := make([]ADPInput, 0, len(inputs))
	for _, in := range inputs {
		if math.IsNaN(in.ADP) || math.IsInf(in.ADP, 0) {
			continue
		}
		out = append(out, in)
	}
	return out
}

func adpRange(inputs []ADPInput) (float64, float64) {
	if len(inputs) == 0 {
		return 0, 0
	}
	lo, hi := inputs[0].ADP, inputs[0].ADP
	for _, in := range inputs[1:] {
		lo = math.Min(lo, in.ADP)
		hi = math.Max(hi, in.ADP)
	}
	return lo, hi
}
