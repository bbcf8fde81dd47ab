package dynasty

import (
	"fmt"
	"math"
	"sort"
)

// Scores are the normalized components of one player's dynasty value. A nil
// component could not be computed.
type Scores struct {
	Market     *float64
	Projection *float64
	Age        *float64
	Risk       *float64
}

// Weights is a weight profile over the score components. Zero-weight
// components do not contribute and are not required.
type Weights struct {
	Market     float64
	Projection float64
	Age        float64
	Risk       float64
}

// Named weight profiles. Market consensus stays dominant in every profile;
// age corrects for career trajectory and projection/risk refine on top.
var WeightProfiles = map[string]Weights{
	"market_age":            {Market: 0.75, Age: 0.25},
	"market_projection_age": {Market: 0.60, Projection: 0.20, Age: 0.20},
	"full":                  {Market: 0.50, Projection: 0.15, Age: 0.20, Risk: 0.15},
}

// DefaultWeightProfile names the profile used when none is configured.
const DefaultWeightProfile = "market_age"

// ProfileNames lists the configured profiles in stable order.
func ProfileNames() []string {
	names := make([]string, 0, len(WeightProfiles))
	for name := range WeightProfiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProfileByName looks up and normalizes a weight profile.
func ProfileByName(name string) (Weights, error) {
	w, ok := WeightProfiles[name]
	if !ok {
		return Weights{}, fmt.Errorf("unknown weight profile %q", name)
	}
	return w.Normalized()
}

// Sum adds the component weights.
func (w Weights) Sum() float64 {
	return w.Market + w.Projection + w.Age + w.Risk
}

// Normalized rescales the weights so they sum to 1.0. Market must carry
// weight and no component may be negative.
func (w Weights) Normalized() (Weights, error) {
	if w.Market < 0 || w.Projection < 0 || w.Age < 0 || w.Risk < 0 {
		return Weights{}, fmt.Errorf("weights must not be negative: %+v", w)
	}
	if w.Market == 0 {
		return Weights{}, fmt.Errorf("market weight must be positive")
	}
	sum := w.Sum()
	return Weights{
		Market:     w.Market / sum,
		Projection: w.Projection / sum,
		Age:        w.Age / sum,
		Risk:       w.Risk / sum,
	}, nil
}

// Composite blends scores with w into a dynasty value in [0,100], rounded to
// two decimals. It returns nil when any weighted component is missing or
// negative.
func Composite(w Weights, s Scores) *float64 {
	nw, err := w.Normalized()
	if err != nil {
		return nil
	}

	parts := []struct {
		weight float64
		score  *float64
	}{
		{nw.Market, s.Market},
		{nw.Projection, s.Projection},
		{nw.Age, s.Age},
		{nw.Risk, s.Risk},
	}

	total := 0.0
	for _, p := range parts {
		if p.weight == 0 {
			continue
		}
		if p.score == nil || *p.score < 0 || math.IsNaN(*p.score) {
			return nil
		}
		total += p.weight * *p.score
	}

	value := Round2(clamp(total, 0, 100))
	return &value
}
