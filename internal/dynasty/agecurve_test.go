package dynasty

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgeMultiplier_Bounds(t *testing.T) {
	positions := append([]Position{"LB"}, FantasyPositions...)
	for _, pos := range positions {
		for age := 18.0; age <= 50.0; age += 0.5 {
			m := AgeMultiplier(pos, age)
			assert.Greater(t, m, 0.0, "%s age %.1f", pos, age)
			assert.LessOrEqual(t, m, 1.6, "%s age %.1f", pos, age)
		}
	}
}

func TestAgeMultiplier_UnknownAge(t *testing.T) {
	for _, pos := range FantasyPositions {
		assert.Equal(t, 1.0, AgeMultiplier(pos, 0), pos)
		assert.Equal(t, 1.0, AgeMultiplier(pos, -3), pos)
		assert.Equal(t, 1.0, AgeMultiplier(pos, math.NaN()), pos)
	}
}

func TestAgeMultiplier_Curves(t *testing.T) {
	tests := []struct {
		name     string
		position Position
		age      float64
		expected float64
	}{
		{"RB young upside", PositionRB, 21, 1.05},
		{"RB peak", PositionRB, 25, 1.0},
		{"RB early decline", PositionRB, 28, 0.85},
		{"RB floor", PositionRB, 45, 0.20},
		{"WR upside capped", PositionWR, 18, 1.20},
		{"WR peak", PositionWR, 28, 1.0},
		{"WR decline", PositionWR, 31, 0.80},
		{"TE decline", PositionTE, 32, 0.82},
		{"QB still peaking at 30", PositionQB, 30, 1.0},
		{"QB decline", PositionQB, 35, 0.76},
		{"QB floor", PositionQB, 50, 0.30},
		{"K ignores age", PositionK, 42, 1.0},
		{"DEF ignores age", PositionDEF, 30, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, AgeMultiplier(tt.position, tt.age), 1e-9)
		})
	}
}

func TestAgeMultiplier_RunningBacksDeclineFirst(t *testing.T) {
	for age := 28.0; age <= 40; age++ {
		rb := AgeMultiplier(PositionRB, age)
		qb := AgeMultiplier(PositionQB, age)
		assert.LessOrEqual(t, rb, qb, "age %.0f", age)
	}
	assert.Less(t, AgeMultiplier(PositionRB, 30), AgeMultiplier(PositionWR, 30))
}

func TestAgeScore(t *testing.T) {
	assert.InDelta(t, 44.0, AgeScore(80, PositionRB, 30), 1e-9)
	assert.Equal(t, 1.0, AgeScore(0, PositionRB, 25), "zero projection is lifted to the floor")
	assert.Equal(t, 100.0, AgeScore(95, PositionWR, 20), "upside is capped at 100")
	assert.Equal(t, 60.0, AgeScore(60, PositionK, 38))
}
