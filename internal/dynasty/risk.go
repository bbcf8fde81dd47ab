package dynasty

import "strings"

// injuryRisk maps Sleeper injury designations to a 0-100 availability score.
var injuryRisk = map[string]float64{
	"":             100,
	"questionable": 75,
	"doubtful":     50,
	"sus":          40,
	"out":          35,
	"pup":          25,
	"ir":           20,
	"cov":          60,
	"na":           30,
}

// RiskScore returns 100 for a player with no injury designation and lower
// values as the designation gets more severe. Unknown designations score 50.
func RiskScore(injuryStatus string) float64 {
	if score, ok := injuryRisk[strings.ToLower(strings.TrimSpace(injuryStatus))]; ok {
		return score
	}
	return 50
}
