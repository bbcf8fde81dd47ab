package providers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/dynasty-values/internal/dynasty"
	"github.com/stitts-dev/dynasty-values/pkg/logger"
)

const SourceSynthetic = "synthetic_adp"

// Heuristic penalties. Lower totals rank earlier; the position base keeps
// kickers and defenses behind the skill positions on the shared board.
var syntheticPositionBase = map[dynasty.Position]float64{
	dynasty.PositionRB:  20,
	dynasty.PositionWR:  25,
	dynasty.PositionQB:  40,
	dynasty.PositionTE:  60,
	dynasty.PositionDEF: 150,
	dynasty.PositionK:   160,
}

const (
	unknownExperiencePenalty = 30
	unknownDepthPenalty      = 25
)

// SyntheticADP implements ADPProvider by ranking the roster itself when no
// market source is available. The board is one ranking across positions.
type SyntheticADP struct {
	roster RosterProvider
	logger *logrus.Logger
}

// NewSyntheticADP creates a synthetic ADP provider over roster.
func NewSyntheticADP(roster RosterProvider, logger *logrus.Logger) *SyntheticADP {
	return &SyntheticADP{roster: roster, logger: logger}
}

func (s *SyntheticADP) Source() string {
	return SourceSynthetic
}

func (s *SyntheticADP) Kind() SourceKind {
	return SourceKindSynthetic
}

func (s *SyntheticADP) FetchADP(ctx context.Context) ([]ADPRow, error) {
	players, err := s.roster.FetchPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster for synthetic ADP: %w", err)
	}
	return s.ADPFromRoster(players), nil
}

// ADPFromRoster ranks a roster the caller already holds.
func (s *SyntheticADP) ADPFromRoster(players map[string]RosterPlayer) []ADPRow {
	rows := SyntheticRanking(players)
	logger.WithSource(s.logger, SourceSynthetic).WithField("rows", len(rows)).
		Warn("Using synthetic ADP; market values are heuristic")
	return rows
}

// SyntheticRanking ranks active fantasy-position players on a single board
// by a heuristic penalty built from position tier, experience, injury
// status and depth chart order. ADP is the 1-based board rank. Ties break
// on player id so the output is deterministic.
func SyntheticRanking(players map[string]RosterPlayer) []ADPRow {
	type scored struct {
		row     ADPRow
		penalty float64
	}

	board := make([]scored, 0, len(players))
	for id, p := range players {
		if !p.Active {
			continue
		}
		pos, ok := dynasty.ParsePosition(p.Position)
		if !ok {
			continue
		}
		board = append(board, scored{
			row:     ADPRow{PlayerID: id, Name: p.DisplayName(), Position: string(pos)},
			penalty: syntheticPenalty(pos, p),
		})
	}

	sort.Slice(board, func(i, j int) bool {
		if board[i].penalty != board[j].penalty {
			return board[i].penalty < board[j].penalty
		}
		return board[i].row.PlayerID < board[j].row.PlayerID
	})

	rows := make([]ADPRow, len(board))
	for rank, s := range board {
		s.row.ADP = float64(rank + 1)
		rows[rank] = s.row
	}
	return rows
}

func syntheticPenalty(pos dynasty.Position, p RosterPlayer) float64 {
	penalty := syntheticPositionBase[pos]

	switch {
	case p.YearsExp == nil:
		penalty += unknownExperiencePenalty
	case *p.YearsExp == 0:
		penalty += 10
	case *p.YearsExp <= 3:
	case *p.YearsExp <= 7:
		penalty += 5
	default:
		penalty += 15
	}

	// Healthy players score 100 on the risk scale.
	penalty += (100 - dynasty.RiskScore(strings.TrimSpace(p.InjuryStatus))) / 2

	switch {
	case p.DepthChartOrder == nil:
		penalty += unknownDepthPenalty
	case *p.DepthChartOrder <= 1:
	case *p.DepthChartOrder == 2:
		penalty += 20
	default:
		penalty += 45
	}

	return penalty
}
