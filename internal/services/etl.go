package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/dynasty-values/internal/dynasty"
	"github.com/stitts-dev/dynasty-values/internal/models"
	"github.com/stitts-dev/dynasty-values/internal/providers"
	"github.com/stitts-dev/dynasty-values/pkg/config"
	"github.com/stitts-dev/dynasty-values/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// Stage names one step of a valuation run.
type Stage string

const (
	StageFetching           Stage = "fetching"
	StageFiltering          Stage = "filtering"
	StageUpsertPlayers      Stage = "upserting_players"
	StageUpsertObservations Stage = "upserting_observations"
	StageScoring            Stage = "scoring"
	StageUpsertValues       Stage = "upserting_values"
	StageTrends             Stage = "computing_trends"
	StageCleanup            Stage = "cleanup"
	StageDone               Stage = "done"
)

// TrendWindows are the lookback windows, in days, stored on every value row.
var TrendWindows = []int{7, 30}

// PipelineConfig holds the knobs a valuation run reads.
type PipelineConfig struct {
	BatchSize     int
	Timeout       time.Duration
	Normalization dynasty.NormalizationMode
	Steepness     float64
	WeightProfile string
	RetentionDays int
	MinAge        float64
	MaxAge        float64
}

// PipelineConfigFromConfig maps application config onto PipelineConfig.
func PipelineConfigFromConfig(cfg *config.Config) PipelineConfig {
	return PipelineConfig{
		BatchSize:     cfg.ETLBatchSize,
		Timeout:       cfg.ETLTimeout,
		Normalization: dynasty.NormalizationMode(cfg.NormalizationMode),
		Steepness:     cfg.LogisticSteepness,
		WeightProfile: cfg.WeightProfile,
		RetentionDays: cfg.RetentionDays,
		MinAge:        cfg.MinAge,
		MaxAge:        cfg.MaxAge,
	}
}

// RunSummary describes one valuation run. On failure Stage is the stage
// that failed and later counters are zero.
type RunSummary struct {
	RunID               string         `json:"runId"`
	AsOfDate            string         `json:"asOfDate"`
	Stage               Stage          `json:"stage"`
	ADPSource           string         `json:"adpSource"`
	SourceKind          string         `json:"sourceKind"`
	PlayersTotal        int            `json:"playersTotal"`
	PlayersActive       int            `json:"playersActive"`
	PlayersExcluded     int            `json:"playersExcluded"`
	PlayersFiltered     int            `json:"playersFiltered"`
	ADPRows             int            `json:"adpRows"`
	ObservationsWritten int            `json:"observationsWritten"`
	ValidValues         int            `json:"validValues"`
	TotalValues         int            `json:"totalValues"`
	Trends              map[string]int `json:"trends"`
	RowsPruned          int64          `json:"rowsPruned"`
	NullRowsPruned      int64          `json:"nullRowsPruned"`
	StartedAt           time.Time      `json:"startedAt"`
	DurationMs          int64          `json:"durationMs"`
}

// Candidate is a roster player that passed filtering.
type Candidate struct {
	ID           string
	Name         string
	Position     dynasty.Position
	Team         string
	Age          float64
	InjuryStatus string
}

// FilterStats counts how the roster was narrowed.
type FilterStats struct {
	Total    int
	Active   int
	Excluded int
	Kept     int
}

// Pipeline drives a valuation run from ingestion to cleanup.
type Pipeline struct {
	store      Store
	roster     providers.RosterProvider
	adp        providers.ADPProvider
	normalizer *dynasty.Normalizer
	weights    dynasty.Weights
	cfg        PipelineConfig
	metrics    *Metrics
	logger     *logrus.Logger
	now        func() time.Time
}

// NewPipeline validates cfg and wires a pipeline. metrics may be nil.
func NewPipeline(
	store Store,
	roster providers.RosterProvider,
	adp providers.ADPProvider,
	cfg PipelineConfig,
	metrics *Metrics,
	logger *logrus.Logger,
) (*Pipeline, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	normalizer, err := dynasty.NewNormalizer(cfg.Normalization, cfg.Steepness)
	if err != nil {
		return nil, err
	}
	weights, err := dynasty.ProfileByName(cfg.WeightProfile)
	if err != nil {
		return nil, err
	}

	longest := TrendWindows[len(TrendWindows)-1]
	if cfg.RetentionDays > 0 && cfg.RetentionDays < longest {
		logger.WithFields(logrus.Fields{
			"retention_days": cfg.RetentionDays,
			"trend_window":   longest,
		}).Warn("Retention is shorter than the longest trend window; long trends will use partial history")
	}

	return &Pipeline{
		store:      store,
		roster:     roster,
		adp:        adp,
		normalizer: normalizer,
		weights:    weights,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// AsOfDate truncates t to midnight UTC.
func AsOfDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Run executes one valuation for date, or today when date is nil. The
// returned summary is non-nil even on error and records the failing stage.
func (p *Pipeline) Run(ctx context.Context, date *time.Time) (*RunSummary, error) {
	started := p.now()
	asOf := AsOfDate(started)
	if date != nil {
		asOf = AsOfDate(*date)
	}

	runID := uuid.NewString()
	log := logger.WithRunContext(p.logger, runID, asOf)

	summary := &RunSummary{
		RunID:      runID,
		AsOfDate:   asOf.Format("2006-01-02"),
		ADPSource:  p.adp.Source(),
		SourceKind: string(p.adp.Kind()),
		Trends:     make(map[string]int, len(TrendWindows)),
		StartedAt:  started,
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	log.WithFields(logrus.Fields{
		"adp_source":     summary.ADPSource,
		"weight_profile": p.cfg.WeightProfile,
		"normalization":  p.cfg.Normalization,
	}).Info("Starting valuation run")

	err := p.run(ctx, asOf, summary, log)
	duration := p.now().Sub(started)
	summary.DurationMs = duration.Milliseconds()

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %w", ErrRunTimeout, p.cfg.Timeout, err)
		}
		log.WithError(err).WithField("stage", summary.Stage).Error("Valuation run failed")
		p.metrics.ObserveRun(summary, duration, err)
		return summary, err
	}

	log.WithFields(logrus.Fields{
		"players_filtered": summary.PlayersFiltered,
		"valid_values":     summary.ValidValues,
		"total_values":     summary.TotalValues,
		"rows_pruned":      summary.RowsPruned + summary.NullRowsPruned,
		"duration_ms":      summary.DurationMs,
	}).Infof("Processed %d players (%d/%d dynasty values)", summary.PlayersFiltered, summary.ValidValues, summary.TotalValues)
	p.metrics.ObserveRun(summary, duration, nil)
	return summary, nil
}

func (p *Pipeline) run(ctx context.Context, asOf time.Time, s *RunSummary, log *logrus.Entry) error {
	s.Stage = StageFetching
	roster, adpRows, err := p.fetch(ctx)
	if err != nil {
		return err
	}
	s.PlayersTotal = len(roster)
	s.ADPRows = len(adpRows)
	if len(adpRows) == 0 {
		log.Warn("ADP source returned no rows; no values will be written")
	}

	s.Stage = StageFiltering
	candidates, stats := FilterPlayers(roster, p.cfg.MinAge, p.cfg.MaxAge)
	s.PlayersActive = stats.Active
	s.PlayersExcluded = stats.Excluded
	s.PlayersFiltered = stats.Kept
	log.WithFields(logrus.Fields{
		"total":    stats.Total,
		"active":   stats.Active,
		"excluded": stats.Excluded,
		"kept":     stats.Kept,
	}).Info("Filtered roster")

	s.Stage = StageUpsertPlayers
	if err := writeBatches(ctx, log, StageUpsertPlayers, playerRecords(candidates), p.cfg.BatchSize, p.store.UpsertPlayers); err != nil {
		return err
	}

	s.Stage = StageUpsertObservations
	snapshots, err := p.observations(asOf, adpRows, candidates)
	if err != nil {
		return err
	}
	if err := writeBatches(ctx, log, StageUpsertObservations, snapshots, p.cfg.BatchSize, p.store.UpsertSnapshots); err != nil {
		return err
	}
	s.ObservationsWritten = len(snapshots)

	s.Stage = StageScoring
	values := p.score(asOf, adpRows, roster, candidates)
	s.TotalValues = len(values)
	for _, v := range values {
		if v.DynastyValue != nil {
			s.ValidValues++
		}
	}

	s.Stage = StageUpsertValues
	if err := writeBatches(ctx, log, StageUpsertValues, values, p.cfg.BatchSize, p.store.UpsertValues); err != nil {
		return err
	}

	s.Stage = StageTrends
	if err := p.computeTrends(ctx, log, asOf, values, s); err != nil {
		return err
	}

	s.Stage = StageCleanup
	if err := p.cleanup(ctx, asOf, s); err != nil {
		return err
	}

	s.Stage = StageDone
	return nil
}

// fetch pulls the roster and the ADP board concurrently. Either failure
// aborts the run before anything is written. A roster-derived board is
// built from the same roster download.
func (p *Pipeline) fetch(ctx context.Context) (map[string]providers.RosterPlayer, []providers.ADPRow, error) {
	if derived, ok := p.adp.(providers.RosterADPProvider); ok {
		roster, err := p.roster.FetchPlayers(ctx)
		if err != nil {
			return nil, nil, &FetchError{Source: p.roster.Name(), Err: err}
		}
		return roster, derived.ADPFromRoster(roster), nil
	}

	var (
		roster  map[string]providers.RosterPlayer
		adpRows []providers.ADPRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		players, err := p.roster.FetchPlayers(gctx)
		if err != nil {
			return &FetchError{Source: p.roster.Name(), Err: err}
		}
		roster = players
		return nil
	})
	g.Go(func() error {
		rows, err := p.adp.FetchADP(gctx)
		if err != nil {
			return &FetchError{Source: p.adp.Source(), Err: err}
		}
		adpRows = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return roster, adpRows, nil
}

// FilterPlayers keeps active players at a fantasy position whose age is
// known and within [minAge, maxAge]. Output is sorted by player id.
func FilterPlayers(players map[string]providers.RosterPlayer, minAge, maxAge float64) ([]Candidate, FilterStats) {
	stats := FilterStats{Total: len(players)}
	candidates := make([]Candidate, 0, len(players)/4)

	for id, p := range players {
		if !p.Active {
			continue
		}
		stats.Active++

		pos, ok := dynasty.ParsePosition(p.Position)
		if !ok {
			if dynasty.IsExcludedPosition(p.Position) {
				stats.Excluded++
			}
			continue
		}
		if p.Age == nil || math.IsNaN(*p.Age) || *p.Age < minAge || *p.Age > maxAge {
			continue
		}

		candidates = append(candidates, Candidate{
			ID:           id,
			Name:         p.DisplayName(),
			Position:     pos,
			Team:         p.Team,
			Age:          *p.Age,
			InjuryStatus: p.InjuryStatus,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ID < candidates[j].ID
	})
	stats.Kept = len(candidates)
	return candidates, stats
}

func playerRecords(candidates []Candidate) []models.Player {
	records := make([]models.Player, 0, len(candidates))
	for _, c := range candidates {
		age := c.Age
		records = append(records, models.Player{
			ID:       c.ID,
			Name:     c.Name,
			Position: string(c.Position),
			Team:     c.Team,
			AgeYears: &age,
		})
	}
	return records
}

type observationMeta struct {
	SourceKind string           `json:"sourceKind"`
	Position   string           `json:"position,omitempty"`
	Row        providers.ADPRow `json:"row"`
}

// observations builds one snapshot per filtered player with a finite ADP.
// When a source lists a player twice the first (lowest) row wins.
func (p *Pipeline) observations(asOf time.Time, rows []providers.ADPRow, candidates []Candidate) ([]models.ADPSnapshot, error) {
	kept := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		kept[c.ID] = c
	}

	seen := make(map[string]bool, len(rows))
	snapshots := make([]models.ADPSnapshot, 0, len(candidates))
	for _, row := range rows {
		c, ok := kept[row.PlayerID]
		if !ok || seen[row.PlayerID] || !finite(row.ADP) {
			continue
		}
		seen[row.PlayerID] = true

		meta, err := json.Marshal(observationMeta{
			SourceKind: string(p.adp.Kind()),
			Position:   string(c.Position),
			Row:        row,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode observation meta: %w", err)
		}

		snapshots = append(snapshots, models.ADPSnapshot{
			AsOfDate: asOf,
			Source:   p.adp.Source(),
			PlayerID: row.PlayerID,
			RawValue: row.ADP,
			Meta:     datatypes.JSON(meta),
		})
	}
	return snapshots, nil
}

// marketInputs turns ADP rows into normalizer inputs. The whole board is
// used, including players the filter dropped, so the market range reflects
// every ranked player. Rows without a resolvable position are skipped.
func marketInputs(rows []providers.ADPRow, roster map[string]providers.RosterPlayer) []dynasty.ADPInput {
	seen := make(map[string]bool, len(rows))
	inputs := make([]dynasty.ADPInput, 0, len(rows))
	for _, row := range rows {
		if seen[row.PlayerID] || !finite(row.ADP) {
			continue
		}
		position := row.Position
		if position == "" {
			position = roster[row.PlayerID].Position
		}
		position = strings.ToUpper(strings.TrimSpace(position))
		if position == "" {
			continue
		}
		seen[row.PlayerID] = true
		inputs = append(inputs, dynasty.ADPInput{
			PlayerID: row.PlayerID,
			Position: dynasty.Position(position),
			ADP:      row.ADP,
		})
	}
	return inputs
}

// score computes a value row for every filtered player with a market value.
func (p *Pipeline) score(asOf time.Time, rows []providers.ADPRow, roster map[string]providers.RosterPlayer, candidates []Candidate) []models.ValueDaily {
	market := p.normalizer.Normalize(marketInputs(rows, roster))

	values := make([]models.ValueDaily, 0, len(market))
	for _, c := range candidates {
		mv, ok := market[c.ID]
		if !ok {
			continue
		}

		marketValue := mv
		projection := mv
		age := dynasty.AgeScore(projection, c.Position, c.Age)
		risk := dynasty.RiskScore(c.InjuryStatus)

		scores := dynasty.Scores{
			Market:     &marketValue,
			Projection: &projection,
			Age:        &age,
			Risk:       &risk,
		}

		values = append(values, models.ValueDaily{
			AsOfDate:        asOf,
			PlayerID:        c.ID,
			MarketValue:     scores.Market,
			ProjectionScore: scores.Projection,
			AgeScore:        scores.Age,
			RiskScore:       scores.Risk,
			DynastyValue:    dynasty.Composite(p.weights, scores),
		})
	}
	return values
}

// computeTrends compares today's values with the prior history in each
// window and stores the deltas. Players without history keep a null trend.
func (p *Pipeline) computeTrends(ctx context.Context, log *logrus.Entry, asOf time.Time, values []models.ValueDaily, s *RunSummary) error {
	latest := make(map[string]float64, len(values))
	for _, v := range values {
		if v.DynastyValue != nil {
			latest[v.PlayerID] = *v.DynastyValue
		}
	}
	if len(latest) == 0 {
		return nil
	}

	longest := TrendWindows[len(TrendWindows)-1]
	history, err := p.store.ValueHistory(ctx, dynasty.WindowStart(asOf, longest), asOf)
	if err != nil {
		return err
	}

	for _, window := range TrendWindows {
		deltas := dynasty.TrendDeltas(latest, history, asOf, window)
		s.Trends[fmt.Sprintf("%dd", window)] = len(deltas)

		w := window
		write := func(ctx context.Context, ids []string) error {
			chunk := make(map[string]float64, len(ids))
			for _, id := range ids {
				chunk[id] = deltas[id]
			}
			return p.store.SetTrends(ctx, asOf, w, chunk)
		}
		if err := writeBatches(ctx, log, StageTrends, sortedKeys(deltas), p.cfg.BatchSize, write); err != nil {
			return err
		}
	}
	return nil
}

// cleanup enforces retention and drops today's rows that could not be valued.
func (p *Pipeline) cleanup(ctx context.Context, asOf time.Time, s *RunSummary) error {
	var (
		pruned int64
		err    error
	)
	if p.cfg.RetentionDays == 0 {
		pruned, err = p.store.DeleteValuesExcept(ctx, asOf)
	} else {
		pruned, err = p.store.DeleteValuesBefore(ctx, asOf.AddDate(0, 0, -p.cfg.RetentionDays))
	}
	if err != nil {
		return fmt.Errorf("failed to prune value history: %w", err)
	}
	s.RowsPruned = pruned

	nulls, err := p.store.DeleteNullValues(ctx, asOf)
	if err != nil {
		return fmt.Errorf("failed to delete null values: %w", err)
	}
	s.NullRowsPruned = nulls
	return nil
}

// writeBatches writes items in chunks of size, one store call per chunk.
// Chunks before a failure stay committed.
func writeBatches[T any](ctx context.Context, log *logrus.Entry, stage Stage, items []T, size int, write func(context.Context, []T) error) error {
	total := (len(items) + size - 1) / size
	for batch := 0; batch < total; batch++ {
		if err := ctx.Err(); err != nil {
			return &BatchError{Stage: stage, Batch: batch, Total: total, Err: err}
		}
		lo := batch * size
		hi := min(lo+size, len(items))
		if err := write(ctx, items[lo:hi]); err != nil {
			return &BatchError{Stage: stage, Batch: batch, Total: total, Err: err}
		}
		log.WithFields(logrus.Fields{
			"stage": stage,
			"batch": batch + 1,
			"total": total,
			"rows":  hi - lo,
		}).Debug("Batch committed")
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func runOutcome(err error) string {
	var (
		fetchErr *FetchError
		batchErr *BatchError
	)
	switch {
	case errors.Is(err, ErrRunTimeout):
		return "timeout"
	case errors.As(err, &fetchErr):
		return "fetch_error"
	case errors.As(err, &batchErr):
		return "batch_error"
	default:
		return "error"
	}
}
