package services

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/dynasty-values/internal/dynasty"
	"github.com/stitts-dev/dynasty-values/internal/models"
	"github.com/stitts-dev/dynasty-values/internal/providers"
	"github.com/stitts-dev/dynasty-values/pkg/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), database.GormConfig(false))
	require.NoError(t, err)

	// Every pooled connection would get its own empty in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func floatPtr(v float64) *float64 { return &v }

type fakeRoster struct {
	players map[string]providers.RosterPlayer
	err     error
	block   bool
	calls   int32
}

func (f *fakeRoster) Name() string { return "fake_roster" }

func (f *fakeRoster) FetchPlayers(ctx context.Context) (map[string]providers.RosterPlayer, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.players, f.err
}

type fakeADP struct {
	rows []providers.ADPRow
	err  error
}

func (f *fakeADP) Source() string { return "fake_adp" }

func (f *fakeADP) Kind() providers.SourceKind { return providers.SourceKindMarket }

func (f *fakeADP) FetchADP(ctx context.Context) ([]providers.ADPRow, error) {
	return f.rows, f.err
}

var errInjected = errors.New("injected failure")

// failingStore fails the nth call of one write method.
type failingStore struct {
	Store
	stage  Stage
	failOn int
	calls  int
}

func (s *failingStore) UpsertPlayers(ctx context.Context, players []models.Player) error {
	if s.stage == StageUpsertPlayers {
		s.calls++
		if s.calls == s.failOn {
			return errInjected
		}
	}
	return s.Store.UpsertPlayers(ctx, players)
}

func (s *failingStore) UpsertValues(ctx context.Context, values []models.ValueDaily) error {
	if s.stage == StageUpsertValues {
		s.calls++
		if s.calls == s.failOn {
			return errInjected
		}
	}
	return s.Store.UpsertValues(ctx, values)
}

func testPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BatchSize:     50,
		Timeout:       5 * time.Second,
		Normalization: dynasty.ModeGlobal,
		Steepness:     dynasty.DefaultSteepness,
		WeightProfile: dynasty.DefaultWeightProfile,
		RetentionDays: 30,
		MinAge:        18,
		MaxAge:        50,
	}
}

func newTestPipeline(t *testing.T, store Store, roster providers.RosterProvider, adp providers.ADPProvider, cfg PipelineConfig) *Pipeline {
	t.Helper()
	p, err := NewPipeline(store, roster, adp, cfg, nil, quietLogger())
	require.NoError(t, err)
	return p
}

// scenarioRoster is a running back plus an offensive lineman.
func scenarioRoster() *fakeRoster {
	return &fakeRoster{players: map[string]providers.RosterPlayer{
		"A": {ID: "A", FullName: "Player A", Position: "RB", Team: "DET", Age: floatPtr(24), Active: true},
		"B": {ID: "B", FullName: "Player B", Position: "OL", Team: "DET", Age: floatPtr(26), Active: true},
	}}
}

func scenarioADP() *fakeADP {
	return &fakeADP{rows: []providers.ADPRow{
		{PlayerID: "A", ADP: 2},
		{PlayerID: "B", ADP: 5},
	}}
}
