package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stitts-dev/dynasty-values/internal/dynasty"
	"github.com/stitts-dev/dynasty-values/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the persistence surface the pipeline writes through.
type Store interface {
	UpsertPlayers(ctx context.Context, players []models.Player) error
	UpsertSnapshots(ctx context.Context, snapshots []models.ADPSnapshot) error
	UpsertValues(ctx context.Context, values []models.ValueDaily) error
	ValueHistory(ctx context.Context, since, until time.Time) ([]dynasty.HistoryPoint, error)
	SetTrends(ctx context.Context, asOf time.Time, windowDays int, deltas map[string]float64) error
	DeleteValuesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteValuesExcept(ctx context.Context, asOf time.Time) (int64, error)
	DeleteNullValues(ctx context.Context, asOf time.Time) (int64, error)
}

// ValueReader is the read side used by the HTTP handlers.
type ValueReader interface {
	LatestAsOf(ctx context.Context) (time.Time, bool, error)
	ValuesForDate(ctx context.Context, asOf time.Time) ([]models.ValueDaily, error)
	ValuesForPlayers(ctx context.Context, asOf time.Time, playerIDs []string) ([]models.ValueDaily, error)
}

// GormStore implements Store and ValueReader on gorm. Every call runs in
// its own transaction so one batch commits or rolls back as a unit.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) UpsertPlayers(ctx context.Context, players []models.Player) error {
	if len(players) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "pos", "team", "age_years", "updated_at"}),
		}).Create(&players).Error
	})
}

func (s *GormStore) UpsertSnapshots(ctx context.Context, snapshots []models.ADPSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "as_of_date"}, {Name: "source"}, {Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"raw_value", "meta", "updated_at"}),
		}).Create(&snapshots).Error
	})
}

// UpsertValues replaces the scores of existing rows. Trend columns are reset
// and recomputed by the trend stage.
func (s *GormStore) UpsertValues(ctx context.Context, values []models.ValueDaily) error {
	if len(values) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "as_of_date"}, {Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"market_value", "projection_score", "age_score", "risk_score",
				"dynasty_value", "trend_7d", "trend_30d", "updated_at",
			}),
		}).Create(&values).Error
	})
}

// ValueHistory returns dynasty values dated in [since, until).
func (s *GormStore) ValueHistory(ctx context.Context, since, until time.Time) ([]dynasty.HistoryPoint, error) {
	var rows []models.ValueDaily
	err := s.db.WithContext(ctx).
		Select("as_of_date", "player_id", "dynasty_value").
		Where("as_of_date >= ? AND as_of_date < ?", since, until).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load value history: %w", err)
	}

	history := make([]dynasty.HistoryPoint, 0, len(rows))
	for _, r := range rows {
		history = append(history, dynasty.HistoryPoint{
			PlayerID:     r.PlayerID,
			AsOf:         r.AsOfDate,
			DynastyValue: r.DynastyValue,
		})
	}
	return history, nil
}

// SetTrends writes one window's deltas onto the asOf rows.
func (s *GormStore) SetTrends(ctx context.Context, asOf time.Time, windowDays int, deltas map[string]float64) error {
	column, err := trendColumn(windowDays)
	if err != nil {
		return err
	}
	if len(deltas) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for playerID, delta := range deltas {
			err := tx.Model(&models.ValueDaily{}).
				Where("as_of_date = ? AND player_id = ?", asOf, playerID).
				Update(column, delta).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) DeleteValuesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("as_of_date < ?", cutoff).Delete(&models.ValueDaily{})
	return result.RowsAffected, result.Error
}

func (s *GormStore) DeleteValuesExcept(ctx context.Context, asOf time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("as_of_date <> ?", asOf).Delete(&models.ValueDaily{})
	return result.RowsAffected, result.Error
}

func (s *GormStore) DeleteNullValues(ctx context.Context, asOf time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("as_of_date = ? AND dynasty_value IS NULL", asOf).
		Delete(&models.ValueDaily{})
	return result.RowsAffected, result.Error
}

// LatestAsOf returns the most recent valuation date, or false when the
// table is empty.
func (s *GormStore) LatestAsOf(ctx context.Context) (time.Time, bool, error) {
	var latest models.ValueDaily
	err := s.db.WithContext(ctx).
		Select("as_of_date").
		Order("as_of_date DESC").
		Take(&latest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return latest.AsOfDate, true, nil
}

// ValuesForDate returns every row for asOf with its player, best first.
func (s *GormStore) ValuesForDate(ctx context.Context, asOf time.Time) ([]models.ValueDaily, error) {
	var values []models.ValueDaily
	err := s.db.WithContext(ctx).
		Preload("Player").
		Where("as_of_date = ?", asOf).
		Order("dynasty_value DESC NULLS LAST").
		Order("player_id").
		Find(&values).Error
	return values, err
}

func (s *GormStore) ValuesForPlayers(ctx context.Context, asOf time.Time, playerIDs []string) ([]models.ValueDaily, error) {
	var values []models.ValueDaily
	err := s.db.WithContext(ctx).
		Where("as_of_date = ? AND player_id IN ?", asOf, playerIDs).
		Find(&values).Error
	return values, err
}

func trendColumn(windowDays int) (string, error) {
	switch windowDays {
	case 7:
		return "trend_7d", nil
	case 30:
		return "trend_30d", nil
	default:
		return "", fmt.Errorf("no trend column for %d-day window", windowDays)
	}
}
