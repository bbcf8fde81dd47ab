package services

import (
	"context"
	"testing"

	"github.com/stitts-dev/dynasty-values/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPlayers(t *testing.T, store *GormStore, ids ...string) {
	t.Helper()
	players := make([]models.Player, 0, len(ids))
	for _, id := range ids {
		players = append(players, models.Player{ID: id, Name: "Player " + id, Position: "WR"})
	}
	require.NoError(t, store.UpsertPlayers(context.Background(), players))
}

func TestGormStore_LatestAsOf(t *testing.T) {
	store := NewGormStore(setupTestDB(t))
	ctx := context.Background()

	_, ok, err := store.LatestAsOf(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	seedPlayers(t, store, "A")
	require.NoError(t, store.UpsertValues(ctx, []models.ValueDaily{
		{AsOfDate: asOfDay().AddDate(0, 0, -1), PlayerID: "A", DynastyValue: floatPtr(10)},
		{AsOfDate: asOfDay(), PlayerID: "A", DynastyValue: floatPtr(20)},
	}))

	latest, ok, err := store.LatestAsOf(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, asOfDay().Equal(latest))
}

func TestGormStore_UpsertPlayersUpdatesInPlace(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db)
	ctx := context.Background()

	require.NoError(t, store.UpsertPlayers(ctx, []models.Player{{ID: "A", Name: "Old Name", Position: "WR", Team: "NYJ"}}))
	require.NoError(t, store.UpsertPlayers(ctx, []models.Player{{ID: "A", Name: "New Name", Position: "WR", Team: "BUF", AgeYears: floatPtr(27)}}))

	var players []models.Player
	require.NoError(t, db.Find(&players).Error)
	require.Len(t, players, 1)
	assert.Equal(t, "New Name", players[0].Name)
	assert.Equal(t, "BUF", players[0].Team)
	require.NotNil(t, players[0].AgeYears)
	assert.Equal(t, 27.0, *players[0].AgeYears)
}

func TestGormStore_DeleteNullValues(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormStore(db)
	ctx := context.Background()

	seedPlayers(t, store, "A", "B", "C")
	require.NoError(t, store.UpsertValues(ctx, []models.ValueDaily{
		{AsOfDate: asOfDay(), PlayerID: "A", DynastyValue: floatPtr(55)},
		{AsOfDate: asOfDay(), PlayerID: "B"},
		{AsOfDate: asOfDay().AddDate(0, 0, -1), PlayerID: "C"},
	}))

	deleted, err := store.DeleteNullValues(ctx, asOfDay())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, db.Model(&models.ValueDaily{}).Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining)
}

func TestGormStore_SetTrendsAndReads(t *testing.T) {
	store := NewGormStore(setupTestDB(t))
	ctx := context.Background()

	seedPlayers(t, store, "A", "B")
	require.NoError(t, store.UpsertValues(ctx, []models.ValueDaily{
		{AsOfDate: asOfDay(), PlayerID: "A", DynastyValue: floatPtr(60)},
		{AsOfDate: asOfDay(), PlayerID: "B", DynastyValue: floatPtr(80)},
	}))

	require.NoError(t, store.SetTrends(ctx, asOfDay(), 7, map[string]float64{"A": -1.25}))
	require.NoError(t, store.SetTrends(ctx, asOfDay(), 30, map[string]float64{"A": 3.5}))
	assert.Error(t, store.SetTrends(ctx, asOfDay(), 14, map[string]float64{"A": 1}))

	values, err := store.ValuesForPlayers(ctx, asOfDay(), []string{"A", "missing"})
	require.NoError(t, err)
	require.Len(t, values, 1)
	require.NotNil(t, values[0].Trend7d)
	require.NotNil(t, values[0].Trend30d)
	assert.Equal(t, -1.25, *values[0].Trend7d)
	assert.Equal(t, 3.5, *values[0].Trend30d)

	ordered, err := store.ValuesForDate(ctx, asOfDay())
	require.NoError(t, err)
	require.Len(t, ordered, 2)
	assert.Equal(t, "B", ordered[0].PlayerID)
	assert.Equal(t, "A", ordered[1].PlayerID)
}

func TestGormStore_ValueHistoryWindow(t *testing.T) {
	store := NewGormStore(setupTestDB(t))
	ctx := context.Background()

	seedPlayers(t, store, "A")
	require.NoError(t, store.UpsertValues(ctx, []models.ValueDaily{
		{AsOfDate: asOfDay().AddDate(0, 0, -31), PlayerID: "A", DynastyValue: floatPtr(1)},
		{AsOfDate: asOfDay().AddDate(0, 0, -30), PlayerID: "A", DynastyValue: floatPtr(2)},
		{AsOfDate: asOfDay().AddDate(0, 0, -1), PlayerID: "A", DynastyValue: floatPtr(3)},
		{AsOfDate: asOfDay(), PlayerID: "A", DynastyValue: floatPtr(4)},
	}))

	history, err := store.ValueHistory(ctx, asOfDay().AddDate(0, 0, -30), asOfDay())
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, h := range history {
		require.NotNil(t, h.DynastyValue)
		assert.Contains(t, []float64{2, 3}, *h.DynastyValue)
	}
}
