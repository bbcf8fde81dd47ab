package providers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCache for testing
type MockCache struct {
	mock.Mock
}

func (m *MockCache) SetSimple(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) GetSimple(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

// countingBreaker records which services were guarded.
type countingBreaker struct {
	mu    sync.Mutex
	calls map[string]int
}

func (b *countingBreaker) Execute(service string, fn func() (interface{}, error)) (interface{}, error) {
	b.mu.Lock()
	if b.calls == nil {
		b.calls = make(map[string]int)
	}
	b.calls[service]++
	b.mu.Unlock()
	return fn()
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

const sleeperFixture = `{
  "4046": {"player_id": "4046", "first_name": "Patrick", "last_name": "Mahomes", "full_name": "Patrick Mahomes",
           "position": "QB", "team": "KC", "age": 29, "years_exp": 7, "injury_status": null,
           "depth_chart_order": 1, "active": true},
  "9999": {"player_id": "9999", "first_name": "Joe", "last_name": "Lineman",
           "position": "OT", "team": null, "age": null, "years_exp": null, "active": false}
}`

func TestSleeperClient_FetchPlayers(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/players/nfl", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sleeperFixture))
	}))
	defer server.Close()

	breaker := &countingBreaker{}
	fetcher := NewHTTPFetcher(5*time.Second, 0, breaker, quietLogger())
	client := NewSleeperClient(fetcher, server.URL+"/", nil, time.Hour, quietLogger())

	players, err := client.FetchPlayers(context.Background())
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, breaker.calls[SourceSleeper])

	mahomes := players["4046"]
	assert.Equal(t, "Patrick Mahomes", mahomes.DisplayName())
	assert.Equal(t, "QB", mahomes.Position)
	assert.Equal(t, "KC", mahomes.Team)
	require.NotNil(t, mahomes.Age)
	assert.Equal(t, 29.0, *mahomes.Age)
	assert.Empty(t, mahomes.InjuryStatus)
	assert.True(t, mahomes.Active)

	lineman := players["9999"]
	assert.Equal(t, "Joe Lineman", lineman.DisplayName())
	assert.Nil(t, lineman.Age)
	assert.Nil(t, lineman.YearsExp)
	assert.Empty(t, lineman.Team)
	assert.False(t, lineman.Active)
}

func TestSleeperClient_UsesCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("roster should be served from cache")
	}))
	defer server.Close()

	cache := &MockCache{}
	cache.On("GetSimple", sleeperPlayersCacheKey, mock.Anything).
		Run(func(args mock.Arguments) {
			dest := args.Get(1).(*map[string]RosterPlayer)
			*dest = map[string]RosterPlayer{"1": {ID: "1", FullName: "Cached Player"}}
		}).
		Return(nil)

	client := NewSleeperClient(NewHTTPFetcher(time.Second, 0, nil, quietLogger()), server.URL, cache, time.Hour, quietLogger())
	players, err := client.FetchPlayers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cached Player", players["1"].FullName)
	cache.AssertExpectations(t)
}

func TestSleeperClient_PopulatesCacheOnMiss(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sleeperFixture))
	}))
	defer server.Close()

	cache := &MockCache{}
	cache.On("GetSimple", sleeperPlayersCacheKey, mock.Anything).Return(errors.New("cache miss"))
	cache.On("SetSimple", sleeperPlayersCacheKey, mock.Anything, 12*time.Hour).Return(nil)

	client := NewSleeperClient(NewHTTPFetcher(time.Second, 0, nil, quietLogger()), server.URL, cache, 12*time.Hour, quietLogger())
	players, err := client.FetchPlayers(context.Background())
	require.NoError(t, err)
	assert.Len(t, players, 2)
	cache.AssertExpectations(t)
}

func TestSleeperClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewSleeperClient(NewHTTPFetcher(time.Second, 0, nil, quietLogger()), server.URL, nil, time.Hour, quietLogger())
	_, err := client.FetchPlayers(context.Background())
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, SourceSleeper, statusErr.Source)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
}

func TestHTTPFetcher_RespectsCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewHTTPFetcher(time.Second, 1, nil, quietLogger())
	_, err := fetcher.Get(ctx, "test", server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
