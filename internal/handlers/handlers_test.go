package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"habitTracker/internal/handlers"
	"habitTracker/internal/repository/habit/inmemory"
	"habitTracker/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unhealthyStorage подменяет только проверку здоровья
type unhealthyStorage struct {
	*inmemory.HabitStorage
}

func (s *unhealthyStorage) HealthCheck(ctx context.Context) error {
	return errors.New("соединение потеряно")
}

func newTestServer(repo service.HabitRepository, now time.Time) *httptest.Server {
	habits := service.NewHabitService(repo)
	stats := service.NewStatsService(repo)
	h := handlers.NewHabitHandler(&habits, &stats, func() time.Time { return now })

	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Get("/debug/stats/{userID}", h.UserStats)
	return httptest.NewServer(r)
}

// TestHealthCheck тестирует оба исхода проверки здоровья
func TestHealthCheck(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	t.Run("healthy", func(t *testing.T) {
		srv := newTestServer(inmemory.NewHabitStorage(), now)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		srv := newTestServer(&unhealthyStorage{inmemory.NewHabitStorage()}, now)
		defer srv.Close()

		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

// TestUserStats тестирует отладочную статистику
func TestUserStats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	repo := inmemory.NewHabitStorage()
	habits := service.NewHabitService(repo)
	habitID, err := habits.CreateHabit(ctx, 42, "Вода", "07:00")
	require.NoError(t, err)
	require.NoError(t, habits.MarkDone(ctx, 42, habitID, now))

	srv := newTestServer(repo, now)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/stats/42")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		UserID int64              `json:"user_id"`
		Stats  []service.StatRow  `json:"stats"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(42), body.UserID)
	require.Len(t, body.Stats, 1)
	assert.Equal(t, "Вода", body.Stats[0].Name)
	assert.Equal(t, 1, body.Stats[0].Total)
	assert.Equal(t, 1, body.Stats[0].Streak)
}

// TestUserStats_BadUserID тестирует некорректный параметр пути
func TestUserStats_BadUserID(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	srv := newTestServer(inmemory.NewHabitStorage(), now)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/stats/abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
