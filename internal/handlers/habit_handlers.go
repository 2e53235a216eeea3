package handlers

import (
	"net/http"
	"strconv"
	"time"

	"habitTracker/internal/logger"
	"habitTracker/internal/service"

	"github.com/go-chi/chi/v5"
)

// служебный HTTP-интерфейс: проверка живости и отладочная статистика.
// Пользовательский интерфейс - телеграм, не этот.

type HabitHandler struct {
	habits *service.HabitService
	stats  *service.StatsService
	now    func() time.Time
}

func NewHabitHandler(habits *service.HabitService, stats *service.StatsService, now func() time.Time) *HabitHandler {
	return &HabitHandler{
		habits: habits,
		stats:  stats,
		now:    now,
	}
}

func (h *HabitHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.habits.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Неудачная проверка здоровья", err)
		responseWithError(w, http.StatusServiceUnavailable, "unhealthy")
		return
	}
	responseWithJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// GET /debug/stats/{userID}
func (h *HabitHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "некорректный userID")
		return
	}

	rows, err := h.stats.Stats(r.Context(), userID, h.now(), service.DefaultWindowDays)
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}
		logger.Error("HTTP: Ошибка получения статистики", err)
		responseWithError(w, http.StatusInternalServerError, "внутренняя ошибка")
		return
	}

	responseWithJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"stats":   rows,
	})
}
