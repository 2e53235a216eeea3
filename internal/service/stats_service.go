package service

import (
	"context"
	"fmt"
	"time"

	"habitTracker/internal/models/habit"
)

const DefaultWindowDays = 7

// StatRow - строка статистики по одной активной привычке
type StatRow struct {
	HabitID int64  `json:"habit_id"`
	Name    string `json:"name"`
	Total   int    `json:"total_done"`
	Recent  int    `json:"recent_done"`
	Streak  int    `json:"streak"`
}

type StatsService struct {
	repo HabitRepository
}

func NewStatsService(repo HabitRepository) StatsService {
	return StatsService{
		repo: repo,
	}
}

// даты из базы приходят полуночью UTC, today в локальной зоне сервера,
// поэтому сравниваются календарные компоненты, не моменты времени
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Streak считает текущую серию: подряд идущие календарные дни с выполнением,
// заканчивающуюся строго сегодня. Без выполнения за today серия равна нулю,
// какой бы длинной ни была полоса до вчера - серия отражает текущий темп,
// а не лучший исторический.
func Streak(dates []time.Time, today time.Time) int {
	streak := 0
	cursor := habit.DateOnly(today)

	for _, d := range dates {
		if sameDay(d, cursor) {
			streak++
			cursor = cursor.AddDate(0, 0, -1)
		} else {
			break
		}
	}

	return streak
}

// Stats собирает по активным привычкам пользователя сводку: всего выполнений,
// выполнений за окно и текущую серию. Привычки без выполнений входят с нулями,
// порядок - по возрастанию id.
func (s *StatsService) Stats(ctx context.Context, userID int64, today time.Time, windowDays int) ([]StatRow, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	totals, err := s.repo.HabitTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("получение сводки выполнений: %w", err)
	}

	since := habit.DateOnly(today).AddDate(0, 0, -windowDays)
	recent, err := s.repo.RecentCounts(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("получение счётчиков за окно: %w", err)
	}

	rows := make([]StatRow, 0, len(totals))
	for _, t := range totals {
		dates, err := s.repo.CompletionDates(ctx, t.HabitID)
		if err != nil {
			return nil, fmt.Errorf("получение дат выполнений: %w", err)
		}

		rows = append(rows, StatRow{
			HabitID: t.HabitID,
			Name:    t.Name,
			Total:   t.Total,
			Recent:  recent[t.HabitID],
			Streak:  Streak(dates, today),
		})
	}

	return rows, nil
}
