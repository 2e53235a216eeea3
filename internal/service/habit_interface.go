package service

import (
	"context"
	"time"

	"habitTracker/internal/models/habit"
)

// HabitRepository - контракт хранилища: каждая мутация фиксируется до возврата,
// ошибки фиксации не глушатся
type HabitRepository interface {
	CreateHabit(ctx context.Context, userID int64, name string, reminderTime *string) (int64, error)
	DeactivateHabit(ctx context.Context, userID, habitID int64) error
	ListActiveHabits(ctx context.Context, userID int64) ([]habit.HabitRow, error)
	ListHabitsDueAt(ctx context.Context, at string) ([]habit.DueHabit, error)
	RecordCompletion(ctx context.Context, userID, habitID int64, day time.Time) error
	CompletionDates(ctx context.Context, habitID int64) ([]time.Time, error)
	HabitTotals(ctx context.Context, userID int64) ([]habit.TotalRow, error)
	RecentCounts(ctx context.Context, userID int64, since time.Time) (map[int64]int, error)
	HealthCheck(ctx context.Context) error
}
