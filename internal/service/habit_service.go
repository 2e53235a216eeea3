package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"habitTracker/internal/logger"
	"habitTracker/internal/models/habit"

	"go.uber.org/zap"
)

type HabitService struct {
	repo HabitRepository
}

func NewHabitService(repo HabitRepository) HabitService {
	return HabitService{
		repo: repo,
	}
}

func (s *HabitService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

// CreateHabit валидирует ввод и нормализует время напоминания перед записью.
// Пустое reminderTime означает привычку без напоминания.
func (s *HabitService) CreateHabit(ctx context.Context, userID int64, name, reminderTime string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, NewValidationError("name", "название не может быть пустым")
	}

	var rt *string
	if strings.TrimSpace(reminderTime) != "" {
		normalized, err := habit.NormalizeReminderTime(reminderTime)
		if err != nil {
			return 0, NewValidationError("reminder_time", "ожидается формат ЧЧ:ММ")
		}
		rt = &normalized
	}

	id, err := s.repo.CreateHabit(ctx, userID, name, rt)
	if err != nil {
		return 0, fmt.Errorf("создание привычки: %w", err)
	}

	logger.Info("Service: Привычка создана",
		zap.Int64("habit_id", id),
		zap.Int64("user_id", userID))
	return id, nil
}

// чужой или уже неактивный id - молчаливый no-op, чтобы не раскрывать
// существование чужих привычек
func (s *HabitService) DeactivateHabit(ctx context.Context, userID, habitID int64) error {
	if err := s.repo.DeactivateHabit(ctx, userID, habitID); err != nil {
		return fmt.Errorf("деактивация привычки: %w", err)
	}
	return nil
}

func (s *HabitService) ListActiveHabits(ctx context.Context, userID int64) ([]habit.HabitRow, error) {
	rows, err := s.repo.ListActiveHabits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("получение привычек: %w", err)
	}
	return rows, nil
}

func (s *HabitService) ListHabitsDueAt(ctx context.Context, at string) ([]habit.DueHabit, error) {
	rows, err := s.repo.ListHabitsDueAt(ctx, at)
	if err != nil {
		return nil, fmt.Errorf("получение привычек к напоминанию: %w", err)
	}
	return rows, nil
}

// MarkDone идемпотентна по паре (привычка, дата)
func (s *HabitService) MarkDone(ctx context.Context, userID, habitID int64, day time.Time) error {
	if err := s.repo.RecordCompletion(ctx, userID, habitID, day); err != nil {
		return fmt.Errorf("отметка выполнения: %w", err)
	}
	return nil
}
