package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"habitTracker/internal/logger"
	"habitTracker/internal/models/habit"
)

type HabitStorage struct {
	mtx    *sync.RWMutex
	nextID int64
	habits map[int64]*habit.Habit
	ids    []int64

	// даты выполнений по привычке и множество пар (привычка, дата)
	// для атомарной вставки-если-нет
	completions map[int64][]time.Time
	seen        map[string]struct{}
}

func NewHabitStorage() *HabitStorage {
	return &HabitStorage{
		mtx:         &sync.RWMutex{},
		habits:      make(map[int64]*habit.Habit),
		ids:         []int64{},
		completions: make(map[int64][]time.Time),
		seen:        make(map[string]struct{}),
	}
}

func (s *HabitStorage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Хранилище в памяти доступно")
	return nil
}

func (s *HabitStorage) CreateHabit(ctx context.Context, userID int64, name string, reminderTime *string) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.nextID++
	h := &habit.Habit{
		ID:           s.nextID,
		UserID:       userID,
		Name:         name,
		IsActive:     true,
		ReminderTime: reminderTime,
		CreatedAt:    time.Now(),
	}

	s.habits[h.ID] = h
	s.ids = append(s.ids, h.ID)
	return h.ID, nil
}

// деактивация чужой или уже неактивной привычки - не ошибка
func (s *HabitStorage) DeactivateHabit(ctx context.Context, userID, habitID int64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	h, ok := s.habits[habitID]
	if !ok || h.UserID != userID || !h.IsActive {
		return nil
	}

	h.IsActive = false
	return nil
}

func (s *HabitStorage) ListActiveHabits(ctx context.Context, userID int64) ([]habit.HabitRow, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []habit.HabitRow{}
	for _, id := range s.ids {
		h := s.habits[id]
		if h.UserID != userID || !h.IsActive {
			continue
		}
		res = append(res, habit.HabitRow{ID: h.ID, Name: h.Name, ReminderTime: h.ReminderTime})
	}

	return res, nil
}

// точное совпадение строки "HH:MM", привычки без напоминания не попадают
func (s *HabitStorage) ListHabitsDueAt(ctx context.Context, at string) ([]habit.DueHabit, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []habit.DueHabit{}
	for _, id := range s.ids {
		h := s.habits[id]
		if !h.IsActive || h.ReminderTime == nil || *h.ReminderTime != at {
			continue
		}
		res = append(res, habit.DueHabit{UserID: h.UserID, Name: h.Name})
	}

	return res, nil
}

// RecordCompletion идемпотентна: повтор той же пары (привычка, дата) молча
// поглощается, чужая или неактивная привычка - тоже no-op
func (s *HabitStorage) RecordCompletion(ctx context.Context, userID, habitID int64, day time.Time) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	h, ok := s.habits[habitID]
	if !ok || h.UserID != userID || !h.IsActive {
		return nil
	}

	day = habit.DateOnly(day)
	key := fmt.Sprintf("%d|%s", habitID, day.Format(habit.DateLayout))
	if _, dup := s.seen[key]; dup {
		return nil
	}

	s.seen[key] = struct{}{}
	s.completions[habitID] = append(s.completions[habitID], day)
	return nil
}

func (s *HabitStorage) CompletionDates(ctx context.Context, habitID int64) ([]time.Time, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	dates := make([]time.Time, len(s.completions[habitID]))
	copy(dates, s.completions[habitID])

	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	return dates, nil
}

func (s *HabitStorage) HabitTotals(ctx context.Context, userID int64) ([]habit.TotalRow, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []habit.TotalRow{}
	for _, id := range s.ids {
		h := s.habits[id]
		if h.UserID != userID || !h.IsActive {
			continue
		}
		res = append(res, habit.TotalRow{HabitID: h.ID, Name: h.Name, Total: len(s.completions[h.ID])})
	}

	return res, nil
}

func (s *HabitStorage) RecentCounts(ctx context.Context, userID int64, since time.Time) (map[int64]int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	since = habit.DateOnly(since)
	res := make(map[int64]int)

	for _, id := range s.ids {
		h := s.habits[id]
		if h.UserID != userID || !h.IsActive {
			continue
		}

		count := 0
		for _, d := range s.completions[h.ID] {
			if !d.Before(since) {
				count++
			}
		}
		res[h.ID] = count
	}

	return res, nil
}
