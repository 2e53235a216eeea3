package dialog

import (
	"context"
	"errors"
	"strings"
	"sync"

	"habitTracker/internal/logger"
	"habitTracker/internal/models/habit"

	"go.uber.org/zap"
)

// двухшаговый диалог добавления привычки: название, затем время напоминания

type State int

const (
	StateAwaitingName State = iota
	StateAwaitingTime
)

type Event int

const (
	// EventEmptyName - пустое название, состояние не меняется
	EventEmptyName Event = iota
	// EventNameAccepted - название принято, ожидается время
	EventNameAccepted
	// EventBadTime - время не разобралось, состояние не меняется
	EventBadTime
	// EventCommitted - привычка создана, сессия завершена
	EventCommitted
)

type Result struct {
	Event        Event
	HabitName    string
	ReminderTime string
	HabitID      int64
}

var (
	ErrNoSession = errors.New("нет активного диалога")
	// ErrSessionCorrupted - сессия дошла до шага времени без названия;
	// сессия сбрасывается, ошибка восстановимая
	ErrSessionCorrupted = errors.New("сессия диалога потеряла название привычки")
)

type HabitCreator interface {
	CreateHabit(ctx context.Context, userID int64, name, reminderTime string) (int64, error)
}

// Controller владеет сессиями явно: map по id пользователя, вставка при
// старте, удаление при фиксации или сбросе. Одна сессия на пользователя -
// повторный старт заменяет прежнюю.
type Controller struct {
	mtx      sync.Mutex
	sessions map[int64]*session
	habits   HabitCreator
}

type session struct {
	state State
	name  string
}

func NewController(habits HabitCreator) *Controller {
	return &Controller{
		sessions: make(map[int64]*session),
		habits:   habits,
	}
}

func (c *Controller) Start(userID int64) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if _, ok := c.sessions[userID]; ok {
		logger.Info("Dialog: Перезапуск незавершённого диалога", zap.Int64("user_id", userID))
	}
	c.sessions[userID] = &session{state: StateAwaitingName}
}

func (c *Controller) Active(userID int64) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	_, ok := c.sessions[userID]
	return ok
}

func (c *Controller) Abort(userID int64) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	delete(c.sessions, userID)
}

// Input продвигает сессию пользователя на один шаг. Ошибки валидации
// не ошибки Go: они возвращаются событиями повторного запроса.
func (c *Controller) Input(ctx context.Context, userID int64, text string) (Result, error) {
	c.mtx.Lock()

	s, ok := c.sessions[userID]
	if !ok {
		c.mtx.Unlock()
		return Result{}, ErrNoSession
	}

	switch s.state {
	case StateAwaitingName:
		name := strings.TrimSpace(text)
		if name == "" {
			c.mtx.Unlock()
			return Result{Event: EventEmptyName}, nil
		}

		s.name = name
		s.state = StateAwaitingTime
		c.mtx.Unlock()
		return Result{Event: EventNameAccepted, HabitName: name}, nil

	default: // StateAwaitingTime
		normalized, err := habit.NormalizeReminderTime(text)
		if err != nil {
			c.mtx.Unlock()
			return Result{Event: EventBadTime}, nil
		}

		name := s.name
		// фиксация или сброс - сессия в любом случае завершена
		delete(c.sessions, userID)
		c.mtx.Unlock()

		if name == "" {
			logger.Warn("Dialog: Сессия без названия привычки", zap.Int64("user_id", userID))
			return Result{}, ErrSessionCorrupted
		}

		id, err := c.habits.CreateHabit(ctx, userID, name, normalized)
		if err != nil {
			return Result{}, err
		}

		return Result{
			Event:        EventCommitted,
			HabitName:    name,
			ReminderTime: normalized,
			HabitID:      id,
		}, nil
	}
}
