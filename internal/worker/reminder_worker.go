package worker

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	"habitTracker/internal/logger"
	"habitTracker/internal/models/habit"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

type DueLister interface {
	ListHabitsDueAt(ctx context.Context, at string) ([]habit.DueHabit, error)
}

// ReminderWorker раз в минуту выбирает активные привычки, чьё время
// напоминания совпало с текущей минутой, и рассылает уведомления.
// Проверка по уровню, без памяти об "уже отправлено": пропущенная минута
// теряет напоминание этого дня, догона нет.
type ReminderWorker struct {
	habits      DueLister
	notifier    Notifier
	interval    time.Duration
	sendTimeout time.Duration
}

func NewReminderWorker(habits DueLister, notifier Notifier, interval, sendTimeout *time.Duration) *ReminderWorker {
	intervalToSet := time.Minute
	if interval != nil {
		intervalToSet = *interval
	}

	sendTimeoutToSet := 10 * time.Second
	if sendTimeout != nil {
		sendTimeoutToSet = *sendTimeout
	}

	return &ReminderWorker{
		habits:      habits,
		notifier:    notifier,
		interval:    intervalToSet,
		sendTimeout: sendTimeoutToSet,
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	logger.Info("Worker: Фоновая рассылка напоминаний запущена")

	// минута запуска проверяется сразу, первый тик тикера придёт только
	// через интервал
	w.Tick(ctx, time.Now())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Tick(ctx, time.Now())
		case <-ctx.Done():
			// новые тики не начинаются, текущий уже дождался всех отправок
			logger.Info("Worker: Фоновая рассылка останавливается")
			return
		}
	}
}

// Tick - один проход: минута усечением, точное совпадение "HH:MM".
// Отправки независимы и параллельны, отказ одной не задерживает и не
// отменяет остальные; тик завершается, когда все отправки дождались.
func (w *ReminderWorker) Tick(ctx context.Context, now time.Time) {
	start := time.Now()
	at := now.Format(habit.ReminderLayout)

	due, err := w.habits.ListHabitsDueAt(ctx, at)
	if err != nil {
		logger.Warn("Worker: Ошибка выборки привычек", zap.String("at", at), zap.Error(err))
		return
	}
	if len(due) == 0 {
		return
	}

	tickID := uuid.New().String()
	logger.Info("Worker: Рассылка напоминаний",
		zap.String("tick_id", tickID),
		zap.String("at", at),
		zap.Int("due", len(due)))

	var wg sync.WaitGroup
	for _, d := range due {
		wg.Add(1)
		go func(d habit.DueHabit) {
			defer wg.Done()

			// отмена воркера не обрывает уже начатый тик, но каждая
			// отправка ограничена собственным таймаутом
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.sendTimeout)
			defer cancel()

			text := fmt.Sprintf(
				"Напоминание по привычке: <b>%s</b>.\nНе забудьте выполнить её сегодня.",
				html.EscapeString(d.Name),
			)
			if err := w.notifier.Notify(sendCtx, d.UserID, text); err != nil {
				logger.Warn("Worker: Не удалось отправить напоминание",
					zap.String("tick_id", tickID),
					zap.Int64("user_id", d.UserID),
					zap.Error(err))
			}
		}(d)
	}
	wg.Wait()

	duration := time.Since(start)
	logger.Info("Worker: Завершение рассылки",
		zap.String("tick_id", tickID),
		zap.Duration("ms", duration),
		zap.Int("sent_to", len(due)))

	if duration > w.interval {
		logger.Warn("Worker: Тик превысил интервал, минута могла быть пропущена",
			zap.String("tick_id", tickID),
			zap.Duration("ms", duration))
	}
}
