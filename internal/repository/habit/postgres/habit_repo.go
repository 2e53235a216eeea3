package postgres

import (
	"context"
	"fmt"
	"time"

	"habitTracker/internal/logger"
	"habitTracker/internal/models/habit"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Storage struct {
	pool *pgxpool.Pool
}

type PoolOptions struct {
	MaxConns    int32
	MinConns    int32
	IdleTimeout time.Duration
}

func New(ctx context.Context, connString string, opts *PoolOptions) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка разбора строки подключения", err)
		return nil, fmt.Errorf("разбор строки подключения: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if opts != nil {
		if opts.MaxConns > 0 {
			config.MaxConns = opts.MaxConns
		}
		if opts.MinConns > 0 {
			config.MinConns = opts.MinConns
		}
		if opts.IdleTimeout > 0 {
			config.MaxConnIdleTime = opts.IdleTimeout
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) CreateHabit(ctx context.Context, userID int64, name string, reminderTime *string) (int64, error) {
	start := time.Now()

	query := `INSERT INTO habits (user_id, name, reminder_time)
				VALUES ($1, $2, $3)
				RETURNING id`

	var id int64
	err := s.pool.QueryRow(ctx, query, userID, name, reminderTime).Scan(&id)
	if err != nil {
		logger.Error("Repository: Не удалось добавить привычку", err, zap.Duration("ms", time.Since(start)))
		return 0, fmt.Errorf("добавление привычки: %w", err)
	}

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return id, nil
}

// мягкое удаление: запись остаётся, история выполнений не трогается;
// нулевое число затронутых строк - легитимный no-op, а не ошибка
func (s *Storage) DeactivateHabit(ctx context.Context, userID, habitID int64) error {
	start := time.Now()

	query := `UPDATE habits
				SET is_active = FALSE
			WHERE id = $1 AND user_id = $2 AND is_active`

	tag, err := s.pool.Exec(ctx, query, habitID, userID)
	if err != nil {
		logger.Error("Repository: Не удалось деактивировать привычку", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("деактивация привычки: %w", err)
	}

	if tag.RowsAffected() == 0 {
		logger.Info("Repository: Деактивация без эффекта",
			zap.Int64("habit_id", habitID),
			zap.Int64("user_id", userID))
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) ListActiveHabits(ctx context.Context, userID int64) ([]habit.HabitRow, error) {
	start := time.Now()

	query := `SELECT id, name, reminder_time
				FROM habits
				WHERE user_id = $1 AND is_active
				ORDER BY id`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		logger.Error("Repository: Не удалось получить привычки", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение привычек: %w", err)
	}
	defer rows.Close()

	res := []habit.HabitRow{}
	for rows.Next() {
		row := habit.HabitRow{}
		if err := rows.Scan(&row.ID, &row.Name, &row.ReminderTime); err != nil {
			logger.Warn("Repository: Ошибка сканирования привычки", zap.Error(err))
			continue
		}
		res = append(res, row)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return res, nil
}

// выборка для рассылки: точное сравнение нормализованной строки "HH:MM"
func (s *Storage) ListHabitsDueAt(ctx context.Context, at string) ([]habit.DueHabit, error) {
	start := time.Now()

	query := `SELECT user_id, name
				FROM habits
				WHERE is_active AND reminder_time = $1`

	rows, err := s.pool.Query(ctx, query, at)
	if err != nil {
		logger.Error("Repository: Не удалось получить привычки к напоминанию", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение привычек к напоминанию: %w", err)
	}
	defer rows.Close()

	res := []habit.DueHabit{}
	for rows.Next() {
		row := habit.DueHabit{}
		if err := rows.Scan(&row.UserID, &row.Name); err != nil {
			logger.Warn("Repository: Ошибка сканирования привычки", zap.Error(err))
			continue
		}
		res = append(res, row)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return res, nil
}

// атомарная вставка-если-нет: уникальность (habit_id, done_date) держит БД,
// принадлежность и активность проверяются тем же запросом без чтения-перед-записью
func (s *Storage) RecordCompletion(ctx context.Context, userID, habitID int64, day time.Time) error {
	start := time.Now()

	query := `INSERT INTO completions (habit_id, done_date)
				SELECT h.id, $3::date
				FROM habits h
				WHERE h.id = $1 AND h.user_id = $2 AND h.is_active
				ON CONFLICT (habit_id, done_date) DO NOTHING`

	// дата передаётся строкой "YYYY-MM-DD": timestamptz с локальной полуночью
	// при приведении к date в зоне сессии может сдвинуться на день
	_, err := s.pool.Exec(ctx, query, habitID, userID, habit.DateOnly(day).Format(habit.DateLayout))
	if err != nil {
		logger.Error("Repository: Не удалось записать выполнение", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("запись выполнения: %w", err)
	}

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) CompletionDates(ctx context.Context, habitID int64) ([]time.Time, error) {
	start := time.Now()

	query := `SELECT done_date
				FROM completions
				WHERE habit_id = $1
				ORDER BY done_date DESC`

	rows, err := s.pool.Query(ctx, query, habitID)
	if err != nil {
		logger.Error("Repository: Не удалось получить даты выполнений", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение дат выполнений: %w", err)
	}
	defer rows.Close()

	dates := []time.Time{}
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			logger.Warn("Repository: Ошибка сканирования даты", zap.Error(err))
			continue
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return dates, nil
}

func (s *Storage) HabitTotals(ctx context.Context, userID int64) ([]habit.TotalRow, error) {
	start := time.Now()

	query := `SELECT h.id, h.name, COUNT(c.id)
				FROM habits h
				LEFT JOIN completions c ON c.habit_id = h.id
				WHERE h.user_id = $1 AND h.is_active
				GROUP BY h.id, h.name
				ORDER BY h.id`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		logger.Error("Repository: Не удалось получить сводку выполнений", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение сводки выполнений: %w", err)
	}
	defer rows.Close()

	res := []habit.TotalRow{}
	for rows.Next() {
		row := habit.TotalRow{}
		var total int64
		if err := rows.Scan(&row.HabitID, &row.Name, &total); err != nil {
			logger.Warn("Repository: Ошибка сканирования сводки", zap.Error(err))
			continue
		}
		row.Total = int(total)
		res = append(res, row)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return res, nil
}

func (s *Storage) RecentCounts(ctx context.Context, userID int64, since time.Time) (map[int64]int, error) {
	start := time.Now()

	query := `SELECT h.id, COUNT(c.id)
				FROM habits h
				LEFT JOIN completions c
					ON c.habit_id = h.id AND c.done_date >= $2::date
				WHERE h.user_id = $1 AND h.is_active
				GROUP BY h.id`

	rows, err := s.pool.Query(ctx, query, userID, habit.DateOnly(since).Format(habit.DateLayout))
	if err != nil {
		logger.Error("Repository: Не удалось получить счётчики за окно", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение счётчиков за окно: %w", err)
	}
	defer rows.Close()

	res := make(map[int64]int)
	for rows.Next() {
		var id, count int64
		if err := rows.Scan(&id, &count); err != nil {
			logger.Warn("Repository: Ошибка сканирования счётчика", zap.Error(err))
			continue
		}
		res[id] = int(count)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return res, nil
}
