package habit

import (
	"errors"
	"strings"
	"time"
)

// ReminderLayout и DateLayout - форматы обмена на всех границах:
// время напоминания всегда "HH:MM", даты без компонента времени.
const (
	ReminderLayout = "15:04"
	DateLayout     = "2006-01-02"
)

var ErrBadReminderTime = errors.New("некорректный формат времени, ожидается ЧЧ:ММ")

type Habit struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	ReminderTime *string   `json:"reminder_time,omitempty" db:"reminder_time"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Completion struct {
	ID       int64     `json:"id" db:"id"`
	HabitID  int64     `json:"habit_id" db:"habit_id"`
	DoneDate time.Time `json:"done_date" db:"done_date"`
}

// HabitRow - строка списка активных привычек пользователя
type HabitRow struct {
	ID           int64
	Name         string
	ReminderTime *string
}

// DueHabit - активная привычка, чьё время напоминания совпало с текущей минутой
type DueHabit struct {
	UserID int64
	Name   string
}

// TotalRow - привычка с общим числом выполнений, привычки без выполнений входят с нулём
type TotalRow struct {
	HabitID int64
	Name    string
	Total   int
}

// NormalizeReminderTime разбирает пользовательский ввод времени и приводит его
// к каноническому "HH:MM" с ведущими нулями. "9:30" принимается и становится
// "09:30", "25:99" отклоняется.
func NormalizeReminderTime(raw string) (string, error) {
	parsed, err := time.Parse(ReminderLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", ErrBadReminderTime
	}
	return parsed.Format(ReminderLayout), nil
}

// DateOnly отбрасывает компонент времени, сохраняя календарную дату
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
