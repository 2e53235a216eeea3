package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"habitTracker/internal/dialog"
	"habitTracker/internal/logger"
	"habitTracker/internal/service"
	"habitTracker/internal/telegram"

	"go.uber.org/zap"
)

// команды, кнопки основной клавиатуры и префиксы callback-данных
const (
	cmdStart       = "/start"
	cmdAddHabit    = "/addhabit"
	cmdListHabits  = "/listhabits"
	cmdDone        = "/done"
	cmdDeleteHabit = "/deletehabit"
	cmdStats       = "/stats"

	btnAddHabit    = "➕ Добавить привычку"
	btnListHabits  = "📋 Мои привычки"
	btnDone        = "✅ Отметить выполнение"
	btnStats       = "📊 Статистика"
	btnDeleteHabit = "🗑 Удалить привычку"

	callbackDonePrefix   = "done:"
	callbackDeletePrefix = "del:"
)

// Reply - ответ на входящее сообщение: текст и опциональная клавиатура
type Reply struct {
	Text   string
	Markup any
}

// CallbackReply - ответ на нажатие inline-кнопки
type CallbackReply struct {
	Answer   string
	Alert    bool
	EditText string
}

type HandlerFunc func(ctx context.Context, userID int64) (Reply, error)

// Router - явное соответствие команда -> обработчик; транспорт его
// не знает, ядро тестируется без транспорта
type Router struct {
	habits   *service.HabitService
	stats    *service.StatsService
	dialogs  *dialog.Controller
	now      func() time.Time
	commands map[string]HandlerFunc
}

func NewRouter(habits *service.HabitService, stats *service.StatsService, dialogs *dialog.Controller, now func() time.Time) *Router {
	r := &Router{
		habits:  habits,
		stats:   stats,
		dialogs: dialogs,
		now:     now,
	}

	r.commands = map[string]HandlerFunc{
		cmdStart:       r.handleStart,
		cmdAddHabit:    r.handleAddHabit,
		cmdListHabits:  r.handleListHabits,
		cmdDone:        r.handleDone,
		cmdDeleteHabit: r.handleDeleteHabit,
		cmdStats:       r.handleStats,

		// кнопки клавиатуры - псевдонимы команд
		btnAddHabit:    r.handleAddHabit,
		btnListHabits:  r.handleListHabits,
		btnDone:        r.handleDone,
		btnDeleteHabit: r.handleDeleteHabit,
		btnStats:       r.handleStats,
	}

	return r
}

func mainKeyboard() telegram.ReplyKeyboardMarkup {
	return telegram.ReplyKeyboardMarkup{
		Keyboard: [][]telegram.KeyboardButton{
			{{Text: btnAddHabit}, {Text: btnListHabits}},
			{{Text: btnDone}, {Text: btnStats}},
			{{Text: btnDeleteHabit}},
		},
		ResizeKeyboard: true,
	}
}

// HandleMessage маршрутизирует текст: команды важнее шага диалога,
// шаг диалога важнее фолбэка
func (r *Router) HandleMessage(ctx context.Context, userID int64, text string) (Reply, error) {
	text = strings.TrimSpace(text)

	if handler, ok := r.commands[text]; ok {
		return handler(ctx, userID)
	}

	if r.dialogs.Active(userID) {
		return r.handleDialogInput(ctx, userID, text)
	}

	logger.UpdateInfo(userID, "message", "Bot: Нераспознанное сообщение")
	return Reply{
		Text: "Команда не распознана.\n" +
			"Используйте кнопки внизу экрана или команду <code>/start</code>, " +
			"чтобы увидеть доступные действия.",
		Markup: mainKeyboard(),
	}, nil
}

func (r *Router) handleStart(ctx context.Context, userID int64) (Reply, error) {
	logger.UpdateInfo(userID, "command", "Bot: /start")

	text := "<b>Трекер привычек</b>\n\n" +
		"Бот помогает фиксировать привычки, получать напоминания " +
		"и отслеживать прогресс.\n\n" +
		"<b>Основные действия:</b>\n" +
		"• добавить привычку и время напоминания\n" +
		"• отмечать выполнение за сегодня\n" +
		"• просматривать список и статистику\n\n" +
		"Выберите действие с помощью кнопок ниже."
	return Reply{Text: text, Markup: mainKeyboard()}, nil
}

func (r *Router) handleAddHabit(ctx context.Context, userID int64) (Reply, error) {
	logger.UpdateInfo(userID, "command", "Bot: /addhabit")

	r.dialogs.Start(userID)
	return Reply{
		Text: "<b>Добавление привычки</b>\n\n" +
			"Какую привычку вы хотите добавить?\n" +
			"Напишите её название одним сообщением.",
	}, nil
}

func (r *Router) handleDialogInput(ctx context.Context, userID int64, text string) (Reply, error) {
	res, err := r.dialogs.Input(ctx, userID, text)
	if err != nil {
		if errors.Is(err, dialog.ErrSessionCorrupted) {
			return Reply{Text: "Произошла ошибка при сохранении привычки. Попробуйте ещё раз."}, nil
		}
		return Reply{}, err
	}

	switch res.Event {
	case dialog.EventEmptyName:
		return Reply{Text: "Название не может быть пустым. Введите название привычки ещё раз."}, nil
	case dialog.EventNameAccepted:
		return Reply{
			Text: "Укажите время напоминания для этой привычки.\n" +
				"Формат: <code>ЧЧ:ММ</code>, например <code>09:30</code>.",
		}, nil
	case dialog.EventBadTime:
		return Reply{
			Text: "Некорректный формат времени.\n" +
				"Пожалуйста, введите время в формате <code>ЧЧ:ММ</code>, например <code>09:30</code>.",
		}, nil
	case dialog.EventCommitted:
		return Reply{
			Text: fmt.Sprintf(
				"Привычка <b>%s</b> добавлена.\nНапоминание будет приходить каждый день в <code>%s</code>.",
				html.EscapeString(res.HabitName), res.ReminderTime),
			Markup: mainKeyboard(),
		}, nil
	}

	return Reply{}, fmt.Errorf("неизвестное событие диалога: %d", res.Event)
}

func (r *Router) handleListHabits(ctx context.Context, userID int64) (Reply, error) {
	logger.UpdateInfo(userID, "command", "Bot: /listhabits")

	habits, err := r.habits.ListActiveHabits(ctx, userID)
	if err != nil {
		return Reply{}, err
	}

	if len(habits) == 0 {
		return Reply{
			Text: "<b>Ваши привычки</b>\n\n" +
				"Сейчас у вас нет активных привычек.\n" +
				"Нажмите «➕ Добавить привычку», чтобы создать первую.",
			Markup: mainKeyboard(),
		}, nil
	}

	lines := []string{"<b>Ваши активные привычки:</b>\n"}
	for idx, h := range habits {
		safeName := html.EscapeString(h.Name)
		if h.ReminderTime != nil {
			lines = append(lines, fmt.Sprintf("%d. %s — напоминание в <code>%s</code>", idx+1, safeName, *h.ReminderTime))
		} else {
			lines = append(lines, fmt.Sprintf("%d. %s — напоминание не задано", idx+1, safeName))
		}
	}
	lines = append(lines, "\nДля удаления используйте кнопку «🗑 Удалить привычку».")

	return Reply{Text: strings.Join(lines, "\n"), Markup: mainKeyboard()}, nil
}

// inline-клавиатура по активным привычкам с заданным префиксом callback-данных
func (r *Router) habitKeyboard(ctx context.Context, userID int64, prefix, labelPrefix string) (telegram.InlineKeyboardMarkup, int, error) {
	habits, err := r.habits.ListActiveHabits(ctx, userID)
	if err != nil {
		return telegram.InlineKeyboardMarkup{}, 0, err
	}

	kb := telegram.InlineKeyboardMarkup{}
	for _, h := range habits {
		kb.InlineKeyboard = append(kb.InlineKeyboard, []telegram.InlineKeyboardButton{{
			Text:         labelPrefix + html.EscapeString(h.Name),
			CallbackData: fmt.Sprintf("%s%d", prefix, h.ID),
		}})
	}
	return kb, len(habits), nil
}

func (r *Router) handleDone(ctx context.Context, userID int64) (Reply, error) {
	logger.UpdateInfo(userID, "command", "Bot: /done")

	kb, count, err := r.habitKeyboard(ctx, userID, callbackDonePrefix, "")
	if err != nil {
		return Reply{}, err
	}

	if count == 0 {
		return Reply{
			Text: "У вас нет активных привычек для отметки.\n" +
				"Сначала добавьте привычку через «➕ Добавить привычку».",
			Markup: mainKeyboard(),
		}, nil
	}

	return Reply{
		Text:   "Выберите привычку, которую вы <b>выполнили сегодня</b>:",
		Markup: kb,
	}, nil
}

func (r *Router) handleDeleteHabit(ctx context.Context, userID int64) (Reply, error) {
	logger.UpdateInfo(userID, "command", "Bot: /deletehabit")

	kb, count, err := r.habitKeyboard(ctx, userID, callbackDeletePrefix, "Удалить: ")
	if err != nil {
		return Reply{}, err
	}

	if count == 0 {
		return Reply{
			Text: "У вас нет активных привычек.\n" +
				"Добавьте привычку через «➕ Добавить привычку».",
			Markup: mainKeyboard(),
		}, nil
	}

	return Reply{
		Text: "<b>Удаление привычек</b>\n" +
			"Выберите привычку, которую нужно убрать из списка активных:",
		Markup: kb,
	}, nil
}

func (r *Router) handleStats(ctx context.Context, userID int64) (Reply, error) {
	logger.UpdateInfo(userID, "command", "Bot: /stats")

	rows, err := r.stats.Stats(ctx, userID, r.now(), service.DefaultWindowDays)
	if err != nil {
		return Reply{}, err
	}

	if len(rows) == 0 {
		return Reply{
			Text: "Статистика пока пуста.\n" +
				"Добавьте привычку и отметьте её выполнение, " +
				"чтобы здесь появились данные.",
			Markup: mainKeyboard(),
		}, nil
	}

	lines := []string{"<b>Статистика по привычкам:</b>\n"}
	for _, row := range rows {
		lines = append(lines, fmt.Sprintf(
			"<b>%s</b>\n"+
				"— всего выполнений: <code>%d</code>\n"+
				"— за последние %d дней: <code>%d</code>\n"+
				"— текущая серия: <code>%d</code> дн.\n",
			html.EscapeString(row.Name), row.Total, service.DefaultWindowDays, row.Recent, row.Streak))
	}

	return Reply{Text: strings.Join(lines, "\n"), Markup: mainKeyboard()}, nil
}

// HandleCallback обрабатывает нажатия inline-кнопок "done:<id>" и "del:<id>"
func (r *Router) HandleCallback(ctx context.Context, userID int64, data string) (CallbackReply, error) {
	logger.UpdateInfo(userID, "callback", "Bot: Callback", zap.String("data", data))

	switch {
	case strings.HasPrefix(data, callbackDonePrefix):
		habitID, err := strconv.ParseInt(strings.TrimPrefix(data, callbackDonePrefix), 10, 64)
		if err != nil {
			return CallbackReply{Answer: "Ошибка данных.", Alert: true}, nil
		}

		if err := r.habits.MarkDone(ctx, userID, habitID, r.now()); err != nil {
			return CallbackReply{}, err
		}
		return CallbackReply{
			Answer:   "Выполнение сохранено.",
			EditText: "Отметка выполнения сохранена.",
		}, nil

	case strings.HasPrefix(data, callbackDeletePrefix):
		habitID, err := strconv.ParseInt(strings.TrimPrefix(data, callbackDeletePrefix), 10, 64)
		if err != nil {
			return CallbackReply{Answer: "Ошибка данных.", Alert: true}, nil
		}

		if err := r.habits.DeactivateHabit(ctx, userID, habitID); err != nil {
			return CallbackReply{}, err
		}
		return CallbackReply{
			Answer:   "Привычка удалена.",
			EditText: "Привычка удалена из списка активных.",
		}, nil
	}

	return CallbackReply{Answer: "Ошибка данных.", Alert: true}, nil
}
