package bot

import (
	"context"
	"errors"
	"time"

	"habitTracker/internal/logger"
	"habitTracker/internal/telegram"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const retryInterval = 5 * time.Second

// UpdateClient - транспорт, которым пользуется цикл опроса
type UpdateClient interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, markup any) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string) error
}

// Poller - внешний цикл: long poll getUpdates, сетевые сбои ретраятся
// с постоянной паузой бесконечно, останов - только по ctx или по
// неустранимой ошибке API (негодный токен)
type Poller struct {
	client      UpdateClient
	router      *Router
	pollTimeout int
}

func NewPoller(client UpdateClient, router *Router, pollTimeout int) *Poller {
	if pollTimeout <= 0 {
		pollTimeout = 30
	}
	return &Poller{
		client:      client,
		router:      router,
		pollTimeout: pollTimeout,
	}
}

func (p *Poller) Run(ctx context.Context) error {
	logger.Info("Bot: Запускаю polling...")

	policy := backoff.WithContext(backoff.NewConstantBackOff(retryInterval), ctx)
	var offset int64

	for {
		select {
		case <-ctx.Done():
			logger.Info("Bot: Остановка polling")
			return nil
		default:
		}

		updates, err := p.client.GetUpdates(ctx, offset, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("Bot: Остановка polling")
				return nil
			}

			var apiErr *telegram.APIError
			if errors.As(err, &apiErr) && apiErr.Code == 401 {
				logger.Error("Bot: Токен отвергнут, останавливаюсь", err)
				return err
			}

			logger.Warn("Bot: Сетевая ошибка, повторная попытка",
				zap.Duration("retry_in", retryInterval),
				zap.Error(err))

			next := policy.NextBackOff()
			if next == backoff.Stop {
				return nil
			}
			select {
			case <-time.After(next):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		policy.Reset()

		for _, u := range updates {
			offset = u.UpdateID + 1
			p.handleUpdate(ctx, u)
		}
	}
}

// ошибка обработки одного апдейта логируется и не роняет цикл
func (p *Poller) handleUpdate(ctx context.Context, u telegram.Update) {
	switch {
	case u.Message != nil && u.Message.From != nil:
		reply, err := p.router.HandleMessage(ctx, u.Message.From.ID, u.Message.Text)
		if err != nil {
			logger.Error("Bot: Ошибка обработки сообщения", err,
				zap.Int64("user_id", u.Message.From.ID))
			return
		}
		if reply.Text == "" {
			return
		}
		if err := p.client.SendMessage(ctx, u.Message.Chat.ID, reply.Text, reply.Markup); err != nil {
			logger.Warn("Bot: Не удалось отправить ответ",
				zap.Int64("chat_id", u.Message.Chat.ID),
				zap.Error(err))
		}

	case u.CallbackQuery != nil:
		cb := u.CallbackQuery
		reply, err := p.router.HandleCallback(ctx, cb.From.ID, cb.Data)
		if err != nil {
			logger.Error("Bot: Ошибка обработки callback", err,
				zap.Int64("user_id", cb.From.ID))
			return
		}

		if err := p.client.AnswerCallbackQuery(ctx, cb.ID, reply.Answer, reply.Alert); err != nil {
			logger.Warn("Bot: Не удалось ответить на callback", zap.Error(err))
		}
		if reply.EditText != "" && cb.Message != nil {
			if err := p.client.EditMessageText(ctx, cb.Message.Chat.ID, cb.Message.MessageID, reply.EditText); err != nil {
				logger.Warn("Bot: Не удалось изменить сообщение", zap.Error(err))
			}
		}
	}
}
