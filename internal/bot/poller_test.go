package bot_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"habitTracker/internal/bot"
	"habitTracker/internal/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	ChatID int64
	Text   string
}

type callbackAnswer struct {
	CallbackID string
	Text       string
	Alert      bool
}

// fakeClient отдаёт заранее заданные пачки апдейтов и по исчерпании
// отменяет контекст, останавливая цикл опроса
type fakeClient struct {
	mtx     sync.Mutex
	batches [][]telegram.Update
	cancel  context.CancelFunc

	offsets []int64
	sent    []sentMessage
	answers []callbackAnswer
	edits   []sentMessage
}

func (f *fakeClient) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.offsets = append(f.offsets, offset)
	if len(f.batches) == 0 {
		f.cancel()
		return nil, ctx.Err()
	}

	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func (f *fakeClient) SendMessage(ctx context.Context, chatID int64, text string, markup any) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text})
	return nil
}

func (f *fakeClient) AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.answers = append(f.answers, callbackAnswer{CallbackID: callbackID, Text: text, Alert: showAlert})
	return nil
}

func (f *fakeClient) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.edits = append(f.edits, sentMessage{ChatID: chatID, Text: text})
	return nil
}

// TestPoller_HandlesMessages тестирует доставку ответов и сдвиг offset
func TestPoller_HandlesMessages(t *testing.T) {
	r, _ := newTestRouter(t, today())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &fakeClient{
		cancel: cancel,
		batches: [][]telegram.Update{
			{
				{UpdateID: 10, Message: &telegram.Message{
					MessageID: 1,
					From:      &telegram.User{ID: 42},
					Chat:      telegram.Chat{ID: 42},
					Text:      "/start",
				}},
				{UpdateID: 11, Message: &telegram.Message{
					MessageID: 2,
					From:      &telegram.User{ID: 43},
					Chat:      telegram.Chat{ID: 43},
					Text:      "/listhabits",
				}},
			},
		},
	}

	p := bot.NewPoller(client, r, 1)
	require.NoError(t, p.Run(ctx))

	require.Len(t, client.sent, 2)
	assert.Equal(t, int64(42), client.sent[0].ChatID)
	assert.Contains(t, client.sent[0].Text, "Трекер привычек")
	assert.Equal(t, int64(43), client.sent[1].ChatID)

	// offset сдвигается на последний update_id + 1
	require.GreaterOrEqual(t, len(client.offsets), 2)
	assert.Equal(t, int64(0), client.offsets[0])
	assert.Equal(t, int64(12), client.offsets[1])
}

// TestPoller_HandlesCallback тестирует ответ на callback и правку сообщения
func TestPoller_HandlesCallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, habits := newTestRouter(t, today())
	habitID, err := habits.CreateHabit(ctx, 42, "Вода", "07:00")
	require.NoError(t, err)

	client := &fakeClient{
		cancel: cancel,
		batches: [][]telegram.Update{
			{
				{UpdateID: 20, CallbackQuery: &telegram.CallbackQuery{
					ID:      "cb1",
					From:    telegram.User{ID: 42},
					Data:    "done:" + strconv.FormatInt(habitID, 10),
					Message: &telegram.Message{MessageID: 7, Chat: telegram.Chat{ID: 42}},
				}},
			},
		},
	}

	p := bot.NewPoller(client, r, 1)
	require.NoError(t, p.Run(ctx))

	require.Len(t, client.answers, 1)
	assert.Equal(t, "cb1", client.answers[0].CallbackID)
	assert.Equal(t, "Выполнение сохранено.", client.answers[0].Text)
	assert.False(t, client.answers[0].Alert)

	require.Len(t, client.edits, 1)
	assert.Equal(t, int64(42), client.edits[0].ChatID)

	dates, err := habits.ListActiveHabits(ctx, 42)
	require.NoError(t, err)
	require.Len(t, dates, 1)
}

// TestPoller_UnauthorizedStops тестирует останов по коду 401
func TestPoller_UnauthorizedStops(t *testing.T) {
	r, _ := newTestRouter(t, today())

	client := &unauthorizedClient{}
	p := bot.NewPoller(client, r, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := p.Run(ctx)
	require.Error(t, err)

	var apiErr *telegram.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Code)
}

type unauthorizedClient struct{}

func (c *unauthorizedClient) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error) {
	return nil, &telegram.APIError{Code: 401, Description: "Unauthorized"}
}

func (c *unauthorizedClient) SendMessage(ctx context.Context, chatID int64, text string, markup any) error {
	return nil
}

func (c *unauthorizedClient) AnswerCallbackQuery(ctx context.Context, callbackID, text string, showAlert bool) error {
	return nil
}

func (c *unauthorizedClient) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	return nil
}
