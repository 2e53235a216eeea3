package telegram_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"habitTracker/internal/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClient_GetUpdates тестирует разбор успешного ответа getUpdates
func TestClient_GetUpdates(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"ok": true,
			"result": [
				{"update_id": 10, "message": {"message_id": 1, "text": "/start", "from": {"id": 42}, "chat": {"id": 42}}},
				{"update_id": 11, "callback_query": {"id": "cb1", "data": "done:3", "from": {"id": 42}}}
			]
		}`))
	}))
	defer srv.Close()

	client := telegram.NewClientWithBaseURL("test-token", srv.URL)

	updates, err := client.GetUpdates(context.Background(), 10, 30)
	require.NoError(t, err)

	assert.Equal(t, "/bottest-token/getUpdates", gotPath)
	assert.Equal(t, float64(10), gotBody["offset"])
	assert.Equal(t, float64(30), gotBody["timeout"])

	require.Len(t, updates, 2)
	assert.Equal(t, int64(10), updates[0].UpdateID)
	require.NotNil(t, updates[0].Message)
	assert.Equal(t, "/start", updates[0].Message.Text)
	assert.Equal(t, int64(42), updates[0].Message.Chat.ID)
	require.NotNil(t, updates[1].CallbackQuery)
	assert.Equal(t, "done:3", updates[1].CallbackQuery.Data)
}

// TestClient_SendMessage тестирует тело запроса sendMessage
func TestClient_SendMessage(t *testing.T) {
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok": true, "result": {}}`))
	}))
	defer srv.Close()

	client := telegram.NewClientWithBaseURL("test-token", srv.URL)

	markup := telegram.ReplyKeyboardMarkup{
		Keyboard:       [][]telegram.KeyboardButton{{{Text: "кнопка"}}},
		ResizeKeyboard: true,
	}
	err := client.SendMessage(context.Background(), 42, "<b>привет</b>", markup)
	require.NoError(t, err)

	assert.Equal(t, float64(42), gotBody["chat_id"])
	assert.Equal(t, "<b>привет</b>", gotBody["text"])
	assert.Equal(t, "HTML", gotBody["parse_mode"])
	assert.NotNil(t, gotBody["reply_markup"])
}

// TestClient_APIError тестирует превращение ok=false в APIError
func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok": false, "error_code": 401, "description": "Unauthorized"}`))
	}))
	defer srv.Close()

	client := telegram.NewClientWithBaseURL("bad-token", srv.URL)

	_, err := client.GetUpdates(context.Background(), 0, 0)
	require.Error(t, err)

	var apiErr *telegram.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 401, apiErr.Code)
	assert.Equal(t, "Unauthorized", apiErr.Description)
	assert.Contains(t, apiErr.Error(), "401")
}

// TestClient_Notify тестирует доставку напоминания без клавиатуры
func TestClient_Notify(t *testing.T) {
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok": true, "result": {}}`))
	}))
	defer srv.Close()

	client := telegram.NewClientWithBaseURL("test-token", srv.URL)

	require.NoError(t, client.Notify(context.Background(), 42, "напоминание"))
	assert.Equal(t, "напоминание", gotBody["text"])
	_, hasMarkup := gotBody["reply_markup"]
	assert.False(t, hasMarkup)
}

// TestClient_ContextCanceled тестирует прерывание запроса контекстом
func TestClient_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := telegram.NewClientWithBaseURL("test-token", srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetUpdates(ctx, 0, 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestClient_AnswerCallbackQuery тестирует тело запроса answerCallbackQuery
func TestClient_AnswerCallbackQuery(t *testing.T) {
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok": true, "result": true}`))
	}))
	defer srv.Close()

	client := telegram.NewClientWithBaseURL("test-token", srv.URL)

	require.NoError(t, client.AnswerCallbackQuery(context.Background(), "cb1", "Готово", true))
	assert.Equal(t, "cb1", gotBody["callback_query_id"])
	assert.Equal(t, "Готово", gotBody["text"])
	assert.Equal(t, true, gotBody["show_alert"])
}
