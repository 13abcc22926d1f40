package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akavalov/fairwatch/internal/domain"
)

// fakeBotAPI records sendMessage calls and rejects MarkdownV2 payloads when
// rejectMarkdown is set, mimicking a parse-entities failure.
type fakeBotAPI struct {
	mu             sync.Mutex
	rejectMarkdown bool
	rejectAll      bool
	calls          []sentMessage
}

type sentMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
	ThreadID  int64  `json:"message_thread_id"`
}

func (f *fakeBotAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg sentMessage
		_ = json.Unmarshal(body, &msg)

		f.mu.Lock()
		f.calls = append(f.calls, msg)
		reject := f.rejectAll || (f.rejectMarkdown && msg.ParseMode == "MarkdownV2")
		f.mu.Unlock()

		if reject {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: can't parse entities"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}
}

func (f *fakeBotAPI) sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.calls))
	copy(out, f.calls)
	return out
}

func newTestSender(t *testing.T, api *fakeBotAPI, targets []ChatTarget) *TelegramSender {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	client := &TelegramClient{
		token:   "test-token",
		baseURL: srv.URL,
		client:  srv.Client(),
	}
	return NewTelegramSender(client, targets, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testEvent() domain.AlertEvent {
	return domain.AlertEvent{
		Venue:      "GATE",
		Instrument: "ABC_USDT",
		Direction:  domain.DirectionShort,
		SpreadPct:  6.1,
		LastPrice:  0.0412,
	}
}

func TestSendAlertMarkdownFirst(t *testing.T) {
	api := &fakeBotAPI{}
	sender := newTestSender(t, api, []ChatTarget{{ChatID: "-100123", ThreadID: 7}})

	require.NoError(t, sender.SendAlert(context.Background(), testEvent()))

	calls := api.sent()
	require.Len(t, calls, 1)
	assert.Equal(t, "MarkdownV2", calls[0].ParseMode)
	assert.Equal(t, "-100123", calls[0].ChatID)
	assert.Equal(t, int64(7), calls[0].ThreadID)
}

func TestSendAlertFallsBackToPlain(t *testing.T) {
	api := &fakeBotAPI{rejectMarkdown: true}
	sender := newTestSender(t, api, []ChatTarget{{ChatID: "-100123"}})

	require.NoError(t, sender.SendAlert(context.Background(), testEvent()))

	calls := api.sent()
	require.Len(t, calls, 2)
	assert.Equal(t, "MarkdownV2", calls[0].ParseMode)
	assert.Equal(t, "", calls[1].ParseMode)
	assert.Contains(t, calls[1].Text, "SHORT ABC_USDT (GATE)")
}

func TestSendAlertFailsOnlyWhenAllTargetsReject(t *testing.T) {
	api := &fakeBotAPI{rejectAll: true}
	sender := newTestSender(t, api, []ChatTarget{{ChatID: "a"}, {ChatID: "b"}})

	err := sender.SendAlert(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no target accepted delivery")
	// markdown attempt plus plain retry, per target
	assert.Len(t, api.sent(), 4)
}

func TestSendAlertPartialDeliverySucceeds(t *testing.T) {
	api := &fakeBotAPI{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg sentMessage
		_ = json.Unmarshal(body, &msg)
		api.mu.Lock()
		api.calls = append(api.calls, msg)
		api.mu.Unlock()
		if msg.ChatID == "bad" {
			_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	client := &TelegramClient{token: "t", baseURL: srv.URL, client: srv.Client()}
	sender := NewTelegramSender(client, []ChatTarget{{ChatID: "bad"}, {ChatID: "good"}}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.NoError(t, sender.SendAlert(context.Background(), testEvent()))
}

func TestSendText(t *testing.T) {
	api := &fakeBotAPI{}
	sender := newTestSender(t, api, []ChatTarget{{ChatID: "-100123"}})

	require.NoError(t, sender.SendText(context.Background(), "monitoring started"))

	calls := api.sent()
	require.Len(t, calls, 1)
	assert.Equal(t, "monitoring started", calls[0].Text)
	assert.Equal(t, "", calls[0].ParseMode)
}
