package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ChatTarget is one Telegram delivery destination. ThreadID is optional
// and addresses a forum topic inside the chat.
type ChatTarget struct {
	ChatID   string
	ThreadID int64
}

func (t ChatTarget) String() string {
	if t.ThreadID > 0 {
		return t.ChatID + ":" + strconv.FormatInt(t.ThreadID, 10)
	}
	return t.ChatID
}

// TelegramClient is a minimal Bot API client covering the methods the
// sender and the command router need.
type TelegramClient struct {
	token   string
	baseURL string
	client  *http.Client
}

// NewTelegramClient creates a client for the given bot token. httpClient
// may be nil; a default client with a 30-second timeout is used then. The
// timeout must exceed the getUpdates long-poll duration.
func NewTelegramClient(token string, httpClient *http.Client) *TelegramClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TelegramClient{
		token:   token,
		baseURL: "https://api.telegram.org/bot" + token,
		client:  httpClient,
	}
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Update is one getUpdates entry. Only message updates are consumed.
type Update struct {
	UpdateID int64            `json:"update_id"`
	Message  *IncomingMessage `json:"message"`
}

// IncomingMessage is an inbound chat message.
type IncomingMessage struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	ThreadID  int64  `json:"message_thread_id"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
}

// SendMessage posts text to target. parseMode may be empty for plain text.
func (t *TelegramClient) SendMessage(ctx context.Context, target ChatTarget, text, parseMode string) error {
	payload := map[string]any{
		"chat_id":                  target.ChatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}
	if target.ThreadID > 0 {
		payload["message_thread_id"] = target.ThreadID
	}

	var resp apiResponse
	if err := t.post(ctx, "/sendMessage", payload, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("telegram: sendMessage %s: %s", target, resp.Description)
	}
	return nil
}

// GetUpdates long-polls for updates after offset. timeout is the server
// hold duration; zero returns immediately.
func (t *TelegramClient) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	params := url.Values{
		"offset":          {strconv.FormatInt(offset, 10)},
		"timeout":         {strconv.Itoa(int(timeout / time.Second))},
		"allowed_updates": {`["message"]`},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/getUpdates?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("telegram: create request: %w", err)
	}

	httpResp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: getUpdates: %w", err)
	}
	defer httpResp.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("telegram: decode updates: %w", err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("telegram: getUpdates: %s", resp.Description)
	}

	var updates []Update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, fmt.Errorf("telegram: decode updates: %w", err)
	}
	return updates, nil
}

func (t *TelegramClient) post(ctx context.Context, method string, payload any, out *apiResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send request: %w", err)
	}
	defer resp.Body.Close()

	// The API reports failures in the JSON envelope; non-2xx responses
	// still carry a description worth surfacing.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("telegram: read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("telegram: unexpected status %d: %s", resp.StatusCode, string(data[:min(len(data), 256)]))
	}
	return nil
}
