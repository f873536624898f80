// Package notify sends claim evidence to the external audit channel. The
// channel is a Telegram group; compliance reviews claims from the messages
// posted here, which is why submission notifies before it commits.
package notify

//go:generate mockgen -source=telegram.go -destination=mocks/mocks.go -package=mocks Notifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// MediaItem is one photo in a grouped audit message.
type MediaItem struct {
	Filename string
	Content  []byte
}

// Notifier is the audit channel consumed by the submission coordinator.
// SendMediaGroup attaches the caption to exactly the first item; the rest
// carry none. Both calls report only success or failure.
type Notifier interface {
	SendText(ctx context.Context, chatID, text string) error
	SendMediaGroup(ctx context.Context, chatID string, items []MediaItem, caption string) error
}

// Telegram talks to the Telegram Bot API.
type Telegram struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

const defaultBaseURL = "https://api.telegram.org"

func NewTelegram(token string, logger *slog.Logger) *Telegram {
	return &Telegram{
		baseURL: defaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

// NewTelegramWithBaseURL exists for tests that stand in for the Bot API.
func NewTelegramWithBaseURL(baseURL, token string, logger *slog.Logger) *Telegram {
	t := NewTelegram(token, logger)
	t.baseURL = baseURL
	return t
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendText posts a plain text message to the chat.
func (t *Telegram) SendText(ctx context.Context, chatID, text string) error {
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return t.do(req, "sendMessage")
}

type mediaEntry struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}

// SendMediaGroup posts the items as a single grouped message. The caption is
// attached to the first item only; Telegram renders it under the group.
func (t *Telegram) SendMediaGroup(ctx context.Context, chatID string, items []MediaItem, caption string) error {
	if len(items) == 0 {
		return fmt.Errorf("media group requires at least one item")
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	if err := form.WriteField("chat_id", chatID); err != nil {
		return fmt.Errorf("write chat_id: %w", err)
	}

	media := make([]mediaEntry, 0, len(items))
	for i, item := range items {
		attachName := fmt.Sprintf("photo%d", i)
		part, err := form.CreateFormFile(attachName, item.Filename)
		if err != nil {
			return fmt.Errorf("attach %s: %w", attachName, err)
		}
		if _, err := part.Write(item.Content); err != nil {
			return fmt.Errorf("write %s: %w", attachName, err)
		}
		entry := mediaEntry{Type: "photo", Media: "attach://" + attachName}
		if i == 0 {
			entry.Caption = caption
		}
		media = append(media, entry)
	}

	encoded, err := json.Marshal(media)
	if err != nil {
		return fmt.Errorf("encode media array: %w", err)
	}
	if err := form.WriteField("media", string(encoded)); err != nil {
		return fmt.Errorf("write media field: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("close multipart form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMediaGroup", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return fmt.Errorf("build sendMediaGroup request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	return t.do(req, "sendMediaGroup")
}

func (t *Telegram) do(req *http.Request, method string) error {
	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || !parsed.OK {
		t.logger.Warn("telegram call failed",
			"method", method,
			"status", resp.StatusCode,
			"description", parsed.Description,
		)
		if parsed.Description != "" {
			return fmt.Errorf("%s rejected: %s", method, parsed.Description)
		}
		return fmt.Errorf("%s failed with status %d", method, resp.StatusCode)
	}
	return nil
}
