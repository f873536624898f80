package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimflow/internal/platform/logger"
)

func TestSendText(t *testing.T) {
	var gotPath, gotChat, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotChat = r.PostFormValue("chat_id")
		gotText = r.PostFormValue("text")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	tg := NewTelegramWithBaseURL(srv.URL, "token123", logger.New())
	err := tg.SendText(context.Background(), "-100555", "claim recorded")
	require.NoError(t, err)

	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Equal(t, "-100555", gotChat)
	assert.Equal(t, "claim recorded", gotText)
}

func TestSendText_APIRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"description":"chat not found"}`)
	}))
	defer srv.Close()

	tg := NewTelegramWithBaseURL(srv.URL, "token123", logger.New())
	err := tg.SendText(context.Background(), "-1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestSendMediaGroup(t *testing.T) {
	var media []struct {
		Type    string `json:"type"`
		Media   string `json:"media"`
		Caption string `json:"caption"`
	}
	var fileNames []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		require.NoError(t, json.Unmarshal([]byte(r.PostFormValue("media")), &media))
		for name := range r.MultipartForm.File {
			fileNames = append(fileNames, name)
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	tg := NewTelegramWithBaseURL(srv.URL, "token123", logger.New())
	items := []MediaItem{
		{Filename: "receipt.jpg", Content: []byte("img-a")},
		{Filename: "prescription.jpg", Content: []byte("img-b")},
	}
	err := tg.SendMediaGroup(context.Background(), "-100555", items, "caption here")
	require.NoError(t, err)

	require.Len(t, media, 2)
	assert.Equal(t, "attach://photo0", media[0].Media)
	assert.Equal(t, "caption here", media[0].Caption, "caption belongs to the first item")
	assert.Empty(t, media[1].Caption, "later items carry no caption")
	assert.ElementsMatch(t, []string{"photo0", "photo1"}, fileNames)
}

func TestSendMediaGroup_RequiresItems(t *testing.T) {
	tg := NewTelegram("token123", logger.New())
	err := tg.SendMediaGroup(context.Background(), "-100555", nil, "caption")
	require.Error(t, err)
}
