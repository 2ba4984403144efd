package alert

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTelegramNotifySendsMessage(t *testing.T) {
	var gotPath, gotText, gotChat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotText = r.FormValue("text")
		gotChat = r.FormValue("chat_id")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}))
	defer srv.Close()

	p, err := NewTelegram("123:abc", 42, srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)

	require.NoError(t, p.Notify(context.Background(), "New paid menu: harbor-diner"))
	require.Equal(t, "/bot123:abc/sendMessage", gotPath)
	require.Equal(t, "New paid menu: harbor-diner", gotText)
	require.Equal(t, "42", gotChat)
}

func TestTelegramNotifySurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	p, err := NewTelegram("123:abc", 42, srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)

	err = p.Notify(context.Background(), "hello")
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "chat not found"))
}

func TestNewTelegramRequiresCredentials(t *testing.T) {
	_, err := NewTelegram("", 42, "", nil)
	require.Error(t, err)
	_, err = NewTelegram("123:abc", 0, "", nil)
	require.Error(t, err)
}
