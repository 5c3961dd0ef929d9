package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type telegramCapture struct {
	path string
	req  sendMessageRequest
}

func newTelegramServer(t *testing.T, status int, reply string) (*httptest.Server, <-chan telegramCapture) {
	t.Helper()

	got := make(chan telegramCapture, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var c telegramCapture
		c.path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&c.req))
		got <- c

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestTelegramNotifier_SendInvoice(t *testing.T) {
	t.Parallel()

	srv, got := newTelegramServer(t, http.StatusOK, `{"ok":true,"result":{"message_id":7}}`)
	inv := testInvoice(150)

	n := NewTelegramNotifier("123:abc", "42", WithTelegramAPIURL(srv.URL+"/"))
	require.NoError(t, n.SendInvoice(context.Background(), inv))

	c := <-got
	assert.Equal(t, "/bot123:abc/sendMessage", c.path)
	assert.Equal(t, "42", c.req.ChatID)
	assert.Equal(t, FormatMessage(inv), c.req.Text)
	assert.True(t, c.req.DisableWebPagePreview)

	require.NotNil(t, c.req.ReplyMarkup)
	require.Len(t, c.req.ReplyMarkup.InlineKeyboard, 1)
	require.Len(t, c.req.ReplyMarkup.InlineKeyboard[0], 1)
	button := c.req.ReplyMarkup.InlineKeyboard[0][0]
	assert.Equal(t, "新增到 Cashew", button.Text)
	want, err := inv.CashewURL()
	require.NoError(t, err)
	assert.Equal(t, want, button.URL)
}

func TestTelegramNotifier_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		reply  string
		errMsg string
	}{
		{
			name:   "api error",
			status: http.StatusBadRequest,
			reply:  `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`,
			errMsg: "telegram returned 400: Bad Request: chat not found",
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			reply:  `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":17}}`,
			errMsg: "retry after 17s",
		},
		{
			name:   "non-json body",
			status: http.StatusBadGateway,
			reply:  `<html>bad gateway</html>`,
			errMsg: "telegram returned 502: <html>bad gateway</html>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, _ := newTelegramServer(t, tt.status, tt.reply)
			n := NewTelegramNotifier("123:abc", "42", WithTelegramAPIURL(srv.URL))

			err := n.SendInvoice(context.Background(), testInvoice(150))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestTelegramNotifier_NetworkErrorRedactsToken(t *testing.T) {
	t.Parallel()

	n := NewTelegramNotifier("999:secret-token", "42", WithTelegramAPIURL("http://127.0.0.1:1"))
	err := n.SendInvoice(context.Background(), testInvoice(150))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sending telegram sendMessage")
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestWithTelegramHTTPClient(t *testing.T) {
	t.Parallel()

	custom := &http.Client{}
	n := NewTelegramNotifier("t", "c", WithTelegramHTTPClient(custom))
	assert.Same(t, custom, n.client)
	assert.Equal(t, defaultTelegramAPI, n.apiURL)
}

func TestTelegramNotifier_ObservesDuration(t *testing.T) {
	t.Parallel()

	srv, _ := newTelegramServer(t, http.StatusOK, `{"ok":true}`)
	before := histogramCount("telegram")
	require.NoError(t, NewTelegramNotifier("t", "c", WithTelegramAPIURL(srv.URL)).
		SendInvoice(context.Background(), testInvoice(150)))
	assert.Greater(t, histogramCount("telegram"), before)
}
