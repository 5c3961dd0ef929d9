package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/donaldgifford/einvoice-tracker/internal/metrics"
	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

const (
	defaultTelegramAPI = "https://api.telegram.org"
	cashewButtonText   = "新增到 Cashew"
)

// TelegramNotifier implements Notifier via the Telegram Bot API.
type TelegramNotifier struct {
	apiURL string
	token  string
	chatID string
	client *http.Client
}

// TelegramOption configures a TelegramNotifier.
type TelegramOption func(*TelegramNotifier)

// WithTelegramAPIURL overrides the Bot API base URL.
func WithTelegramAPIURL(u string) TelegramOption {
	return func(n *TelegramNotifier) {
		n.apiURL = strings.TrimRight(u, "/")
	}
}

// WithTelegramHTTPClient sets a custom HTTP client.
func WithTelegramHTTPClient(c *http.Client) TelegramOption {
	return func(n *TelegramNotifier) {
		n.client = c
	}
}

// NewTelegramNotifier creates a notifier posting to chatID as the bot
// identified by token.
func NewTelegramNotifier(token, chatID string, opts ...TelegramOption) *TelegramNotifier {
	n := &TelegramNotifier{
		apiURL: defaultTelegramAPI,
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type inlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type sendMessageRequest struct {
	ChatID                string          `json:"chat_id"`
	Text                  string          `json:"text"`
	ReplyMarkup           *inlineKeyboard `json:"reply_markup,omitempty"`
	DisableWebPagePreview bool            `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// SendInvoice sends the invoice summary with an "add to Cashew" button.
func (n *TelegramNotifier) SendInvoice(ctx context.Context, inv *domain.Invoice) error {
	start := time.Now()
	defer func() {
		metrics.NotificationDuration.WithLabelValues("telegram").Observe(time.Since(start).Seconds())
	}()

	req := sendMessageRequest{
		ChatID:                n.chatID,
		Text:                  FormatMessage(inv),
		DisableWebPagePreview: true,
	}
	cashew, err := inv.CashewURL()
	if err != nil {
		return fmt.Errorf("building cashew link for %s: %w", inv.Number, err)
	}
	req.ReplyMarkup = &inlineKeyboard{
		InlineKeyboard: [][]inlineButton{{{Text: cashewButtonText, URL: cashew}}},
	}

	return n.post(ctx, "sendMessage", req)
}

func (n *TelegramNotifier) post(ctx context.Context, method string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling telegram payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", n.apiURL, n.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		// The URL carries the bot token.
		return fmt.Errorf("sending telegram %s: %w", method, redactToken(err, n.token))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("reading telegram response: %w", err)
	}

	var out telegramResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if resp.StatusCode == http.StatusTooManyRequests && out.Parameters != nil {
		return fmt.Errorf("telegram rate limited (retry after %ds)", out.Parameters.RetryAfter)
	}
	if !out.OK {
		return fmt.Errorf("telegram returned %d: %s", out.ErrorCode, out.Description)
	}
	return nil
}

func redactToken(err error, token string) error {
	if token == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
