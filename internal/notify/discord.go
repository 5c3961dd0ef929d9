package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/donaldgifford/einvoice-tracker/internal/metrics"
	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

const (
	colorGreen  = 0x2ECC71 // under 200
	colorYellow = 0xF1C40F // 200-999
	colorOrange = 0xE67E22 // 1000+

	// Discord caps embed URLs and field values.
	maxEmbedURL   = 2048
	maxFieldValue = 1024
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// SendInvoice sends the invoice as a single Discord embed.
func (d *DiscordNotifier) SendInvoice(ctx context.Context, inv *domain.Invoice) error {
	start := time.Now()
	defer func() {
		metrics.NotificationDuration.WithLabelValues("discord").Observe(time.Since(start).Seconds())
	}()

	return d.post(ctx, discordWebhookPayload{Embeds: []discordEmbed{buildEmbed(inv)}})
}

func buildEmbed(inv *domain.Invoice) discordEmbed {
	embed := discordEmbed{
		Title:       "新發票: " + inv.SellerName,
		Color:       amountColor(inv.TotalAmount),
		Description: inv.Description,
		Timestamp:   inv.Datetime.Format(time.RFC3339),
		Fields: []discordEmbedField{
			{Name: "發票號碼", Value: inv.Number, Inline: true},
			{Name: "總金額", Value: formatAmount(inv.TotalAmount) + " 元", Inline: true},
			{Name: "開立時間", Value: inv.FormattedDatetime(), Inline: true},
		},
	}

	if items := formatItems(inv.Items); items != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:  "詳細內容",
			Value: truncate(items[1:], maxFieldValue),
		})
	}

	if u, err := inv.CashewURL(); err == nil && len(u) <= maxEmbedURL {
		embed.URL = u
	}

	return embed
}

func amountColor(total float64) int {
	switch {
	case total >= 1000:
		return colorOrange
	case total >= 200:
		return colorYellow
	default:
		return colorGreen
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
