// Package domain defines the core business types for the e-invoice tracker.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DatetimeLayout is the layout used when rendering an invoice issue time.
const DatetimeLayout = "2006-01-02 15:04:05"

// InvoiceItem is a single line of an invoice.
type InvoiceItem struct {
	Name       string  `json:"item_name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
	Category   string  `json:"category"`
}

// Invoice is the enriched invoice aggregate. It is built once per newly
// observed invoice number and never updated afterwards.
type Invoice struct {
	Number      string        `json:"invoice_number"`
	SellerName  string        `json:"seller_name"`
	TotalAmount float64       `json:"total_amount"`
	Datetime    time.Time     `json:"invoice_datetime"`
	Description string        `json:"description"`
	Items       []InvoiceItem `json:"items"`
}

// ErrInvalidInvoice is returned by NewInvoice when required fields are missing.
var ErrInvalidInvoice = errors.New("invalid invoice")

// NewInvoice validates the required fields and returns the aggregate. Items
// with a zero total are dropped.
func NewInvoice(
	number, seller string,
	total float64,
	issuedAt time.Time,
	description string,
	items []InvoiceItem,
) (*Invoice, error) {
	if strings.TrimSpace(number) == "" {
		return nil, fmt.Errorf("%w: empty invoice number", ErrInvalidInvoice)
	}
	if issuedAt.IsZero() {
		return nil, fmt.Errorf("%w: invoice %s has no issue time", ErrInvalidInvoice, number)
	}

	return &Invoice{
		Number:      number,
		SellerName:  seller,
		TotalAmount: total,
		Datetime:    issuedAt,
		Description: description,
		Items:       FilterZeroAmount(items),
	}, nil
}

// FilterZeroAmount returns the items whose total price is non-zero, in order.
func FilterZeroAmount(items []InvoiceItem) []InvoiceItem {
	out := make([]InvoiceItem, 0, len(items))
	for i := range items {
		if items[i].TotalPrice == 0 {
			continue
		}
		out = append(out, items[i])
	}
	return out
}

// FormattedDatetime renders the issue time in the invoice's own location.
func (inv *Invoice) FormattedDatetime() string {
	return inv.Datetime.Format(DatetimeLayout)
}

const cashewBaseURL = "https://cashewapp.web.app/addTransaction"

type cashewTransaction struct {
	Date     string `json:"date"`
	Amount   string `json:"amount"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Notes    string `json:"notes"`
}

type cashewPayload struct {
	Transactions []cashewTransaction `json:"transactions"`
}

// CashewURL builds an "add transaction" deep link for the Cashew budgeting
// app with one expense per item. The JSON payload is query-escaped twice,
// which is what the app's link handler expects.
func (inv *Invoice) CashewURL() (string, error) {
	payload := cashewPayload{Transactions: make([]cashewTransaction, 0, len(inv.Items))}
	notes := fmt.Sprintf("發票號碼: %s\n賣家: %s\n", inv.Number, inv.SellerName)

	for i := range inv.Items {
		it := &inv.Items[i]
		payload.Transactions = append(payload.Transactions, cashewTransaction{
			Date:     inv.FormattedDatetime(),
			Amount:   strconv.FormatFloat(-it.TotalPrice, 'f', -1, 64),
			Title:    it.Name,
			Category: it.Category,
			Notes:    notes,
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", fmt.Errorf("marshaling cashew payload: %w", err)
	}

	once := escapeComponent(strings.TrimSuffix(buf.String(), "\n"))
	return cashewBaseURL + "?JSON=" + escapeComponent(once), nil
}

// escapeComponent percent-encodes everything outside the unreserved set,
// spaces included.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
