// Package notify defines the notification interface and its channels
// for newly committed invoices.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

// Notifier announces a newly committed invoice.
type Notifier interface {
	SendInvoice(ctx context.Context, inv *domain.Invoice) error
}

// Multi fans an invoice out to every notifier. All are attempted; the
// failures are joined.
type Multi []Notifier

// SendInvoice implements Notifier.
func (m Multi) SendInvoice(ctx context.Context, inv *domain.Invoice) error {
	var errs []error
	for _, n := range m {
		if err := n.SendInvoice(ctx, inv); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const messageHeader = "你有新發票進來了哦～～～"

// FormatMessage renders the plain-text body shared by the chat channels.
func FormatMessage(inv *domain.Invoice) string {
	var sb strings.Builder
	sb.WriteString(messageHeader)
	sb.WriteByte('\n')
	sb.WriteString(inv.Description)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "發票號碼: %s\n", inv.Number)
	fmt.Fprintf(&sb, "賣家: %s\n", inv.SellerName)
	fmt.Fprintf(&sb, "總金額: %s 元\n", formatAmount(inv.TotalAmount))
	fmt.Fprintf(&sb, "開立時間: %s\n", inv.FormattedDatetime())
	sb.WriteString("\n詳細內容:")
	sb.WriteString(formatItems(inv.Items))
	return sb.String()
}

func formatItems(items []domain.InvoiceItem) string {
	var sb strings.Builder
	for i := range items {
		sb.WriteByte('\n')
		sb.WriteString(formatItem(&items[i]))
	}
	return sb.String()
}

func formatItem(it *domain.InvoiceItem) string {
	return fmt.Sprintf("- %s x%d @ %s 元 = %s 元 (%s)",
		it.Name, it.Quantity, formatAmount(it.UnitPrice), formatAmount(it.TotalPrice), it.Category)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
