package notify

import (
	"context"
	"log/slog"

	domain "github.com/donaldgifford/einvoice-tracker/pkg/types"
)

// NoOpNotifier implements Notifier by logging discarded invoices. It is used
// when no notification channel is configured.
type NoOpNotifier struct {
	log *slog.Logger
}

// NewNoOpNotifier creates a notifier that discards invoices with a log message.
func NewNoOpNotifier(log *slog.Logger) *NoOpNotifier {
	return &NoOpNotifier{log: log}
}

// SendInvoice logs and discards inv.
func (n *NoOpNotifier) SendInvoice(_ context.Context, inv *domain.Invoice) error {
	n.log.Debug("notification discarded (no channel configured)",
		"invoice", inv.Number,
		"seller", inv.SellerName,
		"amount", inv.TotalAmount,
	)
	return nil
}
