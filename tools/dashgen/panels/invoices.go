package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// InvoiceFlow compares invoices listed by the portal with the new ones
// committed.
func InvoiceFlow() *timeseries.PanelBuilder {
	return series("Invoices / h", "Invoices listed versus newly committed", ThirdWidth).
		WithTarget(PromQuery(`increase(einvoice_invoices_seen_total[1h])`, "seen", "A")).
		WithTarget(PromQuery(`einvoice:invoices_committed:increase1h`, "committed", "B"))
}

// EnrichmentFailures shows categorize and describe calls that degraded to
// an empty value.
func EnrichmentFailures() *timeseries.PanelBuilder {
	return series("Enrichment Failures", "Degraded LLM calls per second by kind", ThirdWidth).
		WithTarget(PromQuery(`einvoice:enrichment_failures:rate5m`, "{{kind}}", "A")).
		Thresholds(ThresholdsGreenYellowRed(0.01, 0.1)).
		ColorScheme(colorThresholds())
}

// Notifications shows delivered and failed notifications per hour.
func Notifications() *timeseries.PanelBuilder {
	return series("Notifications / h", "Delivered and failed invoice notifications", ThirdWidth).
		WithTarget(PromQuery(`increase(einvoice_notifications_sent_total[1h])`, "sent", "A")).
		WithTarget(PromQuery(`increase(einvoice_notification_failures_total[1h])`, "failed", "B"))
}

// NotificationLatency shows p95 delivery time per channel.
func NotificationLatency() *timeseries.PanelBuilder {
	return series("Notification Latency (p95)", "95th percentile delivery time by channel", TSWidth).
		WithTarget(PromQuery(
			fmt.Sprintf(`histogram_quantile(0.95, sum(rate(einvoice_notification_duration_seconds_bucket{job=%q}[1h])) by (le, channel))`, Job),
			"{{channel}}", "A",
		)).
		Unit("s")
}
