package rules

// RecordingRules returns the pre-computed expressions the dashboard and
// alert rules read.
func RecordingRules() PrometheusRule {
	return newRule("einvoice-recording-rules", RuleGroup{
		Name:     "einvoice-recording",
		Interval: "1m",
		Rules: []Rule{
			{
				Record: "einvoice:http_requests:rate5m",
				Expr:   `sum(rate(einvoice_http_requests_total[5m]))`,
			},
			{
				Record: "einvoice:http_errors:rate5m",
				Expr:   `sum(rate(einvoice_http_requests_total{status=~"5.."}[5m]))`,
			},
			{
				Record: "einvoice:portal_calls:rate5m",
				Expr:   `sum by (endpoint) (rate(einvoice_portal_calls_total[5m]))`,
			},
			{
				Record: "einvoice:portal_errors:rate5m",
				Expr:   `sum(rate(einvoice_portal_calls_total{status=~"error|[45].."}[5m]))`,
			},
			{
				Record: "einvoice:captcha_rejection:ratio1h",
				Expr: `sum(increase(einvoice_captcha_rejections_total[1h]))` +
					` / clamp_min(sum(increase(einvoice_login_attempts_total[1h])), 1)`,
			},
			{
				Record: "einvoice:enrichment_failures:rate5m",
				Expr:   `sum by (kind) (rate(einvoice_enrichment_failures_total[5m]))`,
			},
			{
				Record: "einvoice:invoices_committed:increase1h",
				Expr:   `sum(increase(einvoice_invoices_committed_total[1h]))`,
			},
		},
	})
}
