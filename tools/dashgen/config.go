package main

import "errors"

// KnownMetrics is the set of metric names exported by einvoice-tracker plus
// the recording rules the dashboard and alerts read. Histogram series are
// listed by base name.
var KnownMetrics = map[string]bool{
	// Cycles.
	"einvoice_cycles_total":                   true,
	"einvoice_cycle_duration_seconds":         true,
	"einvoice_cycles_dropped_total":           true,
	"einvoice_scheduler_next_cycle_timestamp": true,

	// Login.
	"einvoice_login_attempts_total":     true,
	"einvoice_captcha_rejections_total": true,
	"einvoice_login_failures_total":     true,
	"einvoice_relogins_total":           true,

	// Portal API.
	"einvoice_portal_calls_total":            true,
	"einvoice_portal_daily_usage":            true,
	"einvoice_portal_daily_limit_hits_total": true,

	// Invoices.
	"einvoice_invoices_seen_total":           true,
	"einvoice_invoices_committed_total":      true,
	"einvoice_enrichment_failures_total":     true,
	"einvoice_notifications_sent_total":      true,
	"einvoice_notification_failures_total":   true,
	"einvoice_notification_duration_seconds": true,

	// Health listener.
	"einvoice_http_requests_total":           true,
	"einvoice_http_request_duration_seconds": true,
	"einvoice_http_panics_total":             true,
	"einvoice_healthz_up":                    true,
	"einvoice_readyz_up":                     true,

	// Recording rules.
	"einvoice:http_requests:rate5m":          true,
	"einvoice:http_errors:rate5m":            true,
	"einvoice:portal_calls:rate5m":           true,
	"einvoice:portal_errors:rate5m":          true,
	"einvoice:captcha_rejection:ratio1h":     true,
	"einvoice:enrichment_failures:rate5m":    true,
	"einvoice:invoices_committed:increase1h": true,

	"up": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
	PlainRules       bool
	PortalDailyLimit int
}

// DefaultConfig generates everything into ../../deploy (relative to
// tools/dashgen/) against the tracker's default daily call budget.
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
		PortalDailyLimit: 2000,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	var errs []error
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory must be set"))
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		errs = append(errs, errors.New("at least one of dashboard or rules must be enabled"))
	}
	if c.PortalDailyLimit <= 0 {
		errs = append(errs, errors.New("portal daily limit must be positive"))
	}
	return errors.Join(errs...)
}
