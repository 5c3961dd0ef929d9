package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// LoginAttempts shows captcha submissions against rejections and
// exhausted logins.
func LoginAttempts() *timeseries.PanelBuilder {
	return series("Logins / h", "Captcha submissions, rejections and failed logins", ThirdWidth).
		WithTarget(PromQuery(`increase(einvoice_login_attempts_total[1h])`, "attempts", "A")).
		WithTarget(PromQuery(`increase(einvoice_captcha_rejections_total[1h])`, "rejected", "B")).
		WithTarget(PromQuery(`increase(einvoice_login_failures_total[1h])`, "failed", "C")).
		WithTarget(PromQuery(`increase(einvoice_relogins_total[1h])`, "relogins", "D"))
}

// CaptchaRejectionRatio shows the share of captcha guesses the portal
// refused over the last hour.
func CaptchaRejectionRatio() *timeseries.PanelBuilder {
	return series("Captcha Rejection Ratio", "Rejected captcha submissions over the last hour", ThirdWidth).
		WithTarget(PromQuery(`einvoice:captcha_rejection:ratio1h`, "ratio", "A")).
		Unit("percentunit").
		Thresholds(ThresholdsGreenYellowRed(0.5, 0.8)).
		ColorScheme(colorThresholds())
}

// PortalCalls shows portal API calls per second by endpoint.
func PortalCalls() *timeseries.PanelBuilder {
	return series("Portal Calls", "Portal API calls per second by endpoint", ThirdWidth).
		WithTarget(PromQuery(`einvoice:portal_calls:rate5m`, "{{endpoint}}", "A")).
		WithTarget(PromQuery(`einvoice:portal_errors:rate5m`, "errors", "B")).
		Unit("reqps")
}

// DailyUsage shows rolling 24h portal calls against limit.
func DailyUsage(limit int) *timeseries.PanelBuilder {
	return series("Daily Usage vs Limit", fmt.Sprintf("Rolling 24h portal calls (limit: %d)", limit), TSWidth).
		WithTarget(PromQuery(fmt.Sprintf(`einvoice_portal_daily_usage{job=%q}`, Job), "usage", "A")).
		Thresholds(ThresholdsGreenYellowRed(float64(limit)*0.8, float64(limit))).
		ColorScheme(colorThresholds())
}

// LimitHits counts daily budget exhaustions in the past 24 hours.
func LimitHits() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Limit Hits (24h)").
		Description("Times the daily portal call budget was exhausted").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			fmt.Sprintf(`increase(einvoice_portal_daily_limit_hits_total{job=%q}[24h])`, Job),
			"", "A",
		)).
		Thresholds(ThresholdsGreenYellowRed(1, 3)).
		ColorScheme(colorThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
