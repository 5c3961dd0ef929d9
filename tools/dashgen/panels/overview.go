package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/gauge"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
)

func upStat(title, description, metric string) *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title(title).
		Description(description).
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(metric, "", "A")).
		Thresholds(ThresholdsRedGreen(1)).
		ColorScheme(colorThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone).
		TextMode(common.BigValueTextModeValue)
}

// HealthzStat shows the liveness probe state.
func HealthzStat() *stat.PanelBuilder {
	return upStat("Healthz", "Liveness probe (1 = ok)", `einvoice_healthz_up`)
}

// ReadyzStat shows whether the dedup store answered the last readiness probe.
func ReadyzStat() *stat.PanelBuilder {
	return upStat("Readyz", "Dedup store reachable (1 = ready)", `einvoice_readyz_up`)
}

// QuotaGauge shows portal calls in the rolling 24h window as a percentage
// of limit.
func QuotaGauge(limit int) *gauge.PanelBuilder {
	return gauge.NewPanelBuilder().
		Title("Portal Quota %").
		Description(fmt.Sprintf("Rolling 24h portal calls as percentage of the %d call budget", limit)).
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(fmt.Sprintf("einvoice_portal_daily_usage / %d * 100", limit), "", "A")).
		Unit("percent").
		Min(0).
		Max(100).
		Thresholds(ThresholdsGreenYellowRed(80, 95)).
		ColorScheme(colorThresholds())
}

// NextCycleStat counts down to the next scheduled interval cycle.
func NextCycleStat() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Next Cycle").
		Description("Time until the next interval-triggered cycle").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(
			fmt.Sprintf(`einvoice_scheduler_next_cycle_timestamp{job=%q, trigger="interval"} - time()`, Job),
			"", "A",
		)).
		Unit("s").
		Thresholds(thresholdsGreen()).
		ColorScheme(colorThresholds()).
		GraphMode(common.BigValueGraphModeNone)
}
