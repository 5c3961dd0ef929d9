package panels

import (
	"fmt"

	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// CycleOutcomes shows cycles per hour split by trigger and outcome.
func CycleOutcomes() *timeseries.PanelBuilder {
	return series("Cycles / h", "Fetch cycles by trigger and outcome", ThirdWidth).
		WithTarget(PromQuery(
			fmt.Sprintf(`sum by (trigger, outcome) (increase(einvoice_cycles_total{job=%q}[1h]))`, Job),
			"{{trigger}} {{outcome}}", "A",
		))
}

// CycleDuration shows the p95 cycle duration.
func CycleDuration() *timeseries.PanelBuilder {
	return series("Cycle Duration (p95)", "95th percentile fetch cycle duration", ThirdWidth).
		WithTarget(PromQuery(
			fmt.Sprintf(`histogram_quantile(0.95, sum(rate(einvoice_cycle_duration_seconds_bucket{job=%q}[1h])) by (le))`, Job),
			"p95", "A",
		)).
		Unit("s")
}

// DroppedCycles counts cycle requests abandoned before reaching the worker.
func DroppedCycles() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Dropped Cycles (24h)").
		Description("Cycle requests abandoned at shutdown").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(ThirdWidth).
		WithTarget(PromQuery(
			fmt.Sprintf(`sum(increase(einvoice_cycles_dropped_total{job=%q}[24h]))`, Job),
			"", "A",
		)).
		Thresholds(ThresholdsGreenYellowRed(1, 3)).
		ColorScheme(colorThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
