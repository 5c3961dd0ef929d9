// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/einvoice-tracker/tools/dashgen/panels"
)

// UID is the dashboard UID, also used as the output file name.
const UID = "einvoice-overview"

// BuildOverview constructs the tracker overview dashboard. dailyLimit is
// the portal call budget the quota panels are drawn against.
func BuildOverview(dailyLimit int) *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("E-Invoice Tracker").
		Uid(UID).
		Tags([]string{"einvoice", panels.Job}).
		Refresh("1m").
		Time("now-24h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.QuotaGauge(dailyLimit)).
		WithPanel(panels.NextCycleStat()))

	b.WithRow(dashboard.NewRowBuilder("Cycles").
		WithPanel(panels.CycleOutcomes()).
		WithPanel(panels.CycleDuration()).
		WithPanel(panels.DroppedCycles()))

	b.WithRow(dashboard.NewRowBuilder("Portal").
		WithPanel(panels.LoginAttempts()).
		WithPanel(panels.CaptchaRejectionRatio()).
		WithPanel(panels.PortalCalls()).
		WithPanel(panels.DailyUsage(dailyLimit)).
		WithPanel(panels.LimitHits()))

	b.WithRow(dashboard.NewRowBuilder("Invoices").
		WithPanel(panels.InvoiceFlow()).
		WithPanel(panels.EnrichmentFailures()).
		WithPanel(panels.Notifications()).
		WithPanel(panels.NotificationLatency()))

	b.WithRow(dashboard.NewRowBuilder("Health Listener").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
