// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/pricely/tools/dashgen/panels"
)

// BuildOverview constructs the pricely overview dashboard with all metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Pricely Overview").
		Uid("pricely-overview").
		Tags([]string{"pricely"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.ScheduledStat()).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	b.WithRow(dashboard.NewRowBuilder("Checks").
		WithPanel(panels.ChecksByOutcome()).
		WithPanel(panels.CheckFailureRatio()).
		WithPanel(panels.CheckDuration()).
		WithPanel(panels.ChecksInFlight()).
		WithPanel(panels.ResyncFailures()))

	b.WithRow(dashboard.NewRowBuilder("Sources").
		WithPanel(panels.FetchLatency()).
		WithPanel(panels.FetchErrors()).
		WithPanel(panels.RateLimitWaits()))

	b.WithRow(dashboard.NewRowBuilder("Notifications").
		WithPanel(panels.ObservationsRate()).
		WithPanel(panels.NotificationsRate()).
		WithPanel(panels.DeliveryFailures()).
		WithPanel(panels.DeliveriesPending()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
