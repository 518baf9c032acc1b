package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// ObservationsRate returns a timeseries panel showing recorded price
// observations per minute.
func ObservationsRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Observations / min").
		Description("Price observations recorded per minute").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(`pricely:observations:rate5m * 60`, "observations/min", "A")).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// NotificationsRate returns a timeseries panel showing crossing
// notifications created per hour.
func NotificationsRate() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Notifications / h").
		Description("Price drop notifications created per hour").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(increase(`+jobSel("pricely_notifications_created_total")+`[1h]))`,
			"notifications/h", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// DeliveryFailures returns a stat panel showing delivery failures in the
// past 24 hours.
func DeliveryFailures() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Delivery Failures (24h)").
		Description("Failed notification deliveries in the last 24 hours").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(FullWidth).
		WithTarget(PromQuery(
			`sum(increase(`+jobSel("pricely_delivery_failures_total")+`[24h])) by (channel)`,
			"{{channel}}", "A",
		)).
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}

// DeliveriesPending returns a stat panel showing deliveries not yet
// finished. A value that keeps growing means a channel is hanging.
func DeliveriesPending() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Deliveries Pending").
		Description("Notification deliveries started and not yet finished").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(jobSel("pricely_deliveries_pending"), "", "A")).
		Thresholds(ThresholdsGreenYellowRed(5, 20)).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeArea)
}
