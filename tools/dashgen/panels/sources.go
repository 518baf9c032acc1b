package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// FetchLatency returns a timeseries panel showing p95 fetch duration per
// source.
func FetchLatency() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Fetch Latency (p95)").
		Description("95th percentile page fetch duration by source").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSThirdWidth).
		WithTarget(PromQuery(quantile("0.95", "pricely_source_fetch_duration_seconds", "source"), "{{source}}", "A")).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// FetchErrors returns a timeseries panel showing fetch errors per minute
// by source.
func FetchErrors() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Fetch Errors / min").
		Description("Failed page fetches per minute by source").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSThirdWidth).
		WithTarget(PromQuery(`pricely:source_fetch_errors:rate5m * 60`, "{{source}}", "A")).
		FillOpacity(10).
		LineWidth(2).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenYellowRed(0.1, 1)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}

// RateLimitWaits returns a timeseries panel showing how often fetches
// waited on the per-source limiter.
func RateLimitWaits() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Rate Limit Waits / min").
		Description("Fetches delayed by the per-source rate limiter").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSThirdWidth).
		WithTarget(PromQuery(
			`sum(rate(`+jobSel("pricely_source_rate_limit_waits_total")+`[5m])) by (source) * 60`,
			"{{source}}", "A",
		)).
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}
