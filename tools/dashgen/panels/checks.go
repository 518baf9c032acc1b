package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// ChecksByOutcome returns a stacked timeseries of check rate split by
// outcome.
func ChecksByOutcome() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Checks / min by Outcome").
		Description("Tracker checks per minute, split by outcome").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSThirdWidth).
		WithTarget(PromQuery(`pricely:checks:rate5m * 60`, "{{outcome}}", "A")).
		FillOpacity(30).
		LineWidth(1).
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}

// CheckFailureRatio returns a timeseries of the share of checks that did
// not succeed.
func CheckFailureRatio() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Check Failure %").
		Description("Failed checks as percentage of all checks").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSThirdWidth).
		WithTarget(PromQuery(
			`pricely:check_failures:ratio5m * 100`,
			"failure %", "A",
		)).
		Unit("percent").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenYellowRed(10, 50)).
		ColorScheme(ColorSchemeThresholds()).
		DrawStyle(common.GraphDrawStyleLine)
}

// CheckDuration returns a timeseries panel showing the p95 check duration.
func CheckDuration() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Check Duration (p95)").
		Description("95th percentile duration of a full tracker check").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSThirdWidth).
		WithTarget(PromQuery(quantile("0.95", "pricely_check_duration_seconds"), "p95", "A")).
		Unit("s").
		FillOpacity(10).
		LineWidth(2).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleLine)
}

// ChecksInFlight returns a stat panel showing checks currently running.
func ChecksInFlight() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Checks In Flight").
		Description("Tracker checks currently running").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(jobSel("pricely_checks_in_flight"), "", "A")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeArea)
}

// ResyncFailures returns a stat panel showing failed schedule resyncs in
// the past hour.
func ResyncFailures() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Resync Failures (1h)").
		Description("Schedule resyncs from the store that failed in the last hour").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(StatWidth).
		WithTarget(PromQuery(
			`sum(increase(pricely_resync_total{job="pricely",result="error"}[1h]))`,
			"", "A",
		)).
		Thresholds(ThresholdsGreenYellowRed(1, 3)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone)
}
