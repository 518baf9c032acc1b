package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return newPrometheusRule("pricely-recording-rules", "pricely-recording",
		record("pricely:http_requests:rate5m",
			`sum(rate(pricely_http_requests_total[5m]))`),
		record("pricely:http_errors:rate5m",
			`sum(rate(pricely_http_requests_total{status=~"5.."}[5m]))`),
		record("pricely:checks:rate5m",
			`sum(rate(pricely_checks_total[5m])) by (outcome)`),
		record("pricely:check_failures:ratio5m",
			`sum(rate(pricely_checks_total{outcome!="success"}[5m])) / sum(rate(pricely_checks_total[5m]))`),
		record("pricely:source_fetch_errors:rate5m",
			`sum(rate(pricely_source_fetch_errors_total[5m])) by (source)`),
		record("pricely:observations:rate5m",
			`sum(rate(pricely_observations_total[5m]))`),
	)
}
