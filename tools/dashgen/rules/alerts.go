package rules

// AlertRules returns a PrometheusRule CR containing alert rules for
// pricely operational monitoring.
func AlertRules() PrometheusRule {
	return newPrometheusRule("pricely-alerts", "pricely-alerts",
		alert("PricelyDown",
			`absent(up{job="pricely"})`, "2m", "critical",
			"pricely is down",
			"The pricely job has been absent for more than 2 minutes."),
		alert("PricelyReadinessDown",
			`pricely_readyz_up == 0`, "2m", "critical",
			"pricely readiness check is failing",
			"The readiness probe has been reporting not-ready for more than 2 minutes."),
		alert("PricelyHighErrorRate",
			`pricely:http_errors:rate5m / pricely:http_requests:rate5m > 0.05`, "5m", "warning",
			"High HTTP error rate on pricely",
			"More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes."),
		alert("PricelyCheckFailures",
			`pricely:check_failures:ratio5m > 0.5`, "15m", "warning",
			"Most tracker checks are failing",
			"More than half of tracker checks have failed for 15 minutes."),
		alert("PricelySourceFailing",
			`pricely:source_fetch_errors:rate5m > 0.05`, "15m", "warning",
			"A price source keeps failing",
			"Fetches from source {{ $labels.source }} have been failing for 15 minutes."),
		alert("PricelyResyncFailing",
			`increase(pricely_resync_total{result="error"}[15m]) > 0`, "15m", "warning",
			"Schedule resync is failing",
			"The engine could not reload trackers from the store for 15 minutes."),
		alert("PricelyNoObservations",
			`pricely_scheduled_trackers > 0 and on() pricely:observations:rate5m == 0`, "30m", "warning",
			"No prices recorded",
			"Trackers are scheduled but no price observation has been recorded for 30 minutes."),
		alert("PricelyDeliveryFailures",
			`increase(pricely_delivery_failures_total[5m]) > 0`, "1m", "warning",
			"Notification delivery failures detected",
			"Notifications on channel {{ $labels.channel }} have failed to send."),
		alert("PricelyDeliveriesStuck",
			`pricely_deliveries_pending > 20`, "10m", "warning",
			"Notification deliveries are piling up",
			"More than 20 deliveries have been pending for 10 minutes; a channel is likely hanging."),
	)
}
