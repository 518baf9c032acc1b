package main

import "errors"

// KnownMetrics is the set of metric names exported by pricely plus
// recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"pricely_http_request_duration_seconds": true,
	"pricely_http_requests_total":           true,
	"pricely_http_panics_total":             true,

	// Health metrics.
	"pricely_healthz_up": true,
	"pricely_readyz_up":  true,

	// Engine metrics.
	"pricely_checks_total":           true,
	"pricely_check_duration_seconds": true,
	"pricely_checks_in_flight":       true,
	"pricely_scheduled_trackers":     true,
	"pricely_check_now_joined_total": true,
	"pricely_resync_total":           true,

	// Source metrics.
	"pricely_source_fetch_duration_seconds": true,
	"pricely_source_fetch_errors_total":     true,
	"pricely_source_rate_limit_waits_total": true,

	// Observation and notification metrics.
	"pricely_observations_total":          true,
	"pricely_notifications_created_total": true,
	"pricely_delivery_failures_total":     true,
	"pricely_deliveries_pending":          true,

	// Recording rules.
	"pricely:http_requests:rate5m":       true,
	"pricely:http_errors:rate5m":         true,
	"pricely:checks:rate5m":              true,
	"pricely:check_failures:ratio5m":     true,
	"pricely:source_fetch_errors:rate5m": true,
	"pricely:observations:rate5m":        true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
