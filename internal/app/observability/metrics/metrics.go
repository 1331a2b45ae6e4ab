package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal       metric.Int64Counter
	HTTPRequestDuration     metric.Float64Histogram
	ListingsCreatedTotal    metric.Int64Counter
	QuotaChecksTotal        metric.Int64Counter
	QuotaDenialsTotal       metric.Int64Counter
	ProximityComputedTotal  metric.Int64Counter
	ProximityCacheHitsTotal metric.Int64Counter
	DBQueryDurationSeconds  metric.Float64Histogram
	DBQueryErrorsTotal      metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("publimicro-api")
		var err error
		m := &AppMetrics{}

		m.HTTPRequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}

		m.HTTPRequestDuration, err = meter.Float64Histogram(
			"http_request_duration_seconds",
			metric.WithDescription("Duration of HTTP requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_request_duration_seconds: %v", err)
		}

		m.ListingsCreatedTotal, err = meter.Int64Counter(
			"listings_created_total",
			metric.WithDescription("Total number of listings successfully created"),
			metric.WithUnit("{listing}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create listings_created_total: %v", err)
		}

		m.QuotaChecksTotal, err = meter.Int64Counter(
			"quota_checks_total",
			metric.WithDescription("Total number of posting quota checks"),
			metric.WithUnit("{check}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create quota_checks_total: %v", err)
		}

		m.QuotaDenialsTotal, err = meter.Int64Counter(
			"quota_denials_total",
			metric.WithDescription("Total number of denied posting attempts"),
			metric.WithUnit("{denial}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create quota_denials_total: %v", err)
		}

		m.ProximityComputedTotal, err = meter.Int64Counter(
			"proximity_enrichments_total",
			metric.WithDescription("Total number of proximity enrichment computations"),
			metric.WithUnit("{computation}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create proximity_enrichments_total: %v", err)
		}

		m.ProximityCacheHitsTotal, err = meter.Int64Counter(
			"proximity_catalog_cache_hits_total",
			metric.WithDescription("Total number of POI catalog cache hits"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create proximity_catalog_cache_hits_total: %v", err)
		}

		m.DBQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DBQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}
