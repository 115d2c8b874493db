package metrics

import (
	"time"

	"github.com/gramsift/gramsift/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Scrape metrics
	MessagesScrapedTotal  = "app_messages_scraped_total"
	BatchesFetchedTotal   = "app_batches_fetched_total"
	RateLimitHitsTotal    = "app_rate_limit_hits_total"
	SourcesAbandonedTotal = "app_sources_abandoned_total"
	SessionDuration       = "app_session_duration_ms"

	// Pipeline metrics
	MessagesEmbeddedTotal = "app_messages_embedded_total"
	PointsIndexedTotal    = "app_points_indexed_total"

	// Operations metrics
	OperationsTotal       = "app_operations_total"
	OperationsErrorsTotal = "app_operations_errors_total"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// RecordMessagesScraped records kept messages for a source
func RecordMessagesScraped(source string, count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			MessagesScrapedTotal,
			float64(count),
			map[string]string{
				"source": source,
			},
		)
	}
}

// RecordBatchFetched records a completed batch fetch with its outcome
func RecordBatchFetched(source string, outcome string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			BatchesFetchedTotal,
			1,
			map[string]string{
				"source":  source,
				"outcome": outcome,
			},
		)
	}
}

// RecordRateLimitHit records an upstream rate-limit response
func RecordRateLimitHit(source string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RateLimitHitsTotal,
			1,
			map[string]string{
				"source": source,
			},
		)
	}
}

// RecordSourceAbandoned records a source given up on after repeated failures
func RecordSourceAbandoned(source string, reason string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			SourcesAbandonedTotal,
			1,
			map[string]string{
				"source": source,
				"reason": reason,
			},
		)
	}
}

// RecordSessionDuration records how long a full scraping session took
func RecordSessionDuration(duration time.Duration, stoppedBy string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			SessionDuration,
			duration,
			map[string]string{
				"stopped_by": stoppedBy,
			},
		)
	}
}

// RecordMessagesEmbedded records messages that received embeddings
func RecordMessagesEmbedded(provider string, count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			MessagesEmbeddedTotal,
			float64(count),
			map[string]string{
				"provider": provider,
			},
		)
	}
}

// RecordPointsIndexed records points upserted into the vector index
func RecordPointsIndexed(collection string, count int) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			PointsIndexedTotal,
			float64(count),
			map[string]string{
				"collection": collection,
			},
		)
	}
}

// RecordOperation records an application operation with status
func RecordOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			OperationsTotal,
			1,
			map[string]string{
				"operation": operation,
				"status":    status,
			},
		)
	}
}

// RecordOperationError records an application operation error
func RecordOperationError(operation string, errorType string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			OperationsErrorsTotal,
			1,
			map[string]string{
				"operation":  operation,
				"error_type": errorType,
			},
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerUptime,
			float64(seconds),
			nil,
		)
	}
}
