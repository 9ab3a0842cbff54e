package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Refresh outcomes recorded by RecordRefresh.
const (
	RefreshSuccess = "success"
	RefreshFailure = "failure"
	RefreshShared  = "shared"
	RefreshStale   = "stale"
)

var (
	meter metric.Meter

	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	httpRetriesTotal    metric.Int64Counter
	authRefreshTotal    metric.Int64Counter
)

// Init initializes the client metrics against the global meter provider.
// Recording functions are no-ops until Init succeeds.
func Init(serviceName string) error {
	meter = otel.Meter(serviceName)

	var err error

	httpRequestsTotal, err = meter.Int64Counter(
		"http_client_requests_total",
		metric.WithDescription("Total number of HTTP requests sent to the license API"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_client_requests_total counter: %w", err)
	}

	httpRequestDuration, err = meter.Float64Histogram(
		"http_client_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_client_request_duration_seconds histogram: %w", err)
	}

	httpRetriesTotal, err = meter.Int64Counter(
		"http_client_retries_total",
		metric.WithDescription("Requests re-sent after a token refresh"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_client_retries_total counter: %w", err)
	}

	authRefreshTotal, err = meter.Int64Counter(
		"auth_refresh_total",
		metric.WithDescription("Token refresh attempts by outcome"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create auth_refresh_total counter: %w", err)
	}

	return nil
}

// RecordHTTPRequest records one attempt of an HTTP request. statusCode is 0
// when no response was received.
func RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	}

	if httpRequestsTotal != nil {
		httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	if httpRequestDuration != nil {
		httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
}

// RecordRetry counts a request re-sent with a rotated token.
func RecordRetry(ctx context.Context, method, route string) {
	if httpRetriesTotal != nil {
		httpRetriesTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
		))
	}
}

// RecordRefresh counts a refresh attempt by outcome.
func RecordRefresh(ctx context.Context, outcome string) {
	if authRefreshTotal != nil {
		authRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
