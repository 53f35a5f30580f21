package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
)

// Result values for operation metrics.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultStored  = "stored"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Metrics records observability metrics. The zero value is a no-op
// recorder, so callers never need to nil-check.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	gmailOperationsTotal   metric.Int64Counter
	gmailOperationDuration metric.Float64Histogram

	authOperationsTotal metric.Int64Counter
	oauthLinkTotal      metric.Int64Counter

	ingestRunsTotal     metric.Int64Counter
	ingestMessagesTotal metric.Int64Counter
	ingestDuration      metric.Float64Histogram
}

// NewMetrics creates a Metrics instance with all instruments
// initialized on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.gmailOperationsTotal, err = meter.Int64Counter(
		"gmail_api_operations_total",
		metric.WithDescription("Total number of Gmail API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_api_operations_total counter: %w", err)
	}

	m.gmailOperationDuration, err = meter.Float64Histogram(
		"gmail_api_operation_duration_seconds",
		metric.WithDescription("Gmail API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail_api_operation_duration_seconds histogram: %w", err)
	}

	m.authOperationsTotal, err = meter.Int64Counter(
		"auth_operations_total",
		metric.WithDescription("Total number of authentication operations (signup, login, refresh, logout)"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth_operations_total counter: %w", err)
	}

	m.oauthLinkTotal, err = meter.Int64Counter(
		"oauth_link_total",
		metric.WithDescription("Total number of Gmail account link attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_link_total counter: %w", err)
	}

	m.ingestRunsTotal, err = meter.Int64Counter(
		"ingest_runs_total",
		metric.WithDescription("Total number of ingestion runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest_runs_total counter: %w", err)
	}

	m.ingestMessagesTotal, err = meter.Int64Counter(
		"ingest_messages_total",
		metric.WithDescription("Total number of messages handled by ingestion, by result"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest_messages_total counter: %w", err)
	}

	m.ingestDuration, err = meter.Float64Histogram(
		"ingest_duration_seconds",
		metric.WithDescription("Ingestion run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingest_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records a completed HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(status)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGmailOperation records a Gmail API call.
func (m *Metrics) RecordGmailOperation(ctx context.Context, operation, result string, duration time.Duration) {
	if m == nil || m.gmailOperationsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrResult, result),
	)
	m.gmailOperationsTotal.Add(ctx, 1, attrs)
	m.gmailOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAuthOperation records an authentication operation outcome.
func (m *Metrics) RecordAuthOperation(ctx context.Context, operation, result string) {
	if m == nil || m.authOperationsTotal == nil {
		return
	}
	m.authOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrResult, result),
	))
}

// RecordOAuthLink records a Gmail account link attempt.
func (m *Metrics) RecordOAuthLink(ctx context.Context, result string) {
	if m == nil || m.oauthLinkTotal == nil {
		return
	}
	m.oauthLinkTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}

// RecordIngestRun records one ingestion run with its per-message
// outcome counts.
func (m *Metrics) RecordIngestRun(ctx context.Context, result string, stored, skipped, failed int, duration time.Duration) {
	if m == nil || m.ingestRunsTotal == nil {
		return
	}
	m.ingestRunsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
	m.ingestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrResult, result),
	))

	record := func(result string, n int) {
		if n > 0 {
			m.ingestMessagesTotal.Add(ctx, int64(n), metric.WithAttributes(
				attribute.String(attrResult, result),
			))
		}
	}
	record(ResultStored, stored)
	record(ResultSkipped, skipped)
	record(ResultFailed, failed)
}
