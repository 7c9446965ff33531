// ABOUTME: Core telemetry abstraction over OpenTelemetry used by the connector, store and gRPC service
// ABOUTME: Provides metric recording, tracing and lifecycle management with a no-op implementation

package telemetry

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry provides the core abstraction over OpenTelemetry.
// Components use this interface to record metrics and spans without depending directly on OpenTelemetry.
type Telemetry interface {
	// RecordHistogram records a histogram value with optional attributes.
	RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue)

	// RecordCounter records a counter increment with optional attributes.
	RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue)

	// StartSpan creates a new tracing span with the given name and attributes.
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)

	// Handler returns the HTTP handler serving scraped metrics, or nil when none is configured.
	Handler() http.Handler

	// Shutdown gracefully shuts down all telemetry providers and exports remaining data.
	Shutdown(ctx context.Context) error
}

// NoopTelemetry provides a no-operation implementation of Telemetry for testing or disabled scenarios.
type NoopTelemetry struct{}

// NewNoop creates a new no-operation telemetry instance.
func NewNoop() Telemetry {
	return &NoopTelemetry{}
}

// RecordHistogram is a no-op.
func (n *NoopTelemetry) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) {
}

// RecordCounter is a no-op.
func (n *NoopTelemetry) RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) {
}

// StartSpan returns the original context and the span already in it.
func (n *NoopTelemetry) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

// Handler returns nil.
func (n *NoopTelemetry) Handler() http.Handler {
	return nil
}

// Shutdown is a no-op.
func (n *NoopTelemetry) Shutdown(ctx context.Context) error {
	return nil
}

// RecordDuration records the time elapsed since start, in seconds, in a histogram.
func RecordDuration(ctx context.Context, tel Telemetry, name string, start time.Time, attrs ...attribute.KeyValue) {
	tel.RecordHistogram(ctx, name, time.Since(start).Seconds(), attrs...)
}

// RecordError marks a span as failed when err is not nil.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// EndSpan records err on the span and ends it.
func EndSpan(span trace.Span, err error) {
	RecordError(span, err)
	span.End()
}

// Metric names
const (
	MetricCursorRows      = "presto_dynamodb.cursor.rows"
	MetricCursorBatches   = "presto_dynamodb.cursor.batches"
	MetricScanDuration    = "presto_dynamodb.scan.duration"
	MetricScanItems       = "presto_dynamodb.scan.items"
	MetricStoreOperations = "presto_dynamodb.store.operations.total"
	MetricStoreDuration   = "presto_dynamodb.store.operation.duration"
	MetricRPCRequests     = "presto_dynamodb.rpc.requests.total"
	MetricMetadataLookups = "presto_dynamodb.metadata.lookups.total"
)

// Span names
const (
	SpanCursor      = "presto_dynamodb.cursor"
	SpanScan        = "presto_dynamodb.scan"
	SpanTableLookup = "presto_dynamodb.table.lookup"
	SpanInferSchema = "presto_dynamodb.table.infer"
	SpanRPCPrefix   = "presto_dynamodb.rpc."
)

// Common attribute keys for consistent naming across components
const (
	AttrOperationType = "operation.type"
	AttrComponent     = "component"
	AttrStatus        = "status"
	AttrTable         = "table.name"
	AttrSegment       = "scan.segment"
	AttrCacheHit      = "cache.hit"
	AttrMethod        = "rpc.method"
	AttrRows          = "cursor.rows"
	AttrBatches       = "cursor.batches"
	AttrSampledItems  = "schema.sampled_items"
)

// Common attribute values
const (
	OpTypeScan     = "scan"
	OpTypePut      = "put"
	OpTypeDescribe = "describe"
	OpTypeCreate   = "create"
	OpTypeList     = "list"

	StatusSuccess = "success"
	StatusError   = "error"

	ComponentCursor   = "cursor"
	ComponentClient   = "client"
	ComponentStore    = "store"
	ComponentService  = "service"
	ComponentMetadata = "metadata"
)

// Status returns the status attribute value for an error
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
