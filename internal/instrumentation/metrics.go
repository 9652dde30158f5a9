package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrSource    = "source"
	attrTool      = "tool"
	attrAccount   = "account"
	attrOutcome   = "outcome"
)

var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}

// Metrics provides methods for recording observability metrics. A zero
// Metrics is a valid no-op recorder.
type Metrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	sourceOperationsTotal   metric.Int64Counter
	sourceOperationDuration metric.Float64Histogram
	eventsFetchedTotal      metric.Int64Counter

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	searchesTotal  metric.Int64Counter
	slotsReturned  metric.Int64Histogram
	searchDuration metric.Float64Histogram

	detailedLabels bool
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	var err error
	counter := func(name, desc, unit string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		if err != nil {
			err = fmt.Errorf("failed to create %s counter: %w", name, err)
		}
		return c
	}
	seconds := func(name, desc string, buckets ...float64) metric.Float64Histogram {
		if err != nil {
			return nil
		}
		var h metric.Float64Histogram
		h, err = meter.Float64Histogram(name,
			metric.WithDescription(desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(buckets...))
		if err != nil {
			err = fmt.Errorf("failed to create %s histogram: %w", name, err)
		}
		return h
	}

	m.httpRequestsTotal = counter("http_requests_total", "Total number of HTTP requests", "{request}")
	m.httpRequestDuration = seconds("http_request_duration_seconds", "HTTP request duration in seconds",
		0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0)

	m.sourceOperationsTotal = counter("calendar_source_operations_total", "Total number of calendar source operations", "{operation}")
	m.sourceOperationDuration = seconds("calendar_source_operation_duration_seconds", "Calendar source operation duration in seconds", durationBuckets...)
	m.eventsFetchedTotal = counter("calendar_events_fetched_total", "Total number of events returned by calendar sources", "{event}")

	m.toolInvocationsTotal = counter("mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}")
	m.toolDuration = seconds("mcp_tool_duration_seconds", "MCP tool execution duration in seconds", durationBuckets...)

	m.searchesTotal = counter("availability_searches_total", "Total number of free slot searches by outcome", "{search}")
	m.searchDuration = seconds("availability_search_duration_seconds", "Free slot search duration in seconds, including the calendar fetch", durationBuckets...)
	if err != nil {
		return nil, err
	}

	m.slotsReturned, err = meter.Int64Histogram("availability_slots_returned",
		metric.WithDescription("Number of slots returned per successful search"),
		metric.WithUnit("{slot}"),
		metric.WithExplicitBucketBoundaries(0, 1, 2, 3, 4, 5))
	if err != nil {
		return nil, fmt.Errorf("failed to create availability_slots_returned histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordSourceOperation records a call to a calendar source.
//
// Parameters:
//   - source: source kind ("google", "ics")
//   - operation: "list_events", "get_calendar", ...
//   - status: "success" or "error"
func (m *Metrics) RecordSourceOperation(ctx context.Context, source, operation, status string, duration time.Duration) {
	if m == nil || m.sourceOperationsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrSource, source),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.sourceOperationsTotal.Add(ctx, 1, attrs)
	m.sourceOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordEventsFetched counts events returned by a source.
func (m *Metrics) RecordEventsFetched(ctx context.Context, source string, count int) {
	if m == nil || m.eventsFetchedTotal == nil || count <= 0 {
		return
	}
	m.eventsFetchedTotal.Add(ctx, int64(count), metric.WithAttributes(attribute.String(attrSource, source)))
}

// RecordToolInvocation records an MCP tool invocation. The account label is
// only attached when detailed labels are enabled.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status, account string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil {
		return
	}
	kv := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && account != "" {
		kv = append(kv, attribute.String(attrAccount, account))
	}
	attrs := metric.WithAttributes(kv...)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordAvailabilitySearch records the outcome of a free slot search. The
// slot count is only recorded for searches that reached the engine.
func (m *Metrics) RecordAvailabilitySearch(ctx context.Context, outcome string, slots int, duration time.Duration) {
	if m == nil || m.searchesTotal == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(attrOutcome, outcome))
	m.searchesTotal.Add(ctx, 1, attrs)
	m.searchDuration.Record(ctx, duration.Seconds(), attrs)
	if outcome == SearchFound || outcome == SearchEmpty {
		m.slotsReturned.Record(ctx, int64(slots))
	}
}
