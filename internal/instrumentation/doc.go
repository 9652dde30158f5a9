// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the calslot MCP server.
//
// # Metrics
//
//   - http_requests_total, http_request_duration_seconds: streamable HTTP transport
//   - calendar_source_operations_total, calendar_source_operation_duration_seconds:
//     calls to the calendar source by source kind and operation
//   - calendar_events_fetched_total: events returned by the source
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds: tool calls
//   - availability_searches_total, availability_slots_returned: slot searches
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>), calendar source calls
// (calendar.<source>.<operation>) and slot searches (availability.find_slots).
//
// # Configuration
//
// DefaultConfig reads the usual OpenTelemetry environment variables:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - OTEL_SERVICE_NAME (default: calslot)
package instrumentation
