// Package server holds the shared state and HTTP plumbing of the MCP server.
//
// ServerContext creates calendar sources lazily, one per account, through a
// SourceFactory, and carries the default search parameters, metrics recorder
// and audit logger used by tool handlers.
//
// HTTPServer exposes the streamable HTTP transport at /mcp next to the
// Kubernetes probes /healthz, /readyz and /healthz/detailed. The MCP endpoint
// can be rate limited per client. MetricsServer serves Prometheus metrics on
// a separate port.
package server
