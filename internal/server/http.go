package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calslot/internal/instrumentation"
)

// HTTPServerConfig configures the streamable HTTP transport.
type HTTPServerConfig struct {
	Addr    string
	Version string

	// RateLimit is the number of requests per second allowed per client on
	// the MCP endpoint. Zero disables rate limiting.
	RateLimit  float64
	RateBurst  int
	TrustProxy bool

	Metrics *instrumentation.Metrics

	// Checks are extra readiness checks, e.g. the event cache.
	Checks map[string]Check
}

// HTTPServer serves the MCP streamable HTTP endpoint at /mcp together with
// the health endpoints.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	health     *HealthChecker
	limiter    *RateLimiter
	metrics    *instrumentation.Metrics
	httpServer *http.Server
	addr       string
}

// NewHTTPServer creates an HTTP server for mcpSrv.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, sc *ServerContext, config HTTPServerConfig) (*HTTPServer, error) {
	if mcpSrv == nil {
		return nil, fmt.Errorf("MCP server is required")
	}
	if config.Addr == "" {
		config.Addr = ":8080"
	}

	s := &HTTPServer{
		mcpServer: mcpSrv,
		health:    NewHealthChecker(sc, config.Version),
		metrics:   config.Metrics,
		addr:      config.Addr,
	}
	for name, check := range config.Checks {
		s.health.AddCheck(name, check)
	}
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = int(config.RateLimit) * 2
		}
		s.limiter = NewRateLimiter(config.RateLimit, burst, config.TrustProxy, 10*time.Minute, nil)
	}
	return s, nil
}

// HealthChecker returns the health checker backing the probe endpoints.
func (s *HTTPServer) HealthChecker() *HealthChecker {
	return s.health
}

// Handler returns the complete HTTP handler.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	var mcpHandler http.Handler = mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath("/mcp"),
	)
	if s.limiter != nil {
		mcpHandler = s.limiter.Middleware(mcpHandler)
	}
	mux.Handle("/mcp", mcpHandler)
	s.health.RegisterHealthEndpoints(mux)

	return metricsMiddleware(s.metrics, mux)
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("starting MCP HTTP server", "addr", s.addr, "endpoint", "/mcp")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown marks the server as not ready and drains open connections.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.addr
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// metricsPath bounds the path label to the known routes.
func metricsPath(path string) string {
	switch path {
	case "/mcp", "/healthz", "/readyz", "/healthz/detailed":
		return path
	}
	return "other"
}

func metricsMiddleware(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, metricsPath(r.URL.Path), rec.status, time.Since(start))
	})
}
