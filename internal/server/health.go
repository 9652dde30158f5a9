package server

import (
	"context"
	"encoding/json"
	"maps"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnavailable  = "unavailable"

	defaultCheckTimeout = 2 * time.Second

	// CheckCalendar is the dependency check that builds the default
	// account's calendar source.
	CheckCalendar = "calendar"
)

// Check reports whether a dependency is usable. A nil error means healthy.
type Check func(ctx context.Context) error

// HealthChecker serves the liveness, readiness and detailed health
// endpoints. Readiness runs every registered dependency check; when a
// server context is given the default calendar source is one of them.
type HealthChecker struct {
	ready atomic.Bool

	serverContext *ServerContext
	startTime     time.Time
	version       string
	timeout       time.Duration

	mu     sync.RWMutex
	checks map[string]Check
}

// NewHealthChecker creates a HealthChecker that starts out ready.
func NewHealthChecker(sc *ServerContext, version string) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
		version:       version,
		timeout:       defaultCheckTimeout,
		checks:        make(map[string]Check),
	}
	if sc != nil {
		h.checks[CheckCalendar] = func(ctx context.Context) error {
			_, err := sc.Source(ctx)
			return err
		}
	}
	h.ready.Store(true)
	return h
}

// AddCheck registers a dependency check under name, replacing any check
// with the same name.
func (h *HealthChecker) AddCheck(name string, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) shuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Uptime  string            `json:"uptime"`
	Sources int               `json:"sources"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// evaluate returns the per-check results and whether all of them passed.
// Dependency checks are skipped while shutting down.
func (h *HealthChecker) evaluate(ctx context.Context) (map[string]string, bool) {
	results := map[string]string{"ready": healthStatusOK, "shutdown": healthStatusOK}
	ok := true

	if !h.ready.Load() {
		results["ready"] = healthStatusNotReady
		ok = false
	}
	if h.shuttingDown() {
		results["shutdown"] = healthStatusShuttingDown
		return results, false
	}

	h.mu.RLock()
	checks := maps.Clone(h.checks)
	h.mu.RUnlock()

	for _, name := range slices.Sorted(maps.Keys(checks)) {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := checks[name](checkCtx)
		cancel()
		if err != nil {
			results[name] = healthStatusUnavailable
			ok = false
			continue
		}
		results[name] = healthStatusOK
	}
	return results, ok
}

func writeHealth(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// LivenessHandler serves /healthz. It only reports that the process runs.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler serves /readyz.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, ok := h.evaluate(r.Context())
		if !ok {
			writeHealth(w, http.StatusServiceUnavailable, HealthResponse{Status: healthStatusNotReady, Checks: checks})
			return
		}
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK, Checks: checks})
	})
}

// DetailedHealthHandler serves /healthz/detailed.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, ok := h.evaluate(r.Context())
		response := DetailedHealthResponse{
			Status:  healthStatusOK,
			Version: h.version,
			Uptime:  time.Since(h.startTime).Truncate(time.Second).String(),
			Checks:  checks,
		}
		if h.serverContext != nil {
			response.Sources = h.serverContext.SourceCount()
		}

		code := http.StatusOK
		switch {
		case h.shuttingDown():
			response.Status = healthStatusShuttingDown
			code = http.StatusServiceUnavailable
		case !ok:
			response.Status = healthStatusNotReady
			code = http.StatusServiceUnavailable
		}
		writeHealth(w, code, response)
	})
}

// RegisterHealthEndpoints registers the three health endpoints on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
