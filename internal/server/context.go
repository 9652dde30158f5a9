package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/teemow/calslot/internal/availability"
	"github.com/teemow/calslot/internal/calendar"
	"github.com/teemow/calslot/internal/google"
	"github.com/teemow/calslot/internal/instrumentation"
	"github.com/teemow/calslot/internal/logging"
)

// ErrShutdown is returned when a source is requested after Shutdown.
var ErrShutdown = errors.New("server is shutting down")

// SourceFactory builds the calendar source for an account.
type SourceFactory func(ctx context.Context, account string) (calendar.Source, error)

// Options configure a ServerContext.
type Options struct {
	// Factory creates calendar sources lazily, once per account. Required.
	// Its ctx ends with the request that triggered the build, so anything
	// the source keeps for later use must not depend on that cancellation.
	Factory SourceFactory

	// Defaults are the search parameters used when a tool call omits them.
	Defaults availability.SearchParameters

	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger
	Logger      *slog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// ServerContext holds the shared state of the MCP server.
type ServerContext struct {
	ctx     context.Context
	cancel  context.CancelFunc
	factory SourceFactory
	sources map[string]calendar.Source // Maps account name to calendar source
	builds  singleflight.Group         // One factory call per account at a time

	defaults availability.SearchParameters
	logger   *slog.Logger
	now      func() time.Time

	// mu guards sources and shutdown. It is never held across a factory call.
	mu       sync.RWMutex
	shutdown bool

	obsMu       sync.RWMutex
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Factory == nil {
		return nil, fmt.Errorf("calendar source factory is required")
	}
	if opts.Defaults == (availability.SearchParameters{}) {
		opts.Defaults = availability.DefaultSearchParameters()
	}
	if err := opts.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default search parameters: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:         shutdownCtx,
		cancel:      cancel,
		factory:     opts.Factory,
		sources:     make(map[string]calendar.Source),
		defaults:    opts.Defaults,
		metrics:     opts.Metrics,
		auditLogger: opts.AuditLogger,
		logger:      opts.Logger,
		now:         opts.Now,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// SourceForAccount returns the calendar source for a specific account,
// creating and caching it on first use. Concurrent first requests for one
// account share a single factory call; requests for other accounts do not
// wait on it. The factory runs with the caller's ctx, also cancelled on
// Shutdown.
func (sc *ServerContext) SourceForAccount(ctx context.Context, account string) (calendar.Source, error) {
	if account == "" {
		account = google.DefaultAccount
	}

	for retried := false; ; retried = true {
		if src, ok, err := sc.lookupSource(account); ok || err != nil {
			return src, err
		}

		ch := sc.builds.DoChan(account, func() (any, error) {
			return sc.buildSource(ctx, account)
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err == nil {
				return res.Val.(calendar.Source), nil
			}
			// A shared build aborted by another caller's context is retried.
			if !retried && res.Shared && ctx.Err() == nil && isContextError(res.Err) {
				continue
			}
			return nil, res.Err
		}
	}
}

func (sc *ServerContext) buildSource(ctx context.Context, account string) (calendar.Source, error) {
	if src, ok, err := sc.lookupSource(account); ok || err != nil {
		return src, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sc.ctx, cancel)
	defer stop()

	src, err := sc.factory(ctx, account)
	if err != nil {
		sc.logger.Warn("failed to create calendar source",
			logging.AccountHash(account), logging.Err(err))
		return nil, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.shutdown {
		return nil, ErrShutdown
	}
	if existing, ok := sc.sources[account]; ok {
		return existing, nil
	}
	sc.sources[account] = src
	return src, nil
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// lookupSource returns the cached source for account. ok is false when none
// has been built yet.
func (sc *ServerContext) lookupSource(account string) (calendar.Source, bool, error) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	if sc.shutdown {
		return nil, false, ErrShutdown
	}
	src, ok := sc.sources[account]
	return src, ok, nil
}

// Source returns the calendar source for the default account
func (sc *ServerContext) Source(ctx context.Context) (calendar.Source, error) {
	return sc.SourceForAccount(ctx, google.DefaultAccount)
}

// SetSourceForAccount sets the calendar source for a specific account
func (sc *ServerContext) SetSourceForAccount(account string, src calendar.Source) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.sources[account] = src
}

// SourceCount returns the number of initialized sources.
func (sc *ServerContext) SourceCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.sources)
}

// Defaults returns the default search parameters.
func (sc *ServerContext) Defaults() availability.SearchParameters {
	return sc.defaults
}

// Now returns the current time.
func (sc *ServerContext) Now() time.Time {
	return sc.now()
}

// Metrics returns the metrics recorder, or nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.obsMu.RLock()
	defer sc.obsMu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder used by tool handlers.
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.obsMu.Lock()
	defer sc.obsMu.Unlock()
	sc.metrics = m
}

// AuditLogger returns the audit logger, or nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.obsMu.RLock()
	defer sc.obsMu.RUnlock()
	return sc.auditLogger
}

// SetAuditLogger sets the audit logger used by tool handlers.
func (sc *ServerContext) SetAuditLogger(al *instrumentation.AuditLogger) {
	sc.obsMu.Lock()
	defer sc.obsMu.Unlock()
	sc.auditLogger = al
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
