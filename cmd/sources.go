package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/teemow/calslot/internal/calendar"
	"github.com/teemow/calslot/internal/google"
	"github.com/teemow/calslot/internal/instrumentation"
	"github.com/teemow/calslot/internal/logging"
	"github.com/teemow/calslot/internal/server"
)

const redisKeyPrefix = "calslot"

// sourceBuilder creates the calendar source of an account: the configured
// provider, instrumented, and cached when a cache is configured.
type sourceBuilder struct {
	cfg     Config
	tokens  google.TokenProvider
	cache   calendar.Cache
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	closers []io.Closer
	checks  map[string]server.Check
}

// newSourceBuilder connects the configured cache. The builder's build method
// is the server context's source factory; close releases the cache.
func newSourceBuilder(ctx context.Context, cfg Config, metrics *instrumentation.Metrics, logger *slog.Logger) (*sourceBuilder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := &sourceBuilder{
		cfg:     cfg,
		tokens:  cfg.TokenProvider(),
		metrics: metrics,
		logger:  logger,
		checks:  make(map[string]server.Check),
	}

	switch cfg.Cache.Type {
	case CacheMemory:
		b.cache = calendar.NewMemoryCache()
	case CacheRedis:
		rc, err := calendar.NewRedisCacheFromURL(ctx, cfg.Cache.RedisURL, redisKeyPrefix)
		if err != nil {
			return nil, err
		}
		b.cache = rc
		b.closers = append(b.closers, rc)
		b.checks["cache"] = rc.Ping
	}

	return b, nil
}

func (b *sourceBuilder) build(ctx context.Context, account string) (calendar.Source, error) {
	loc, err := b.cfg.Location()
	if err != nil {
		return nil, err
	}
	adapter := logging.NewSlogAdapter(b.logger)

	var src calendar.Source
	switch b.cfg.Source {
	case calendar.SourceICS:
		if account != google.DefaultAccount {
			return nil, fmt.Errorf("the %s source only serves the %s account", calendar.SourceICS, google.DefaultAccount)
		}
		src, err = calendar.NewICSFeed(b.cfg.ICSURL, calendar.ICSOptions{
			Location:   loc,
			OwnerEmail: b.cfg.OwnerEmail,
			Logger:     adapter,
		})
		if err != nil {
			return nil, err
		}
	default:
		client, err := calendar.NewClientForAccountWithProvider(ctx, account, b.tokens, calendar.Options{
			CalendarID:        b.cfg.CalendarID,
			Location:          loc,
			RequestsPerSecond: b.cfg.Google.RequestsPerSecond,
			Burst:             b.cfg.Google.Burst,
			Logger:            adapter,
		})
		if err != nil {
			return nil, err
		}
		if _, err := client.ResolveLocation(ctx); err != nil {
			return nil, fmt.Errorf("failed to resolve calendar time zone: %w", err)
		}
		src = client
	}

	src = calendar.NewInstrumentedSource(src, b.metrics)
	if b.cache != nil {
		scope := account + "/" + b.cfg.CalendarID
		src = calendar.NewCachedSource(src, b.cache, b.cfg.Cache.TTL, scope, adapter)
	}

	b.logger.Debug("calendar source created",
		logging.Source(src.Name()), logging.AccountHash(account), "timezone", src.Location().String())
	return src, nil
}

func (b *sourceBuilder) close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
