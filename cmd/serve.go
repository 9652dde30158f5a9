package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calslot/internal/calendar"
	"github.com/teemow/calslot/internal/instrumentation"
	"github.com/teemow/calslot/internal/logging"
	"github.com/teemow/calslot/internal/resources"
	"github.com/teemow/calslot/internal/server"
	"github.com/teemow/calslot/internal/tools/calendar_tools"
	"github.com/teemow/calslot/internal/tools/google_tools"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server providing calendar views and
free slot search to AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport at /mcp, with /healthz,
    /readyz and /healthz/detailed

Metrics:
  With the streamable-http transport, Prometheus metrics are served on a
  dedicated port (--metrics-addr). Telemetry exporters are configured with
  the OTEL_* and METRICS_* environment variables.

Google accounts:
  Tokens are created with "calslot auth url" and "calslot auth save".
  Every tool accepts an optional account argument.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().Bool("debug", false, "Enable debug logging")
	cmd.Flags().String("transport", TransportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().String("http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().Float64("rate-limit", 0, "Requests per second allowed per client on /mcp (0 disables)")
	cmd.Flags().Int("rate-burst", 0, "Burst size of the per-client rate limit (default: twice the rate)")
	cmd.Flags().Bool("trust-proxy", false, "Use X-Forwarded-For/X-Real-IP to identify clients for rate limiting")
	cmd.Flags().Bool("metrics-enabled", true, "Enable the metrics server on a dedicated port")
	cmd.Flags().String("metrics-addr", ":9090", "Metrics server address")
	addSourceFlags(cmd)

	return cmd
}

func runServe(ctx context.Context, cfg Config) error {
	shutdownCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout carries the protocol on stdio, so logs always go to stderr.
	logger := logging.NewLogger(os.Stderr, cfg.Debug)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var metrics *instrumentation.Metrics
	var auditLogger *instrumentation.AuditLogger
	if provider.Enabled() {
		metrics = provider.Metrics()
		auditLogger = instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging)
	}

	sources, err := newSourceBuilder(shutdownCtx, cfg, metrics, logger)
	if err != nil {
		return fmt.Errorf("failed to set up calendar source: %w", err)
	}
	defer func() {
		if err := sources.close(); err != nil {
			logger.Warn("error closing calendar cache", logging.Err(err))
		}
	}()

	serverContext, err := server.NewServerContext(shutdownCtx, server.Options{
		Factory:     sources.build,
		Defaults:    cfg.SearchDefaults(),
		Metrics:     metrics,
		AuditLogger: auditLogger,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("error during server context shutdown", logging.Err(err))
		}
	}()

	// The auth tools only make sense when calendars come from Google.
	var tokens google_tools.TokenSaver
	if cfg.Source == calendar.SourceGoogle {
		tokens = cfg.TokenProvider()
	}

	mcpSrv, err := newMCPServer(serverContext, tokens)
	if err != nil {
		return err
	}

	switch cfg.Transport {
	case TransportStdio:
		return runStdioServer(mcpSrv)
	case TransportStreamableHTTP:
		var metricsServer *server.MetricsServer
		if cfg.Metrics.Enabled && provider.Enabled() && provider.PrometheusEnabled() {
			metricsServer, err = startMetricsServer(cfg.Metrics.Addr, provider, logger)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := metricsServer.Shutdown(ctx); err != nil {
					logger.Warn("error during metrics server shutdown", logging.Err(err))
				}
			}()
		}
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, cfg, sources.checks, metrics, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", cfg.Transport)
	}
}

// newMCPServer creates the MCP server with all tools and resources registered.
// The Google auth tools are registered only when tokens is non-nil.
func newMCPServer(sc *server.ServerContext, tokens google_tools.TokenSaver) (*mcpserver.MCPServer, error) {
	mcpSrv := mcpserver.NewMCPServer("calslot", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
	if err := registerAll(mcpSrv, sc, tokens); err != nil {
		return nil, err
	}
	return mcpSrv, nil
}

func registerAll(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, tokens google_tools.TokenSaver) error {
	type registration struct {
		name     string
		register func() error
	}

	registrations := []registration{
		{
			name: "Calendar tools",
			register: func() error {
				return calendar_tools.RegisterCalendarTools(mcpSrv, sc)
			},
		},
		{
			name: "Calendar resources",
			register: func() error {
				return resources.RegisterCalendarResources(mcpSrv, sc)
			},
		},
	}
	if tokens != nil {
		registrations = append(registrations, registration{
			name: "Google auth tools",
			register: func() error {
				return google_tools.RegisterGoogleTools(mcpSrv, sc, tokens)
			},
		})
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}
	return nil
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func startMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		logger.Info("metrics server started", "addr", metricsServer.Addr())
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, cfg Config, checks map[string]server.Check, metrics *instrumentation.Metrics, logger *slog.Logger) error {
	httpServer, err := server.NewHTTPServer(mcpSrv, sc, server.HTTPServerConfig{
		Addr:       cfg.HTTPAddr,
		Version:    version,
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
		TrustProxy: cfg.TrustProxy,
		Metrics:    metrics,
		Checks:     checks,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	logger.Info("streamable HTTP server starting",
		"addr", cfg.HTTPAddr,
		"mcp_endpoint", "/mcp",
		"health_endpoints", "/healthz, /readyz, /healthz/detailed",
		"source", cfg.Source)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
