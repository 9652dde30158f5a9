package common

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/teemow/calslot/internal/calendar"
	"github.com/teemow/calslot/internal/instrumentation"
	"github.com/teemow/calslot/internal/server"
)

type namedSource struct{}

func (namedSource) Name() string { return "ics" }

func (namedSource) Location() *time.Location { return time.UTC }

func (namedSource) ListEvents(context.Context, time.Time, time.Time) ([]calendar.EventSummary, error) {
	return nil, nil
}

func newServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), server.Options{
		Factory: func(context.Context, string) (calendar.Source, error) { return namedSource{}, nil },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func callTool(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestInstrumentedToolHandler_NoInstrumentation(t *testing.T) {
	sc := newServerContext(t)

	called := false
	wrapped := InstrumentedToolHandler("test_tool", sc, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		called = true
		return mcp.NewToolResultText("success"), nil
	})

	result, err := wrapped(context.Background(), callTool(nil))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, called)
	assert.False(t, result.IsError)
}

func TestInstrumentedToolHandler_PassesThroughErrors(t *testing.T) {
	sc := newServerContext(t)
	expectedErr := errors.New("test error")

	wrapped := InstrumentedToolHandler("test_tool", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, expectedErr
	})
	_, err := wrapped(context.Background(), callTool(nil))
	assert.Equal(t, expectedErr, err)

	wrapped = InstrumentedToolHandler("test_tool", sc, func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("error message"), nil
	})
	result, err := wrapped(context.Background(), callTool(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestInstrumentedToolHandlerWithSource_RecordsMetricsAndAudit(t *testing.T) {
	sc := newServerContext(t)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()
	metrics, err := instrumentation.NewMetrics(mp.Meter("test"), true)
	require.NoError(t, err)
	sc.SetMetrics(metrics)

	var logs bytes.Buffer
	sc.SetAuditLogger(instrumentation.NewAuditLogger(
		slog.New(slog.NewTextHandler(&logs, nil)),
		instrumentation.AuditLoggingConfig{Enabled: true, IncludeAccount: true},
	))

	ok := InstrumentedToolHandlerWithSource("calendar_today", instrumentation.OperationListEvents, sc,
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("ok"), nil
		})
	failing := InstrumentedToolHandlerWithSource("calendar_today", instrumentation.OperationListEvents, sc,
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("feed unavailable"), nil
		})

	_, err = ok(context.Background(), callTool(map[string]interface{}{"account": "work"}))
	require.NoError(t, err)
	_, err = failing(context.Background(), callTool(map[string]interface{}{"account": "work"}))
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	byStatus := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "mcp_tool_invocations_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				status, _ := dp.Attributes.Value("status")
				account, _ := dp.Attributes.Value("account")
				assert.Equal(t, "work", account.AsString())
				byStatus[status.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"success": 1, "error": 1}, byStatus)

	out := logs.String()
	assert.Contains(t, out, "msg=tool_executed")
	assert.Contains(t, out, "msg=tool_failed")
	assert.Contains(t, out, "source=ics")
	assert.Contains(t, out, "operation=list_events")
	assert.Contains(t, out, "account=work")
	assert.Contains(t, out, `error="feed unavailable"`)
}
