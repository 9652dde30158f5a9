package common

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/calslot/internal/instrumentation"
	"github.com/teemow/calslot/internal/server"
)

// ToolHandler is the signature of MCP tool handlers.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return instrument(toolName, "", sc, handler)
}

// InstrumentedToolHandlerWithSource is like InstrumentedToolHandler but
// also records the calendar source and operation in the audit log.
func InstrumentedToolHandlerWithSource(toolName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return instrument(toolName, operation, sc, handler)
}

func instrument(toolName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		account := GetAccountFromArgs(request.GetArguments())

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			attribute.String(instrumentation.SpanAttrAccount, account))
		defer span.End()

		invocation := instrumentation.NewToolInvocation(toolName).
			WithAccount(account).
			WithSpanContext(ctx)
		if operation != "" {
			sourceName := ""
			if src, err := sc.SourceForAccount(ctx, account); err == nil {
				sourceName = src.Name()
			}
			invocation.WithSource(sourceName, operation)
		}

		result, err := handler(ctx, request)

		failure := err
		if failure == nil && result != nil && result.IsError {
			failure = errors.New(resultText(result))
		}
		if failure != nil {
			instrumentation.SetSpanError(span, failure)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		invocation.Complete(failure == nil, failure)

		sc.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), account, invocation.Duration)
		sc.AuditLogger().LogToolInvocation(invocation)

		return result, err
	}
}

func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return "tool returned an error result"
}
