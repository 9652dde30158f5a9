package calendar_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calslot/internal/calendar"
	"github.com/teemow/calslot/internal/google"
	"github.com/teemow/calslot/internal/server"
)

var accountOption = mcp.WithString("account",
	mcp.Description("Account name (default: 'default'). Used to manage multiple Google accounts."),
)

// getSource retrieves or creates the calendar source for account. A missing
// token yields the authorization instructions.
func getSource(ctx context.Context, account string, sc *server.ServerContext) (calendar.Source, error) {
	src, err := sc.SourceForAccount(ctx, account)
	if errors.Is(err, google.ErrNoToken) {
		return nil, errors.New(google.GetAuthenticationErrorMessage(account))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open calendar for account %s: %w", account, err)
	}
	return src, nil
}

// RegisterCalendarTools registers all calendar tools with the MCP server
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := RegisterViewTools(s, sc); err != nil {
		return fmt.Errorf("failed to register view tools: %w", err)
	}
	if err := RegisterSlotTools(s, sc); err != nil {
		return fmt.Errorf("failed to register slot tools: %w", err)
	}
	return nil
}
