package calendar_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calslot/internal/calendar"
	"github.com/teemow/calslot/internal/instrumentation"
	"github.com/teemow/calslot/internal/server"
	"github.com/teemow/calslot/internal/tools/common"
)

const (
	defaultInvitationDays = 14
	maxInvitationDays     = 90
)

// RegisterViewTools registers the read-only calendar view tools.
func RegisterViewTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	todayTool := mcp.NewTool("calendar_today",
		mcp.WithDescription("List today's events, from local midnight to midnight in the calendar's time zone"),
		accountOption,
	)
	s.AddTool(todayTool, common.InstrumentedToolHandlerWithSource(
		"calendar_today", instrumentation.OperationListEvents, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleToday(ctx, request, sc)
		}))

	weekTool := mcp.NewTool("calendar_this_week",
		mcp.WithDescription("List the events of the current week, Monday to Sunday"),
		accountOption,
	)
	s.AddTool(weekTool, common.InstrumentedToolHandlerWithSource(
		"calendar_this_week", instrumentation.OperationListEvents, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleThisWeek(ctx, request, sc)
		}))

	invitationsTool := mcp.NewTool("calendar_pending_invitations",
		mcp.WithDescription("List upcoming invitations you have not responded to yet"),
		accountOption,
		mcp.WithNumber("days",
			mcp.Description(fmt.Sprintf("Number of days to look ahead (default: %d, max: %d)", defaultInvitationDays, maxInvitationDays)),
		),
	)
	s.AddTool(invitationsTool, common.InstrumentedToolHandlerWithSource(
		"calendar_pending_invitations", instrumentation.OperationListEvents, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handlePendingInvitations(ctx, request, sc)
		}))

	listEventsTool := mcp.NewTool("calendar_list_events",
		mcp.WithDescription("List/search calendar events within a time range"),
		accountOption,
		mcp.WithString("timeMin",
			mcp.Required(),
			mcp.Description("Start time for the range (RFC3339 format, e.g., '2025-01-01T00:00:00Z')"),
		),
		mcp.WithString("timeMax",
			mcp.Required(),
			mcp.Description("End time for the range (RFC3339 format, e.g., '2025-01-31T23:59:59Z')"),
		),
		mcp.WithString("query",
			mcp.Description("Optional text matched against title, description, location and attendees"),
		),
	)
	s.AddTool(listEventsTool, common.InstrumentedToolHandlerWithSource(
		"calendar_list_events", instrumentation.OperationListEvents, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListEvents(ctx, request, sc)
		}))

	return nil
}

func handleToday(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	account := common.GetAccountFromArgs(request.GetArguments())
	src, err := getSource(ctx, account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	now := sc.Now().In(src.Location())
	events, err := calendar.Today(ctx, src, now)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list today's events: %v", err)), nil
	}
	return mcp.NewToolResultText(FormatEvents(DayHeading("Today", now), events)), nil
}

func handleThisWeek(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	account := common.GetAccountFromArgs(request.GetArguments())
	src, err := getSource(ctx, account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	now := sc.Now().In(src.Location())
	events, err := calendar.ThisWeek(ctx, src, now)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list this week's events: %v", err)), nil
	}
	monday, _ := calendar.WeekRange(now)
	return mcp.NewToolResultText(FormatEvents(DayHeading("Week of", monday), events)), nil
}

func handlePendingInvitations(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(args)

	days, err := common.IntArg(args, "days", defaultInvitationDays)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if days < 1 || days > maxInvitationDays {
		return mcp.NewToolResultError(fmt.Sprintf("days must be between 1 and %d, got %d", maxInvitationDays, days)), nil
	}

	src, err := getSource(ctx, account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	events, err := calendar.PendingInvitations(ctx, src, sc.Now(), days)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list pending invitations: %v", err)), nil
	}
	heading := fmt.Sprintf("Pending invitations in the next %d day(s)", days)
	return mcp.NewToolResultText(FormatEvents(heading, events)), nil
}

func handleListEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(args)

	timeMin, err := common.TimeArg(args, "timeMin")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	timeMax, err := common.TimeArg(args, "timeMax")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !timeMax.After(timeMin) {
		return mcp.NewToolResultError("timeMax must be after timeMin"), nil
	}
	query := common.StringArg(args, "query", "")

	src, err := getSource(ctx, account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	loc := src.Location()
	events, err := src.ListEvents(ctx, timeMin.In(loc), timeMax.In(loc))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list events: %v", err)), nil
	}
	events = calendar.FilterEvents(events, query)

	heading := fmt.Sprintf("Events from %s to %s", timeMin.In(loc).Format("2006-01-02 15:04"), timeMax.In(loc).Format("2006-01-02 15:04"))
	if query != "" {
		heading += fmt.Sprintf(" matching %q", query)
	}
	return mcp.NewToolResultText(FormatEvents(heading, events)), nil
}
