package calendar_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calslot/internal/availability"
	"github.com/teemow/calslot/internal/calendar"
	"github.com/teemow/calslot/internal/instrumentation"
	"github.com/teemow/calslot/internal/server"
	"github.com/teemow/calslot/internal/tools/batch"
	"github.com/teemow/calslot/internal/tools/common"
)

// Output formats of calendar_find_free_slots.
const (
	FormatText = "text"
	FormatICS  = "ics"
)

// RegisterSlotTools registers the free slot search tool.
func RegisterSlotTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	defaults := sc.Defaults()

	findSlotsTool := mcp.NewTool("calendar_find_free_slots",
		mcp.WithDescription(fmt.Sprintf(
			"Find up to %d free slots of a given length on weekdays within working hours, "+
				"starting now. Each slot starts at the beginning of a gap between busy events.",
			availability.MaxSlots)),
		accountOption,
		mcp.WithNumber("durationMinutes",
			mcp.Description(fmt.Sprintf("Slot length in minutes, %d to %d (default: %d)",
				availability.MinDurationMinutes, availability.MaxDurationMinutes, defaults.DurationMinutes)),
		),
		mcp.WithNumber("searchDays",
			mcp.Description(fmt.Sprintf("Number of calendar days to search including today, %d to %d (default: %d)",
				availability.MinSearchDays, availability.MaxSearchDays, defaults.SearchDays)),
		),
		mcp.WithNumber("workingHoursStart",
			mcp.Description(fmt.Sprintf("First working hour of the day, %d to %d (default: %d)",
				availability.MinWorkingHourFrom, availability.MaxWorkingHourFrom, defaults.WorkingHoursStart)),
		),
		mcp.WithNumber("workingHoursEnd",
			mcp.Description(fmt.Sprintf("Hour the working day ends, %d to %d (default: %d)",
				availability.MinWorkingHourTo, availability.MaxWorkingHourTo, defaults.WorkingHoursEnd)),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'text' (default) or 'ics' for an iCalendar document with one event per slot"),
			mcp.Enum(FormatText, FormatICS),
		),
	)

	s.AddTool(findSlotsTool, common.InstrumentedToolHandlerWithSource(
		"calendar_find_free_slots", instrumentation.OperationBusy, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFindFreeSlots(ctx, request, sc)
		}))

	batchTool := mcp.NewTool("calendar_batch_find_free_slots",
		mcp.WithDescription("Run the free slot search for several accounts at once and report the slots of each account separately"),
		mcp.WithString("accounts",
			mcp.Required(),
			mcp.Description("Account name (string) or array of account names"),
		),
		mcp.WithNumber("durationMinutes",
			mcp.Description(fmt.Sprintf("Slot length in minutes (default: %d)", defaults.DurationMinutes)),
		),
		mcp.WithNumber("searchDays",
			mcp.Description(fmt.Sprintf("Number of calendar days to search including today (default: %d)", defaults.SearchDays)),
		),
		mcp.WithNumber("workingHoursStart",
			mcp.Description(fmt.Sprintf("First working hour of the day (default: %d)", defaults.WorkingHoursStart)),
		),
		mcp.WithNumber("workingHoursEnd",
			mcp.Description(fmt.Sprintf("Hour the working day ends (default: %d)", defaults.WorkingHoursEnd)),
		),
	)

	s.AddTool(batchTool, common.InstrumentedToolHandler(
		"calendar_batch_find_free_slots", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBatchFindFreeSlots(ctx, request, sc)
		}))

	return nil
}

// ParseSearchParameters reads the search arguments, falling back to
// defaults for absent ones. Bounds are checked by the search itself.
func ParseSearchParameters(args map[string]interface{}, defaults availability.SearchParameters) (availability.SearchParameters, error) {
	params := defaults
	var err error
	if params.DurationMinutes, err = common.IntArg(args, "durationMinutes", defaults.DurationMinutes); err != nil {
		return params, err
	}
	if params.SearchDays, err = common.IntArg(args, "searchDays", defaults.SearchDays); err != nil {
		return params, err
	}
	if params.WorkingHoursStart, err = common.IntArg(args, "workingHoursStart", defaults.WorkingHoursStart); err != nil {
		return params, err
	}
	if params.WorkingHoursEnd, err = common.IntArg(args, "workingHoursEnd", defaults.WorkingHoursEnd); err != nil {
		return params, err
	}
	return params, nil
}

func handleFindFreeSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	account := common.GetAccountFromArgs(args)

	params, err := ParseSearchParameters(args, sc.Defaults())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format := common.StringArg(args, "format", FormatText)
	if format != FormatText && format != FormatICS {
		return mcp.NewToolResultError(fmt.Sprintf("format must be %q or %q, got %q", FormatText, FormatICS, format)), nil
	}

	src, err := getSource(ctx, account, sc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	now := sc.Now()
	slots, err := calendar.FindFreeSlots(ctx, src, now, params, sc.Metrics())
	if err != nil {
		return mcp.NewToolResultError(describeSearchError(err)), nil
	}

	if len(slots) == 0 || format == FormatText {
		return mcp.NewToolResultText(FormatSlots(slots, params)), nil
	}

	doc, err := calendar.EncodeSlotsICS(slots, "", now)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode slots: %v", err)), nil
	}
	return mcp.NewToolResultText(string(doc)), nil
}

// describeSearchError renders a failed search for the user.
func describeSearchError(err error) string {
	switch {
	case errors.Is(err, availability.ErrInvalidParameter):
		return fmt.Sprintf("Invalid search parameters: %v", err)
	case calendar.IsDataIntegrity(err):
		return fmt.Sprintf("Calendar data is inconsistent: %v", err)
	default:
		return fmt.Sprintf("Failed to find free slots: %v", err)
	}
}

func handleBatchFindFreeSlots(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	accounts, err := batch.ParseStringOrArray(args["accounts"], "accounts")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	params, err := ParseSearchParameters(args, sc.Defaults())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Reject bad parameters once instead of once per account.
	if err := params.Validate(); err != nil {
		return mcp.NewToolResultError(describeSearchError(err)), nil
	}

	now := sc.Now()
	results := batch.Process(ctx, accounts, batch.DefaultConcurrency, func(ctx context.Context, account string) (string, error) {
		src, err := getSource(ctx, account, sc)
		if err != nil {
			return "", err
		}
		slots, err := calendar.FindFreeSlots(ctx, src, now, params, sc.Metrics())
		if err != nil {
			return "", errors.New(describeSearchError(err))
		}
		return FormatSlots(slots, params), nil
	})

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}
