package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/calslot/internal/calendar"
	"github.com/teemow/calslot/internal/google"
	"github.com/teemow/calslot/internal/server"
)

const (
	PrimaryCalendarURI = "calendar://primary"
	accountURIPrefix   = "calendar://accounts/"
)

// calendarDocument is the JSON body of a calendar resource.
type calendarDocument struct {
	Account  string `json:"account"`
	Source   string `json:"source"`
	ID       string `json:"id"`
	Summary  string `json:"summary"`
	TimeZone string `json:"timezone"`
}

// RegisterCalendarResources registers the calendar description resources
func RegisterCalendarResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	primary := mcp.NewResource(
		PrimaryCalendarURI,
		"Primary Calendar",
		mcp.WithResourceDescription("The default account's calendar and the time zone free slots are computed in"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(primary, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleCalendar(ctx, request.Params.URI, google.DefaultAccount, sc)
	})

	accounts := mcp.NewResourceTemplate(
		accountURIPrefix+"{account}",
		"Account Calendar",
		mcp.WithTemplateDescription("The calendar of a named account"),
		mcp.WithTemplateMIMEType("application/json"),
	)
	s.AddResourceTemplate(accounts, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		account, err := accountFromURI(request.Params.URI)
		if err != nil {
			return nil, err
		}
		return handleCalendar(ctx, request.Params.URI, account, sc)
	})

	return nil
}

func accountFromURI(uri string) (string, error) {
	account, ok := strings.CutPrefix(uri, accountURIPrefix)
	if !ok || account == "" || strings.Contains(account, "/") {
		return "", fmt.Errorf("invalid calendar resource URI: %s", uri)
	}
	return account, nil
}

func handleCalendar(ctx context.Context, uri, account string, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	src, err := sc.SourceForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no calendar available for account %s: %w", account, err)
	}

	info, err := calendar.Describe(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to describe calendar: %w", err)
	}

	doc := calendarDocument{
		Account:  account,
		Source:   src.Name(),
		ID:       info.ID,
		Summary:  info.Summary,
		TimeZone: info.TimeZone,
	}
	if doc.TimeZone == "" {
		doc.TimeZone = src.Location().String()
	}

	jsonData, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal calendar data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
