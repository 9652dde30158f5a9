package calendar

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/calslot/internal/google"
	"github.com/teemow/calslot/internal/logging"
)

// SourceGoogle is the Name of the Google Calendar source.
const SourceGoogle = "google"

const (
	defaultCalendarID        = "primary"
	defaultRequestsPerSecond = 5
	defaultBurst             = 10
	eventsPageSize           = 250
)

// Options configure a Google Calendar client. Zero values select defaults.
type Options struct {
	// CalendarID is the calendar to read. Defaults to "primary".
	CalendarID string

	// Location is the reference location. When nil, the calendar's own time
	// zone is used (see ResolveLocation), falling back to time.Local.
	Location *time.Location

	// RequestsPerSecond and Burst throttle calls to the Calendar API.
	RequestsPerSecond float64
	Burst             int

	Logger logging.Logger
}

func (o Options) withDefaults() Options {
	if o.CalendarID == "" {
		o.CalendarID = defaultCalendarID
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = defaultRequestsPerSecond
	}
	if o.Burst <= 0 {
		o.Burst = defaultBurst
	}
	if o.Logger == nil {
		o.Logger = logging.DefaultLogger()
	}
	return o
}

// Client wraps the Google Calendar service
type Client struct {
	svc        *calendar.Service
	account    string
	calendarID string
	limiter    *rate.Limiter
	logger     logging.Logger

	mu  sync.RWMutex
	loc *time.Location
}

var _ Source = (*Client)(nil)

// Account returns the account name this client is associated with
func (c *Client) Account() string {
	return c.account
}

// CalendarID returns the calendar this client reads.
func (c *Client) CalendarID() string {
	return c.calendarID
}

func (c *Client) Name() string { return SourceGoogle }

// Location returns the reference location.
func (c *Client) Location() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// NewClientForAccountWithProvider creates a new Calendar client with OAuth2 authentication for a specific account
// The OAuth token is retrieved from the provided token provider
func NewClientForAccountWithProvider(ctx context.Context, account string, tokenProvider google.TokenProvider, opts Options) (*Client, error) {
	if tokenProvider == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	token, err := tokenProvider.GetTokenForAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to get Google OAuth token for account %s: %w", account, err)
	}

	// The token source outlives ctx and refreshes on later requests.
	longLived := context.WithoutCancel(ctx)
	tokenSource := google.GetOAuthConfig().TokenSource(longLived, token)
	client := oauth2.NewClient(longLived, tokenSource)

	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{ForceAttemptHTTP2: false}
	}

	svc, err := calendar.NewService(longLived, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return NewClientWithService(svc, account, opts), nil
}

// NewClientForAccount creates a client for account using the file token store.
func NewClientForAccount(ctx context.Context, account string, opts Options) (*Client, error) {
	return NewClientForAccountWithProvider(ctx, account, google.NewFileTokenProvider(), opts)
}

// NewClientWithService wraps an already configured Calendar service.
func NewClientWithService(svc *calendar.Service, account string, opts Options) *Client {
	opts = opts.withDefaults()
	return &Client{
		svc:        svc,
		account:    account,
		calendarID: opts.CalendarID,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		logger:     opts.Logger,
		loc:        opts.Location,
	}
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("calendar API rate limit wait: %w", err)
	}
	return nil
}

// ResolveLocation sets the reference location to the calendar's time zone
// unless one was configured explicitly.
func (c *Client) ResolveLocation(ctx context.Context) (*time.Location, error) {
	c.mu.RLock()
	loc := c.loc
	c.mu.RUnlock()
	if loc != nil {
		return loc, nil
	}

	info, err := c.GetCalendar(ctx)
	if err != nil {
		return nil, err
	}
	loc = time.Local
	if info.TimeZone != "" {
		if l, err := time.LoadLocation(info.TimeZone); err == nil {
			loc = l
		} else {
			c.logger.Warn("unknown calendar time zone, using local time",
				"timezone", info.TimeZone, logging.KeyError, err.Error())
		}
	}

	c.mu.Lock()
	c.loc = loc
	c.mu.Unlock()
	return loc, nil
}

// GetCalendar returns metadata for the configured calendar.
func (c *Client) GetCalendar(ctx context.Context) (CalendarInfo, error) {
	if err := c.wait(ctx); err != nil {
		return CalendarInfo{}, err
	}
	entry, err := c.svc.CalendarList.Get(c.calendarID).Context(ctx).Do()
	if err != nil {
		return CalendarInfo{}, fmt.Errorf("failed to get calendar %s: %w", c.calendarID, err)
	}
	return toCalendarInfo(entry), nil
}

// ListEvents lists events in the calendar within a time range. Recurring
// events are expanded server-side; all pages are fetched.
func (c *Client) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]EventSummary, error) {
	loc := c.Location()
	var summaries []EventSummary
	pageToken := ""

	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		call := c.svc.Events.List(c.calendarID).
			Context(ctx).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(eventsPageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		events, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}

		for _, event := range events.Items {
			summary, err := toEventSummary(event, loc)
			if err != nil {
				return nil, invalidEventTime(event.Id, err)
			}
			summaries = append(summaries, summary)
		}

		if events.NextPageToken == "" {
			break
		}
		pageToken = events.NextPageToken
	}

	c.logger.Debug("listed calendar events",
		logging.KeyOperation, "calendar.list_events",
		"count", len(summaries))
	return summaries, nil
}
