package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/teemow/calslot/internal/logging"
)

// SourceICS is the Name of the iCalendar feed source.
const SourceICS = "ics"

const maxFeedSize = 16 << 20

// ICSOptions configure an iCalendar feed source.
type ICSOptions struct {
	// Location is the reference location. Defaults to time.Local.
	Location *time.Location

	// OwnerEmail identifies the calendar owner among event attendees, so
	// declined and pending invitations can be recognized.
	OwnerEmail string

	HTTPClient *http.Client
	Logger     logging.Logger
}

// ICSFeed reads events from an iCalendar feed, such as a calendar's private
// address in iCal format.
type ICSFeed struct {
	url        string
	loc        *time.Location
	ownerEmail string
	httpClient *http.Client
	logger     logging.Logger
}

var _ Source = (*ICSFeed)(nil)

// NewICSFeed creates a feed source for url.
func NewICSFeed(url string, opts ICSOptions) (*ICSFeed, error) {
	if url == "" {
		return nil, fmt.Errorf("iCalendar feed URL cannot be empty")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = logging.DefaultLogger()
	}
	return &ICSFeed{
		url:        url,
		loc:        opts.Location,
		ownerEmail: strings.ToLower(opts.OwnerEmail),
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}, nil
}

func (f *ICSFeed) Name() string { return SourceICS }

func (f *ICSFeed) Location() *time.Location { return f.loc }

// ListEvents downloads the feed and returns the occurrences overlapping
// [timeMin, timeMax).
func (f *ICSFeed) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]EventSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected feed status: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return f.parse(string(body), timeMin, timeMax)
}

func (f *ICSFeed) parse(body string, timeMin, timeMax time.Time) ([]EventSummary, error) {
	if err := validateICalFormat(body); err != nil {
		return nil, err
	}

	decoder := ical.NewDecoder(strings.NewReader(body))
	var events []EventSummary
	for {
		cal, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		occurrences, err := f.expand(cal.Events(), timeMin, timeMax)
		if err != nil {
			return nil, err
		}
		events = append(events, occurrences...)
	}

	sortEvents(events)
	f.logger.Debug("parsed iCalendar feed",
		logging.KeyOperation, "ics.list_events",
		"count", len(events))
	return events, nil
}

// expand flattens recurring events into occurrences inside the window.
// Occurrences replaced by a RECURRENCE-ID override are skipped in favour of
// the override itself.
func (f *ICSFeed) expand(vevents []ical.Event, timeMin, timeMax time.Time) ([]EventSummary, error) {
	overridden := make(map[string]bool)
	for _, ev := range vevents {
		if prop := ev.Props.Get(ical.PropRecurrenceID); prop != nil {
			rid, err := prop.DateTime(f.loc)
			if err != nil {
				return nil, invalidEventTime(uidOf(ev), err)
			}
			overridden[occurrenceKey(uidOf(ev), rid)] = true
		}
	}

	var out []EventSummary
	for _, ev := range vevents {
		base, err := f.toEventSummary(ev)
		if err != nil {
			return nil, err
		}

		set, err := ev.RecurrenceSet(f.loc)
		if err != nil {
			return nil, invalidEventTime(base.ID, fmt.Errorf("recurrence rule: %w", err))
		}
		if set == nil || ev.Props.Get(ical.PropRecurrenceID) != nil {
			if overlaps(base, timeMin, timeMax) {
				out = append(out, base)
			}
			continue
		}

		length := base.End.Sub(base.Start)
		for _, start := range set.Between(timeMin.Add(-length), timeMax, true) {
			start = start.In(f.loc)
			if overridden[occurrenceKey(base.ID, start)] {
				continue
			}
			occ := base
			occ.Start = start
			occ.End = start.Add(length)
			if overlaps(occ, timeMin, timeMax) {
				out = append(out, occ)
			}
		}
	}
	return out, nil
}

func (f *ICSFeed) toEventSummary(ev ical.Event) (EventSummary, error) {
	summary := EventSummary{
		ID:          uidOf(ev),
		Summary:     propText(ev, ical.PropSummary),
		Description: propText(ev, ical.PropDescription),
		Location:    propText(ev, ical.PropLocation),
		Status:      strings.ToLower(propText(ev, ical.PropStatus)),
	}

	start, err := ev.DateTimeStart(f.loc)
	if err != nil {
		return summary, invalidEventTime(summary.ID, err)
	}
	end, err := ev.DateTimeEnd(f.loc)
	if err != nil {
		return summary, invalidEventTime(summary.ID, err)
	}
	summary.Start = start.In(f.loc)
	summary.End = end.In(f.loc)
	if end.IsZero() {
		summary.End = summary.Start
	}
	if prop := ev.Props.Get(ical.PropDateTimeStart); prop != nil && prop.ValueType() == ical.ValueDate {
		summary.AllDay = true
	}

	switch strings.ToUpper(propText(ev, ical.PropTransparency)) {
	case "TRANSPARENT":
		summary.Transparency = TransparencyTransparent
	case "OPAQUE":
		summary.Transparency = TransparencyOpaque
	}

	if prop := ev.Props.Get(ical.PropOrganizer); prop != nil {
		summary.Organizer = mailAddress(prop.Value)
	}
	for _, prop := range ev.Props[ical.PropAttendee] {
		email := mailAddress(prop.Value)
		summary.Attendees = append(summary.Attendees, AttendeeInfo{
			Email:          email,
			DisplayName:    prop.Params.Get("CN"),
			ResponseStatus: partStat(prop.Params.Get("PARTSTAT")),
			Optional:       strings.EqualFold(prop.Params.Get("ROLE"), "OPT-PARTICIPANT"),
			Organizer:      email != "" && email == summary.Organizer,
			Self:           f.ownerEmail != "" && strings.ToLower(email) == f.ownerEmail,
		})
	}

	return summary, nil
}

func validateICalFormat(body string) error {
	trimmed := strings.TrimSpace(body)
	upper := strings.ToUpper(trimmed)
	if strings.HasPrefix(upper, "<!DOCTYPE") || strings.HasPrefix(upper, "<HTML") {
		return fmt.Errorf("received HTML instead of iCalendar data - check if URL requires authentication")
	}
	if !strings.HasPrefix(upper, "BEGIN:VCALENDAR") {
		preview := trimmed
		if len(preview) > 100 {
			preview = preview[:100]
		}
		return fmt.Errorf("invalid iCalendar format - expected BEGIN:VCALENDAR, got: %s", preview)
	}
	return nil
}

func uidOf(ev ical.Event) string {
	return propText(ev, ical.PropUID)
}

func propText(ev ical.Event, name string) string {
	if prop := ev.Props.Get(name); prop != nil {
		return prop.Value
	}
	return ""
}

func occurrenceKey(uid string, start time.Time) string {
	return uid + "|" + start.UTC().Format(time.RFC3339)
}

func mailAddress(value string) string {
	if len(value) >= 7 && strings.EqualFold(value[:7], "mailto:") {
		return value[7:]
	}
	return value
}

func partStat(v string) string {
	switch strings.ToUpper(v) {
	case "ACCEPTED":
		return ResponseAccepted
	case "DECLINED":
		return ResponseDeclined
	case "TENTATIVE":
		return ResponseTentative
	case "NEEDS-ACTION", "":
		return ResponseNeedsAction
	}
	return strings.ToLower(v)
}

func overlaps(e EventSummary, timeMin, timeMax time.Time) bool {
	if e.Start.Equal(e.End) {
		return !e.Start.Before(timeMin) && e.Start.Before(timeMax)
	}
	return e.Start.Before(timeMax) && e.End.After(timeMin)
}
