package calendar

import (
	"fmt"
	"strings"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// Event status and transparency values shared by the Google API and iCalendar.
const (
	StatusConfirmed = "confirmed"
	StatusTentative = "tentative"
	StatusCancelled = "cancelled"

	TransparencyOpaque      = "opaque"
	TransparencyTransparent = "transparent"

	ResponseNeedsAction = "needsAction"
	ResponseDeclined    = "declined"
	ResponseTentative   = "tentative"
	ResponseAccepted    = "accepted"
)

// EventSummary represents a simplified calendar event for listing
type EventSummary struct {
	ID           string         `json:"id"`
	Summary      string         `json:"summary,omitempty"`
	Description  string         `json:"description,omitempty"`
	Location     string         `json:"location,omitempty"`
	Start        time.Time      `json:"start"`
	End          time.Time      `json:"end"`
	AllDay       bool           `json:"allDay,omitempty"`
	Creator      string         `json:"creator,omitempty"`
	Organizer    string         `json:"organizer,omitempty"`
	Status       string         `json:"status,omitempty"`
	Transparency string         `json:"transparency,omitempty"`
	Attendees    []AttendeeInfo `json:"attendees,omitempty"`
	MeetLink     string         `json:"meetLink,omitempty"`
	EventType    string         `json:"eventType,omitempty"`
}

// AttendeeInfo represents information about an event attendee
type AttendeeInfo struct {
	Email          string `json:"email"`
	DisplayName    string `json:"displayName,omitempty"`
	ResponseStatus string `json:"responseStatus,omitempty"` // "needsAction", "declined", "tentative", "accepted"
	Optional       bool   `json:"optional,omitempty"`
	Organizer      bool   `json:"organizer,omitempty"`
	// Self marks the calendar owner's own entry.
	Self bool `json:"self,omitempty"`
}

// SelfResponse returns the calendar owner's response status, or "" when the
// owner is not listed as an attendee.
func (e EventSummary) SelfResponse() string {
	for _, a := range e.Attendees {
		if a.Self {
			return a.ResponseStatus
		}
	}
	return ""
}

// Matches reports whether query occurs in the summary, description or
// location, ignoring case. An empty query matches everything.
func (e EventSummary) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, field := range []string{e.Summary, e.Description, e.Location} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// CalendarInfo represents information about a calendar
type CalendarInfo struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	TimeZone    string `json:"timeZone"`
	Primary     bool   `json:"primary"`
	AccessRole  string `json:"accessRole,omitempty"` // "owner", "writer", "reader", "freeBusyReader"
}

// toEventSummary converts a Google Calendar event, resolving its times in loc.
// All-day events span local midnight to local midnight.
func toEventSummary(event *calendar.Event, loc *time.Location) (EventSummary, error) {
	if event == nil {
		return EventSummary{}, nil
	}

	summary := EventSummary{
		ID:           event.Id,
		Summary:      event.Summary,
		Description:  event.Description,
		Location:     event.Location,
		Status:       event.Status,
		Transparency: event.Transparency,
		EventType:    event.EventType,
	}

	var err error
	if summary.Start, summary.AllDay, err = parseEventTime(event.Start, loc); err != nil {
		return summary, fmt.Errorf("start: %w", err)
	}
	if summary.End, _, err = parseEventTime(event.End, loc); err != nil {
		return summary, fmt.Errorf("end: %w", err)
	}

	if event.Creator != nil {
		summary.Creator = event.Creator.Email
	}
	if event.Organizer != nil {
		summary.Organizer = event.Organizer.Email
	}

	for _, att := range event.Attendees {
		summary.Attendees = append(summary.Attendees, AttendeeInfo{
			Email:          att.Email,
			DisplayName:    att.DisplayName,
			ResponseStatus: att.ResponseStatus,
			Optional:       att.Optional,
			Organizer:      att.Organizer,
			Self:           att.Self,
		})
	}

	if event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				summary.MeetLink = ep.Uri
				break
			}
		}
	}

	return summary, nil
}

func parseEventTime(edt *calendar.EventDateTime, loc *time.Location) (t time.Time, allDay bool, err error) {
	if edt == nil {
		return time.Time{}, false, fmt.Errorf("missing time")
	}
	switch {
	case edt.DateTime != "":
		t, err = time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.In(loc), false, nil
	case edt.Date != "":
		t, err = time.ParseInLocation("2006-01-02", edt.Date, loc)
		return t, true, err
	}
	return time.Time{}, false, fmt.Errorf("event time has neither date nor dateTime")
}

// toCalendarInfo converts a Google Calendar list entry to CalendarInfo
func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	if entry == nil {
		return CalendarInfo{}
	}
	return CalendarInfo{
		ID:          entry.Id,
		Summary:     entry.Summary,
		Description: entry.Description,
		TimeZone:    entry.TimeZone,
		Primary:     entry.Primary,
		AccessRole:  entry.AccessRole,
	}
}
