package calendar_tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/teemow/calslot/internal/availability"
	"github.com/teemow/calslot/internal/calendar"
)

const (
	dayLayout  = "Mon 2006-01-02"
	timeLayout = "15:04"
)

// FormatEvents renders events as a numbered list under heading.
func FormatEvents(heading string, events []calendar.EventSummary) string {
	var b strings.Builder
	if len(events) == 0 {
		fmt.Fprintf(&b, "%s: no events\n", heading)
		return b.String()
	}

	fmt.Fprintf(&b, "%s: %d event(s)\n\n", heading, len(events))
	for i, event := range events {
		summary := event.Summary
		if summary == "" {
			summary = "(no title)"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, summary)
		fmt.Fprintf(&b, "   When: %s\n", formatEventTime(event))
		if event.Location != "" {
			fmt.Fprintf(&b, "   Location: %s\n", event.Location)
		}
		if event.Organizer != "" {
			fmt.Fprintf(&b, "   Organizer: %s\n", event.Organizer)
		}
		if event.Status != "" && event.Status != calendar.StatusConfirmed {
			fmt.Fprintf(&b, "   Status: %s\n", event.Status)
		}
		if event.Transparency == calendar.TransparencyTransparent {
			b.WriteString("   Shown as: available\n")
		}
		if resp := event.SelfResponse(); resp != "" {
			fmt.Fprintf(&b, "   Your response: %s\n", resp)
		}
		if len(event.Attendees) > 0 {
			fmt.Fprintf(&b, "   Attendees: %d\n", len(event.Attendees))
		}
		if event.MeetLink != "" {
			fmt.Fprintf(&b, "   Meet: %s\n", event.MeetLink)
		}
		fmt.Fprintf(&b, "   ID: %s\n\n", event.ID)
	}
	return b.String()
}

func formatEventTime(event calendar.EventSummary) string {
	if event.AllDay {
		last := event.End.AddDate(0, 0, -1)
		if !last.After(event.Start) {
			return event.Start.Format(dayLayout) + " (all day)"
		}
		return fmt.Sprintf("%s to %s (all day)", event.Start.Format(dayLayout), last.Format(dayLayout))
	}
	if availability.DayOf(event.Start).Start().Equal(availability.DayOf(event.End).Start()) {
		return fmt.Sprintf("%s %s-%s", event.Start.Format(dayLayout),
			event.Start.Format(timeLayout), event.End.Format(timeLayout))
	}
	return fmt.Sprintf("%s %s to %s %s",
		event.Start.Format(dayLayout), event.Start.Format(timeLayout),
		event.End.Format(dayLayout), event.End.Format(timeLayout))
}

// NoSlotsMessage is returned when a search finds no availability.
const NoSlotsMessage = "No available slots found"

// FormatSlots renders free slots as a numbered list.
func FormatSlots(slots []availability.FreeSlot, params availability.SearchParameters) string {
	if len(slots) == 0 {
		return fmt.Sprintf("%s for %d minutes within the next %d day(s) between %02d:00 and %02d:00.\n",
			NoSlotsMessage, params.DurationMinutes, params.SearchDays,
			params.WorkingHoursStart, params.WorkingHoursEnd)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d available slot(s) of %d minutes:\n\n", len(slots), params.DurationMinutes)
	for i, slot := range slots {
		fmt.Fprintf(&b, "%d. %s %s-%s (%s)\n", i+1,
			slot.Start.Format(dayLayout), slot.Start.Format(timeLayout), slot.End.Format(timeLayout),
			slot.Start.Location())
	}
	return b.String()
}

// DayHeading names the day of t for view headings, e.g. "Today (Mon 2025-01-06)".
func DayHeading(prefix string, t time.Time) string {
	return fmt.Sprintf("%s (%s)", prefix, t.Format(dayLayout))
}
