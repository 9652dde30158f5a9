package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teemow/calslot/internal/availability"
)

// Source lists the events of a single calendar.
type Source interface {
	// Name identifies the source kind, e.g. "google" or "ics".
	Name() string

	// Location is the reference location all event times are expressed in.
	Location() *time.Location

	// ListEvents returns the events overlapping [timeMin, timeMax), with
	// recurring events flattened into single occurrences.
	ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]EventSummary, error)
}

// IsBusy reports whether the event blocks the owner's time. Cancelled,
// declined and "show as available" events do not.
func IsBusy(e EventSummary) bool {
	if e.Status == StatusCancelled {
		return false
	}
	if e.Transparency == TransparencyTransparent {
		return false
	}
	return e.SelfResponse() != ResponseDeclined
}

// BusyIntervals converts events into busy intervals. An event whose end is
// before its start is reported as a *availability.DataIntegrityError.
func BusyIntervals(events []EventSummary) ([]availability.BusyInterval, error) {
	busy := make([]availability.BusyInterval, 0, len(events))
	for _, e := range events {
		if !IsBusy(e) {
			continue
		}
		if e.End.Before(e.Start) {
			return nil, &availability.DataIntegrityError{
				EventID: e.ID,
				Start:   e.Start,
				End:     e.End,
				Reason:  "event ends before it starts",
			}
		}
		busy = append(busy, availability.BusyInterval{Start: e.Start, End: e.End})
	}
	return busy, nil
}

// ListBusyIntervals fetches the events in [timeMin, timeMax) from src and
// resolves them into busy intervals. The result is neither sorted nor
// clipped to the range.
func ListBusyIntervals(ctx context.Context, src Source, timeMin, timeMax time.Time) ([]availability.BusyInterval, error) {
	events, err := src.ListEvents(ctx, timeMin, timeMax)
	if err != nil {
		return nil, fmt.Errorf("failed to list busy intervals: %w", err)
	}
	return BusyIntervals(events)
}

// FilterEvents returns the events matching query.
func FilterEvents(events []EventSummary, query string) []EventSummary {
	if query == "" {
		return events
	}
	var out []EventSummary
	for _, e := range events {
		if e.Matches(query) {
			out = append(out, e)
		}
	}
	return out
}

// invalidEventTime wraps a time parsing failure for a single event.
func invalidEventTime(eventID string, err error) error {
	return &availability.DataIntegrityError{
		EventID: eventID,
		Reason:  "unparseable event time",
		Err:     err,
	}
}

// IsDataIntegrity reports whether err stems from malformed calendar data.
func IsDataIntegrity(err error) bool {
	return errors.Is(err, availability.ErrDataIntegrity)
}
