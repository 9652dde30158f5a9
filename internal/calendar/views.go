package calendar

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/teemow/calslot/internal/availability"
)

// DayRange returns local midnight of now's day and of the following day.
func DayRange(now time.Time) (time.Time, time.Time) {
	day := availability.DayOf(now)
	return day.Start(), day.End()
}

// WeekRange returns Monday 00:00 of now's week and of the following week.
func WeekRange(now time.Time) (time.Time, time.Time) {
	day := availability.DayOf(now)
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDays(-offset)
	return monday.Start(), monday.AddDays(7).Start()
}

// Today returns today's events in the source's location.
func Today(ctx context.Context, src Source, now time.Time) ([]EventSummary, error) {
	start, end := DayRange(now.In(src.Location()))
	events, err := src.ListEvents(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list today's events: %w", err)
	}
	return events, nil
}

// ThisWeek returns the events of the current Monday-to-Sunday week.
func ThisWeek(ctx context.Context, src Source, now time.Time) ([]EventSummary, error) {
	start, end := WeekRange(now.In(src.Location()))
	events, err := src.ListEvents(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list this week's events: %w", err)
	}
	return events, nil
}

// PendingInvitations returns non-cancelled events overlapping
// [now, now+days) that the calendar owner has not responded to yet. The
// fetch covers whole days so repeated calls on one day hit the same cache
// entry.
func PendingInvitations(ctx context.Context, src Source, now time.Time, days int) ([]EventSummary, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	now = now.In(src.Location())
	limit := now.AddDate(0, 0, days)
	day := availability.DayOf(now)
	events, err := src.ListEvents(ctx, day.Start(), availability.DayOf(limit).End())
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	var pending []EventSummary
	for _, e := range events {
		if e.Status == StatusCancelled || !overlaps(e, now, limit) {
			continue
		}
		if e.SelfResponse() == ResponseNeedsAction {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func sortEvents(events []EventSummary) {
	slices.SortStableFunc(events, func(a, b EventSummary) int {
		return a.Start.Compare(b.Start)
	})
}
