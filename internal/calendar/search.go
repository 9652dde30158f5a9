package calendar

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/calslot/internal/availability"
	"github.com/teemow/calslot/internal/instrumentation"
)

// SearchWindow returns the range whose events can affect a search starting
// at now: from the start of now's day to the start of the day searchDays+1
// days later. Both ends are day boundaries, so searches on the same day
// share a cache entry.
func SearchWindow(now time.Time, searchDays int) (time.Time, time.Time) {
	day := availability.DayOf(now)
	return day.Start(), day.AddDays(searchDays + 1).Start()
}

// FindFreeSlots validates params, fetches the busy intervals of src for the
// search window and returns up to availability.MaxSlots free slots. Times
// are expressed in the source's location. metrics may be nil.
func FindFreeSlots(ctx context.Context, src Source, now time.Time, params availability.SearchParameters, metrics *instrumentation.Metrics) ([]availability.FreeSlot, error) {
	ctx, span := instrumentation.StartSearchSpan(ctx,
		attribute.Int(instrumentation.SpanAttrDuration, params.DurationMinutes),
		attribute.Int(instrumentation.SpanAttrSearchDays, params.SearchDays),
		attribute.IntSlice(instrumentation.SpanAttrWorkingHours, []int{params.WorkingHoursStart, params.WorkingHoursEnd}),
	)
	defer span.End()

	start := time.Now()
	slots, err := findFreeSlots(ctx, src, now, params)

	outcome := searchOutcome(slots, err)
	metrics.RecordAvailabilitySearch(ctx, outcome, len(slots), time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int(instrumentation.SpanAttrSlots, len(slots)))
	instrumentation.SetSpanSuccess(span)
	return slots, nil
}

func findFreeSlots(ctx context.Context, src Source, now time.Time, params availability.SearchParameters) ([]availability.FreeSlot, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now = now.In(src.Location())
	timeMin, timeMax := SearchWindow(now, params.SearchDays)
	busy, err := ListBusyIntervals(ctx, src, timeMin, timeMax)
	if err != nil {
		return nil, err
	}
	return availability.FindSlots(now, busy, params)
}

func searchOutcome(slots []availability.FreeSlot, err error) string {
	switch {
	case err == nil && len(slots) == 0:
		return instrumentation.SearchEmpty
	case err == nil:
		return instrumentation.SearchFound
	case errors.Is(err, availability.ErrInvalidParameter):
		return instrumentation.SearchInvalid
	case errors.Is(err, availability.ErrDataIntegrity):
		return instrumentation.SearchDataIntegrity
	default:
		return instrumentation.SearchSourceError
	}
}
