package availability

import (
	"iter"
	"slices"
	"time"
)

// Slots returns a lazy sequence of free slots for the search. Days are
// examined in order, one at a time, and only while the consumer keeps
// pulling; breaking out of the range stops the scan.
//
// Busy intervals may be unsorted and may cover any range. The sequence is not
// capped; use FindSlots for the bounded result.
func Slots(now time.Time, busy []BusyInterval, params SearchParameters) iter.Seq[FreeSlot] {
	return func(yield func(FreeSlot) bool) {
		if params.DurationMinutes <= 0 {
			return
		}
		sorted := sortByStart(busy)
		today := DayOf(now)

		for offset := 0; offset < params.SearchDays; offset++ {
			day := today.AddDays(offset)
			if day.IsWeekend() {
				continue
			}
			var floor time.Time
			if offset == 0 {
				floor = now
			}
			for slot := range daySlots(day, floor, sorted, params) {
				if !yield(slot) {
					return
				}
			}
		}
	}
}

// FindSlots returns up to MaxSlots free slots in chronological order. An empty
// result means no availability and is not an error. A busy interval inside
// the searched days that ends before it starts yields a *DataIntegrityError;
// intervals wholly outside those days are ignored, malformed or not.
func FindSlots(now time.Time, busy []BusyInterval, params SearchParameters) ([]FreeSlot, error) {
	today := DayOf(now)
	if err := ValidateIntervals(within(busy, today.Start(), today.AddDays(params.SearchDays).Start())); err != nil {
		return nil, err
	}

	slots := make([]FreeSlot, 0, MaxSlots)
	for slot := range Slots(now, busy, params) {
		slots = append(slots, slot)
		if len(slots) == MaxSlots {
			break
		}
	}
	return slots, nil
}

// daySlots walks one day's busy intervals and emits first-fit slots in the
// gaps. floor, when non-zero, is a lower bound for the cursor.
func daySlots(day Day, floor time.Time, sorted []BusyInterval, params SearchParameters) iter.Seq[FreeSlot] {
	return func(yield func(FreeSlot) bool) {
		dayStart, dayEnd := day.WorkingWindow(params.WorkingHoursStart, params.WorkingHoursEnd)
		if !dayEnd.After(dayStart) {
			return
		}
		duration := params.Duration()

		cursor := dayStart
		if floor.After(cursor) {
			cursor = floor
		}

		fits := func(gapEnd time.Time) bool {
			end := cursor.Add(duration)
			return cursor.Before(dayEnd) && !end.After(gapEnd) && !end.After(dayEnd)
		}
		emit := func() bool {
			return yield(FreeSlot{
				Start:           cursor,
				End:             cursor.Add(duration),
				DurationMinutes: params.DurationMinutes,
			})
		}

		for _, b := range sorted {
			if !b.Start.Before(day.End()) {
				break
			}
			if !day.Holds(b) {
				continue
			}
			if fits(b.Start) && !emit() {
				return
			}
			if b.End.After(cursor) {
				cursor = b.End
			}
		}

		if fits(dayEnd) {
			emit()
		}
	}
}

// within returns the intervals with an endpoint in [from, to).
func within(busy []BusyInterval, from, to time.Time) []BusyInterval {
	inside := func(t time.Time) bool { return !t.Before(from) && t.Before(to) }
	var out []BusyInterval
	for _, b := range busy {
		if inside(b.Start) || inside(b.End) || (b.Start.Before(from) && b.End.After(to)) {
			out = append(out, b)
		}
	}
	return out
}

func sortByStart(busy []BusyInterval) []BusyInterval {
	sorted := slices.Clone(busy)
	slices.SortStableFunc(sorted, func(a, b BusyInterval) int {
		return a.Start.Compare(b.Start)
	})
	return sorted
}
