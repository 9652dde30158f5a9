package availability

import "time"

// Day is a calendar day in a fixed location, anchored at local midnight.
type Day struct {
	midnight time.Time
}

// DayOf returns the calendar day containing t, in t's location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{midnight: time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

// AddDays returns the day n calendar days later. DST transitions do not shift
// the result off midnight.
func (d Day) AddDays(n int) Day {
	y, m, dd := d.midnight.Date()
	return Day{midnight: time.Date(y, m, dd+n, 0, 0, 0, 0, d.midnight.Location())}
}

// Start returns local midnight at the beginning of the day.
func (d Day) Start() time.Time { return d.midnight }

// End returns local midnight at the beginning of the next day.
func (d Day) End() time.Time { return d.AddDays(1).midnight }

func (d Day) Weekday() time.Weekday { return d.midnight.Weekday() }

// IsWeekend reports whether the day is a Saturday or Sunday.
func (d Day) IsWeekend() bool {
	wd := d.midnight.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// At returns the instant at hour:00 on the day. Hour 24 is midnight of the
// following day.
func (d Day) At(hour int) time.Time {
	y, m, dd := d.midnight.Date()
	return time.Date(y, m, dd, hour, 0, 0, 0, d.midnight.Location())
}

// WorkingWindow returns the working-hour bounds for the day. The window is
// empty when end is not after start.
func (d Day) WorkingWindow(startHour, endHour int) (start, end time.Time) {
	return d.At(startHour), d.At(endHour)
}

// Holds reports whether a busy interval belongs to the day: it either starts
// on the day or spans into it from an earlier day.
func (d Day) Holds(b BusyInterval) bool {
	next := d.End()
	if !b.Start.Before(d.midnight) && b.Start.Before(next) {
		return true
	}
	return b.Start.Before(d.midnight) && b.End.After(d.midnight)
}

func (d Day) String() string {
	return d.midnight.Format("2006-01-02")
}
