package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-01-06 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.January, day, hour, minute, 0, 0, time.UTC)
}

func params(duration, days, from, to int) SearchParameters {
	return SearchParameters{
		DurationMinutes:   duration,
		SearchDays:        days,
		WorkingHoursStart: from,
		WorkingHoursEnd:   to,
	}
}

func TestFindSlots_Scenarios(t *testing.T) {
	tests := []struct {
		name   string
		now    time.Time
		busy   []BusyInterval
		params SearchParameters
		want   []FreeSlot
	}{
		{
			name:   "no busy intervals, partial first day",
			now:    at(6, 10, 0),
			params: params(30, 1, 9, 17),
			want:   []FreeSlot{{Start: at(6, 10, 0), End: at(6, 10, 30), DurationMinutes: 30}},
		},
		{
			name:   "busy at start of working hours",
			now:    at(6, 8, 0),
			busy:   []BusyInterval{{Start: at(6, 9, 0), End: at(6, 10, 0)}},
			params: params(60, 1, 9, 17),
			want:   []FreeSlot{{Start: at(6, 10, 0), End: at(6, 11, 0), DurationMinutes: 60}},
		},
		{
			name:   "saturday contributes nothing",
			now:    at(11, 8, 0),
			params: params(30, 2, 9, 17),
			want:   []FreeSlot{},
		},
		{
			name:   "busy interval covers working day",
			now:    at(6, 7, 0),
			busy:   []BusyInterval{{Start: at(6, 8, 0), End: at(6, 18, 0)}},
			params: params(30, 1, 9, 17),
			want:   []FreeSlot{},
		},
		{
			name:   "full working window",
			now:    at(6, 6, 0),
			params: params(480, 1, 9, 17),
			want:   []FreeSlot{{Start: at(6, 9, 0), End: at(6, 17, 0), DurationMinutes: 480}},
		},
		{
			name: "gaps between meetings",
			now:  at(6, 9, 0),
			busy: []BusyInterval{
				{Start: at(6, 13, 0), End: at(6, 14, 0)},
				{Start: at(6, 9, 30), End: at(6, 11, 0)},
			},
			params: params(60, 1, 9, 17),
			want: []FreeSlot{
				{Start: at(6, 11, 0), End: at(6, 12, 0), DurationMinutes: 60},
				{Start: at(6, 14, 0), End: at(6, 15, 0), DurationMinutes: 60},
			},
		},
		{
			name: "event before now on first day advances cursor",
			now:  at(6, 9, 15),
			busy: []BusyInterval{
				{Start: at(6, 9, 0), End: at(6, 10, 0)},
			},
			params: params(30, 1, 9, 17),
			want:   []FreeSlot{{Start: at(6, 10, 0), End: at(6, 10, 30), DurationMinutes: 30}},
		},
		{
			name:   "now after working hours",
			now:    at(6, 18, 0),
			params: params(30, 2, 9, 17),
			want:   []FreeSlot{{Start: at(7, 9, 0), End: at(7, 9, 30), DurationMinutes: 30}},
		},
		{
			name:   "start equals end hour",
			now:    at(6, 8, 0),
			params: params(30, 5, 12, 12),
			want:   []FreeSlot{},
		},
		{
			name:   "start after end hour",
			now:    at(6, 8, 0),
			params: params(30, 5, 17, 9),
			want:   []FreeSlot{},
		},
		{
			name: "slot never extends past working hours",
			now:  at(6, 8, 0),
			busy: []BusyInterval{
				{Start: at(6, 9, 0), End: at(6, 16, 45)},
				{Start: at(6, 20, 0), End: at(6, 21, 0)},
			},
			params: params(30, 1, 9, 17),
			want:   []FreeSlot{},
		},
		{
			name: "multi-day event blocks the days it spans",
			now:  at(6, 8, 0),
			busy: []BusyInterval{
				{Start: at(6, 0, 0), End: at(8, 0, 0)},
			},
			params: params(30, 3, 9, 17),
			want:   []FreeSlot{{Start: at(8, 9, 0), End: at(8, 9, 30), DurationMinutes: 30}},
		},
		{
			name: "all day event",
			now:  at(6, 8, 0),
			busy: []BusyInterval{
				{Start: at(7, 0, 0), End: at(8, 0, 0)},
			},
			params: params(30, 2, 9, 17),
			want:   []FreeSlot{{Start: at(6, 9, 0), End: at(6, 9, 30), DurationMinutes: 30}},
		},
		{
			name:   "working day ending at midnight",
			now:    at(6, 23, 0),
			params: params(60, 1, 0, 24),
			want:   []FreeSlot{{Start: at(6, 23, 0), End: at(7, 0, 0), DurationMinutes: 60}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindSlots(tt.now, tt.busy, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindSlots_EmptyCalendarOneSlotPerWeekday(t *testing.T) {
	got, err := FindSlots(at(6, 11, 20), nil, params(45, 7, 9, 17))
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.Equal(t, at(6, 11, 20), got[0].Start)
	for i, day := range []int{7, 8, 9, 10} {
		assert.Equal(t, at(day, 9, 0), got[i+1].Start)
		assert.Equal(t, at(day, 9, 45), got[i+1].End)
	}
}

func TestFindSlots_CapsAtMaxSlots(t *testing.T) {
	got, err := FindSlots(at(6, 8, 0), nil, params(15, 14, 9, 17))
	require.NoError(t, err)
	require.Len(t, got, MaxSlots)

	// Monday to Friday of the first week.
	assert.Equal(t, at(10, 9, 0), got[MaxSlots-1].Start)
}

func TestSlots_StopsWhenConsumerStops(t *testing.T) {
	var pulled int
	for range Slots(at(6, 8, 0), nil, params(15, 14, 9, 17)) {
		pulled++
		if pulled == 2 {
			break
		}
	}
	assert.Equal(t, 2, pulled)
}

func TestSlots_NonPositiveDuration(t *testing.T) {
	var got []FreeSlot
	for slot := range Slots(at(6, 8, 0), nil, params(0, 3, 9, 17)) {
		got = append(got, slot)
	}
	assert.Empty(t, got)
}

func TestFindSlots_Properties(t *testing.T) {
	now := at(6, 9, 40)
	busy := []BusyInterval{
		{Start: at(6, 10, 0), End: at(6, 10, 30)},
		{Start: at(6, 11, 0), End: at(6, 12, 15)},
		{Start: at(6, 12, 0), End: at(6, 12, 30)},
		{Start: at(7, 9, 0), End: at(7, 9, 10)},
		{Start: at(7, 14, 0), End: at(7, 16, 0)},
		{Start: at(8, 8, 0), End: at(8, 17, 0)},
	}
	p := params(30, 5, 9, 17)

	got, err := FindSlots(now, busy, p)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), MaxSlots)

	for i, slot := range got {
		assert.Equal(t, p.Duration(), slot.End.Sub(slot.Start), "slot %d width", i)
		assert.False(t, slot.Start.Before(now), "slot %d before now", i)
		if i > 0 {
			assert.False(t, slot.Start.Before(got[i-1].Start), "slot %d out of order", i)
		}
		day := DayOf(slot.Start)
		assert.False(t, day.IsWeekend())
		for _, b := range busy {
			if !day.Holds(b) {
				continue
			}
			overlaps := slot.Start.Before(b.End) && b.Start.Before(slot.End)
			assert.False(t, overlaps, "slot %v overlaps %v", slot, b)
		}
	}

	again, err := FindSlots(now, busy, p)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestFindSlots_DoesNotMutateInput(t *testing.T) {
	busy := []BusyInterval{
		{Start: at(6, 14, 0), End: at(6, 15, 0)},
		{Start: at(6, 10, 0), End: at(6, 11, 0)},
	}
	orig := append([]BusyInterval(nil), busy...)

	_, err := FindSlots(at(6, 8, 0), busy, params(30, 1, 9, 17))
	require.NoError(t, err)
	assert.Equal(t, orig, busy)
}

func TestFindSlots_MalformedInterval(t *testing.T) {
	busy := []BusyInterval{{Start: at(6, 11, 0), End: at(6, 10, 0)}}

	got, err := FindSlots(at(6, 8, 0), busy, params(30, 1, 9, 17))
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrDataIntegrity))

	var dataErr *DataIntegrityError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, at(6, 11, 0), dataErr.Start)
}

func TestFindSlots_MalformedIntervalScope(t *testing.T) {
	tests := []struct {
		name    string
		busy    BusyInterval
		wantErr bool
	}{
		{"days after the search", BusyInterval{Start: at(20, 11, 0), End: at(20, 10, 0)}, false},
		{"days before the search", BusyInterval{Start: at(3, 11, 0), End: at(3, 10, 0)}, false},
		{"inside a searched day outside working hours", BusyInterval{Start: at(7, 22, 0), End: at(7, 21, 0)}, true},
		{"starts inside, ends before the search", BusyInterval{Start: at(6, 1, 0), End: at(5, 23, 0)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindSlots(at(6, 8, 0), []BusyInterval{tt.busy}, params(30, 2, 9, 17))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDataIntegrity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []FreeSlot{
				{Start: at(6, 9, 0), End: at(6, 9, 30), DurationMinutes: 30},
				{Start: at(7, 9, 0), End: at(7, 9, 30), DurationMinutes: 30},
			}, got)
		})
	}
}

func TestFindSlots_RespectsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	// Monday 08:00 local is Sunday 23:00 UTC.
	now := time.Date(2025, time.January, 6, 8, 0, 0, 0, loc)

	got, err := FindSlots(now, nil, params(30, 1, 9, 17))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2025, time.January, 6, 9, 0, 0, 0, loc), got[0].Start)
}
