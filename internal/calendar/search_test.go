package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calslot/internal/availability"
	"github.com/teemow/calslot/internal/instrumentation"
)

func TestSearchWindow(t *testing.T) {
	start, end := SearchWindow(utc(6, 10, 30), 7)
	assert.Equal(t, utc(6, 0, 0), start)
	assert.Equal(t, utc(14, 0, 0), end)

	laterStart, laterEnd := SearchWindow(utc(6, 16, 59), 7)
	assert.Equal(t, start, laterStart)
	assert.Equal(t, end, laterEnd)
}

func TestFindFreeSlots(t *testing.T) {
	src := &fakeSource{events: []EventSummary{
		{ID: "standup", Start: utc(6, 9, 0), End: utc(6, 10, 0)},
		{ID: "declined", Start: utc(6, 10, 0), End: utc(6, 12, 0),
			Attendees: []AttendeeInfo{{Email: "me@example.com", Self: true, ResponseStatus: ResponseDeclined}}},
	}}
	params := availability.SearchParameters{DurationMinutes: 60, SearchDays: 1, WorkingHoursStart: 9, WorkingHoursEnd: 17}

	slots, err := FindFreeSlots(context.Background(), src, utc(6, 8, 0), params, nil)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, utc(6, 10, 0), slots[0].Start)
	assert.Equal(t, utc(6, 11, 0), slots[0].End)

	require.Len(t, src.ranges, 1)
	assert.Equal(t, [2]time.Time{utc(6, 0, 0), utc(8, 0, 0)}, src.ranges[0])
}

func TestFindFreeSlots_RepeatedSearchesShareCacheEntry(t *testing.T) {
	src := &fakeSource{events: []EventSummary{{ID: "standup", Start: utc(6, 9, 0), End: utc(6, 10, 0)}}}
	cached := NewCachedSource(src, NewMemoryCache(), 2*time.Minute, "default/primary", nil)
	params := availability.SearchParameters{DurationMinutes: 30, SearchDays: 3, WorkingHoursStart: 9, WorkingHoursEnd: 17}

	now := utc(6, 8, 0)
	for i := range 3 {
		slots, err := FindFreeSlots(context.Background(), cached, now.Add(time.Duration(i)*5*time.Second), params, nil)
		require.NoError(t, err)
		require.NotEmpty(t, slots)
		assert.True(t, utc(6, 10, 0).Equal(slots[0].Start), "first slot %s", slots[0].Start)
	}
	assert.Equal(t, 1, src.calls)
}

func TestFindFreeSlots_UsesSourceLocation(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	src := &fakeSource{loc: loc}
	params := availability.SearchParameters{DurationMinutes: 30, SearchDays: 1, WorkingHoursStart: 9, WorkingHoursEnd: 17}

	// Sunday 23:00 UTC is Monday 08:00 in UTC+9.
	slots, err := FindFreeSlots(context.Background(), src, utc(5, 23, 0), params, nil)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, time.Date(2025, time.January, 6, 9, 0, 0, 0, loc), slots[0].Start)
}

func TestFindFreeSlots_Errors(t *testing.T) {
	valid := availability.SearchParameters{DurationMinutes: 30, SearchDays: 1, WorkingHoursStart: 9, WorkingHoursEnd: 17}

	t.Run("invalid parameters skip the fetch", func(t *testing.T) {
		src := &fakeSource{}
		bad := valid
		bad.SearchDays = 30
		_, err := FindFreeSlots(context.Background(), src, utc(6, 8, 0), bad, nil)
		assert.ErrorIs(t, err, availability.ErrInvalidParameter)
		assert.Equal(t, 0, src.calls)
	})

	t.Run("source failure", func(t *testing.T) {
		boom := errors.New("unreachable")
		_, err := FindFreeSlots(context.Background(), &fakeSource{err: boom}, utc(6, 8, 0), valid, nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("malformed event", func(t *testing.T) {
		src := &fakeSource{events: []EventSummary{{ID: "bad", Start: utc(6, 11, 0), End: utc(6, 10, 0)}}}
		_, err := FindFreeSlots(context.Background(), src, utc(6, 8, 0), valid, nil)
		assert.True(t, IsDataIntegrity(err))
	})
}

func TestSearchOutcome(t *testing.T) {
	one := []availability.FreeSlot{{}}
	assert.Equal(t, instrumentation.SearchFound, searchOutcome(one, nil))
	assert.Equal(t, instrumentation.SearchEmpty, searchOutcome(nil, nil))
	assert.Equal(t, instrumentation.SearchInvalid, searchOutcome(nil, &availability.ParameterError{Field: "searchDays"}))
	assert.Equal(t, instrumentation.SearchDataIntegrity, searchOutcome(nil, &availability.DataIntegrityError{}))
	assert.Equal(t, instrumentation.SearchSourceError, searchOutcome(nil, errors.New("boom")))
}
