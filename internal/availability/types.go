package availability

import "time"

// MaxSlots is the maximum number of slots a single search returns.
const MaxSlots = 5

// Parameter bounds accepted by Validate.
const (
	MinDurationMinutes = 15
	MaxDurationMinutes = 480
	MinSearchDays      = 1
	MaxSearchDays      = 14
	MinWorkingHourFrom = 0
	MaxWorkingHourFrom = 23
	MinWorkingHourTo   = 1
	MaxWorkingHourTo   = 24
)

// BusyInterval is a span of time during which the calendar owner is occupied.
// All-day events are represented as a full calendar-day span.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FreeSlot is a candidate meeting time. End - Start always equals DurationMinutes.
type FreeSlot struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"durationMinutes"`
}

// SearchParameters describe what kind of slot to look for.
type SearchParameters struct {
	DurationMinutes   int `json:"durationMinutes" mapstructure:"duration_minutes"`
	SearchDays        int `json:"searchDays" mapstructure:"search_days"`
	WorkingHoursStart int `json:"workingHoursStart" mapstructure:"working_hours_start"`
	WorkingHoursEnd   int `json:"workingHoursEnd" mapstructure:"working_hours_end"`
}

// DefaultSearchParameters returns a 30 minute search over the next week, 9 to 17.
func DefaultSearchParameters() SearchParameters {
	return SearchParameters{
		DurationMinutes:   30,
		SearchDays:        7,
		WorkingHoursStart: 9,
		WorkingHoursEnd:   17,
	}
}

// Duration returns the requested slot length.
func (p SearchParameters) Duration() time.Duration {
	return time.Duration(p.DurationMinutes) * time.Minute
}
