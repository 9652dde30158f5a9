// Package availability computes open meeting slots from a set of busy intervals.
//
// The search walks calendar days forward from a reference instant, skips
// weekends, clips each day to the configured working hours and emits
// fixed-width, first-fit slots in the gaps between busy intervals. At most
// MaxSlots slots are produced per search.
//
// The package does no I/O and keeps no state between calls. All inputs are
// expected in a single reference location; the location of now decides what a
// calendar day is.
//
// Example usage:
//
//	params := availability.SearchParameters{
//	    DurationMinutes:   30,
//	    SearchDays:        7,
//	    WorkingHoursStart: 9,
//	    WorkingHoursEnd:   17,
//	}
//	if err := params.Validate(); err != nil {
//	    return err
//	}
//	slots, err := availability.FindSlots(time.Now(), busy, params)
package availability
