package availability

import "errors"

// Validate checks every parameter against its accepted range and returns all
// violations joined together. Each violation is a *ParameterError.
//
// WorkingHoursStart >= WorkingHoursEnd passes validation; such a search
// simply finds nothing.
func (p SearchParameters) Validate() error {
	var errs []error
	check := func(field string, value, lo, hi int) {
		if value < lo || value > hi {
			errs = append(errs, &ParameterError{Field: field, Value: value, Min: lo, Max: hi})
		}
	}

	check("durationMinutes", p.DurationMinutes, MinDurationMinutes, MaxDurationMinutes)
	check("searchDays", p.SearchDays, MinSearchDays, MaxSearchDays)
	check("workingHoursStart", p.WorkingHoursStart, MinWorkingHourFrom, MaxWorkingHourFrom)
	check("workingHoursEnd", p.WorkingHoursEnd, MinWorkingHourTo, MaxWorkingHourTo)

	return errors.Join(errs...)
}

// ValidateIntervals returns a *DataIntegrityError for the first interval
// whose start is after its end.
func ValidateIntervals(busy []BusyInterval) error {
	for _, b := range busy {
		if b.Start.After(b.End) {
			return &DataIntegrityError{
				Start:  b.Start,
				End:    b.End,
				Reason: "busy interval ends before it starts",
			}
		}
	}
	return nil
}
