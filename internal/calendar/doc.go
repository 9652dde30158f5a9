// Package calendar resolves a date range into events and busy intervals.
//
// A Source lists the events of one calendar. Two sources are provided: Client
// reads a Google Calendar through the Calendar API and ICSFeed reads an
// iCalendar (.ics) feed over HTTP. CachedSource puts a MemoryCache or
// RedisCache in front of either.
//
// All returned times are in the source's reference location, so callers can
// hand them to the availability engine without further conversion.
//
// Example usage:
//
//	client, err := calendar.NewClientForAccount(ctx, "default", calendar.Options{})
//	if err != nil {
//	    return err
//	}
//	busy, err := calendar.ListBusyIntervals(ctx, client, now, now.AddDate(0, 0, 7))
package calendar
