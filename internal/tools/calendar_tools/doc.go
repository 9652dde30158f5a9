// Package calendar_tools provides the read-only MCP tools of calslot: the
// calendar views (today, this week, pending invitations, event search) and
// the free slot search.
//
// Every tool accepts an optional "account" argument selecting the calendar
// source, and is wrapped by common.InstrumentedToolHandlerWithSource.
package calendar_tools
