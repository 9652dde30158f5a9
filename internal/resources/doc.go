// Package resources provides read-only MCP resources describing the
// calendars the server works on.
//
// calendar://primary describes the default account's calendar, and
// calendar://accounts/{account} any other configured account.
package resources
