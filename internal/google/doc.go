// Package google provides OAuth2 configuration and token storage for the
// Google Calendar API.
//
// Tokens are stored per account as JSON files in the user cache directory.
// The TokenProvider interface lets callers plug in other token sources.
package google
