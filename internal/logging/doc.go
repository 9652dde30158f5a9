// Package logging provides structured logging helpers built on log/slog.
//
// It fixes the attribute names used across the code base, hashes account
// names before they reach general logs and offers a small Logger interface
// for components that should not depend on slog directly.
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "calendar.list_events")
//	logger.Info("listed events", logging.Source("google"), logging.Status("success"))
package logging
