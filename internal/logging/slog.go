package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
)

// Common log attribute keys.
const (
	KeyOperation   = "operation"
	KeySource      = "source"
	KeyAccount     = "account"
	KeyAccountHash = "account_hash"
	KeyDuration    = "duration"
	KeyStatus      = "status"
	KeyError       = "error"
	KeyTool        = "tool"
)

// Status values. Duplicated from instrumentation, which imports this package.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// NewLogger returns a text logger writing to w, at debug level when debug is set.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(Operation(operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(Tool(tool))
}

// WithSource returns a logger with the calendar source attribute set.
func WithSource(logger *slog.Logger, source string) *slog.Logger {
	return logger.With(Source(source))
}

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

func Source(source string) slog.Attr { return slog.String(KeySource, source) }

func Account(account string) slog.Attr { return slog.String(KeyAccount, account) }

func Tool(tool string) slog.Attr { return slog.String(KeyTool, tool) }

func Status(status string) slog.Attr { return slog.String(KeyStatus, status) }

// AccountHash returns the account name as an anonymized attribute.
func AccountHash(account string) slog.Attr {
	return slog.String(KeyAccountHash, Anonymize(account))
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// Anonymize returns a stable hash of an identifier such as an account name or
// email address, so log lines can be correlated without exposing it.
func Anonymize(id string) string {
	if id == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(id))
	return "id:" + hex.EncodeToString(hash[:8])
}
