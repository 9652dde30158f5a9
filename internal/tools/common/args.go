package common

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// IntArg returns the integer argument name, or def when it is absent. JSON
// numbers arrive as float64; fractional values are rejected.
func IntArg(args map[string]interface{}, name string, def int) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be a whole number, got %v", name, v)
		}
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("%s must be a number", name)
	}
}

// StringArg returns the trimmed string argument name, or def when it is
// absent or empty.
func StringArg(args map[string]interface{}, name, def string) string {
	if v, ok := args[name].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// TimeArg parses the required RFC3339 argument name.
func TimeArg(args map[string]interface{}, name string) (time.Time, error) {
	v, ok := args[name].(string)
	if !ok || v == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s format: %w", name, err)
	}
	return t, nil
}
