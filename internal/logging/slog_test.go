package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("calendar.list_events"), KeyOperation, "calendar.list_events"},
		{"source", Source("ics"), KeySource, "ics"},
		{"account", Account("work"), KeyAccount, "work"},
		{"tool", Tool("calendar_today"), KeyTool, "calendar_today"},
		{"status", Status(StatusSuccess), KeyStatus, "success"},
		{"error", Err(errors.New("boom")), KeyError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestErr_Nil(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("done", Err(nil))

	if strings.Contains(buf.String(), KeyError) {
		t.Errorf("nil error should be omitted, got %q", buf.String())
	}
}

func TestAnonymize(t *testing.T) {
	if Anonymize("") != "" {
		t.Error("empty input should stay empty")
	}

	a := Anonymize("work")
	if a != Anonymize("work") {
		t.Error("hash should be stable")
	}
	if a == Anonymize("personal") {
		t.Error("different inputs should hash differently")
	}
	if !strings.HasPrefix(a, "id:") || len(a) != len("id:")+16 {
		t.Errorf("unexpected format %q", a)
	}
	if strings.Contains(a, "work") {
		t.Error("hash leaks the input")
	}

	attr := AccountHash("work")
	if attr.Key != KeyAccountHash || attr.Value.String() != a {
		t.Errorf("AccountHash() = %v", attr)
	}
}

func TestWithHelpers(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	WithSource(WithTool(WithOperation(base, "op"), "calendar_today"), "google").Info("hello")

	out := buf.String()
	for _, want := range []string{"operation=op", "tool=calendar_today", "source=google"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, false).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug output without debug flag: %q", buf.String())
	}

	NewLogger(&buf, true).Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("debug output missing with debug flag")
	}
}
