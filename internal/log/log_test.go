package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	defer SetLevel(LevelError)

	Debug("hidden", "k", 1)
	Info("shown", "activity_id", "3")
	Error("failed", errors.New("boom"), "op", "delete")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line written at INFO level: %s", out)
	}
	if !strings.Contains(out, "activity_id=3") {
		t.Errorf("missing kv pair in %q", out)
	}
	if !strings.Contains(out, "err=boom") || !strings.Contains(out, "op=delete") {
		t.Errorf("error line missing fields: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug": LevelDebug,
		" INFO": LevelInfo,
		"error": LevelError,
		"":      LevelError,
		"loud":  LevelError,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
