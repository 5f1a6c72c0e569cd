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
	SetLevel(LevelWarn)
	t.Cleanup(func() { SetLevel(LevelInfo) })

	Debug("debug line")
	Info("info line")
	Warn("warn line", "id", "date_cardsXYZ")
	Error("error line", errors.New("boom"), "path", "a b")

	out := buf.String()
	if strings.Contains(out, "debug line") || strings.Contains(out, "info line") {
		t.Fatalf("lines below WARN should be dropped, got:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] warn line id=date_cardsXYZ") {
		t.Errorf("missing warn line, got:\n%s", out)
	}
	if !strings.Contains(out, `[ERROR] error line err=boom path="a b"`) {
		t.Errorf("missing error line, got:\n%s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{" INFO ", LevelInfo, true},
		{"", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"loud", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
