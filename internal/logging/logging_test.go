package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" INFO ":  zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewWritesJSONOutsideLocal(t *testing.T) {
	var buf bytes.Buffer
	logger := New("production", "info", &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Str("component", "plans").Msg("plan generated")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON line: %v", err)
	}
	if entry["message"] != "plan generated" || entry["component"] != "plans" || entry["level"] != "info" {
		t.Errorf("unexpected entry %v", entry)
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected timestamp")
	}
}

func TestNewUsesConsoleWriterLocally(t *testing.T) {
	var buf bytes.Buffer
	logger := New("local", "debug", &buf)
	logger.Info().Msg("server started")

	out := buf.String()
	if !strings.Contains(out, "server started") {
		t.Fatalf("missing message in %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("expected console output, got JSON %q", out)
	}
}
