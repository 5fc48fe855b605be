package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{" warn ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerTeesToFile(t *testing.T) {
	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "taxdesk.log")

	logger, err := NewLogger(&console, logFile)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Component("browse").Info().Int64("folder_id", 42).Msg("browsed folder")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !strings.Contains(console.String(), "browsed folder") {
		t.Errorf("console output missing message: %q", console.String())
	}

	raw, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(raw), `"folder_id":42`) || !strings.Contains(string(raw), `"component":"browse"`) {
		t.Errorf("log file missing structured fields: %s", raw)
	}
}
