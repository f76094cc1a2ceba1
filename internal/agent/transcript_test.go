package agent

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTranscriptLoggerWritesPerDeviceNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewTranscriptLogger(TranscriptConfig{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	}, slog.Default())
	if err != nil {
		t.Fatalf("NewTranscriptLogger failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log(TranscriptEvent{
		DeviceID: "anon_device1",
		TurnID:   "turn-1",
		Role:     "user",
		Content:  "what is CBAM?",
	})

	path := filepath.Join(dir, "anon_device1.ndjson")
	line := waitForLogLine(t, path)
	var got TranscriptEvent
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.Content != "what is CBAM?" {
		t.Fatalf("unexpected Content: %q", got.Content)
	}
	if got.Timestamp == "" {
		t.Fatal("expected timestamp to be populated")
	}
}

func TestTranscriptLoggerDisabledIsNoop(t *testing.T) {
	t.Parallel()

	logger, err := NewTranscriptLogger(TranscriptConfig{Enabled: false}, slog.Default())
	if err != nil {
		t.Fatalf("NewTranscriptLogger failed: %v", err)
	}
	logger.Log(TranscriptEvent{DeviceID: "anon_x", Role: "user", Content: "hi"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close on disabled logger failed: %v", err)
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}
