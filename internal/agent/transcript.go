package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// TranscriptConfig controls NDJSON transcript logging.
type TranscriptConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// TranscriptEvent is one logged transcript line.
type TranscriptEvent struct {
	Timestamp string `json:"ts"`
	DeviceID  string `json:"device_id"`
	TurnID    string `json:"turn_id,omitempty"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Status    string `json:"status,omitempty"`
}

// TranscriptLogger appends transcript events to per-device NDJSON files on
// a background goroutine. Logging is fire-and-forget: a full queue drops
// the event with a warning rather than stalling a chat turn.
type TranscriptLogger struct {
	dir    string
	logger *slog.Logger
	events chan TranscriptEvent
	done   chan struct{}
}

// NewTranscriptLogger creates the logger and starts its writer goroutine.
// A disabled config returns a no-op logger.
func NewTranscriptLogger(cfg TranscriptConfig, logger *slog.Logger) (*TranscriptLogger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		return &TranscriptLogger{logger: logger}, nil
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}

	l := &TranscriptLogger{
		dir:    cfg.Dir,
		logger: logger,
		events: make(chan TranscriptEvent, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Log enqueues an event. Safe to call on a disabled logger.
func (l *TranscriptLogger) Log(ev TranscriptEvent) {
	if l.events == nil {
		return
	}
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case l.events <- ev:
	default:
		l.logger.Warn("transcript queue full, dropping event", "device_id", ev.DeviceID)
	}
}

// Close drains the queue and stops the writer. Safe on a disabled logger.
func (l *TranscriptLogger) Close() error {
	if l.events == nil {
		return nil
	}
	close(l.events)
	<-l.done
	return nil
}

func (l *TranscriptLogger) run() {
	defer close(l.done)
	for ev := range l.events {
		l.write(ev)
	}
}

func (l *TranscriptLogger) write(ev TranscriptEvent) {
	// filepath.Base guards against a device ID escaping the transcript dir.
	path := filepath.Join(l.dir, filepath.Base(ev.DeviceID)+".ndjson")

	line, err := json.Marshal(ev)
	if err != nil {
		l.logger.Warn("failed to marshal transcript event", "device_id", ev.DeviceID, "error", err)
		return
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		l.logger.Warn("failed to open transcript file", "path", path, "error", err)
		return
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := f.Write(append(line, '\n')); err != nil {
		l.logger.Warn("failed to write transcript line", "path", path, "error", err)
	}
}
