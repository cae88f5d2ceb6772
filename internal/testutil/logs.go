package testutil

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
)

// LogBuffer captures slog output for assertions.
//
// Thread-safety: writes and reads are serialized, so effect goroutines may
// log while a test inspects the buffer.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLogger returns a debug-level text logger writing into a new LogBuffer.
func NewLogger() (*slog.Logger, *LogBuffer) {
	lb := &LogBuffer{}
	logger := slog.New(slog.NewTextHandler(lb, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, lb
}

// Write implements io.Writer.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Contains reports whether any log line contains every fragment.
func (b *LogBuffer) Contains(fragments ...string) bool {
	for _, line := range strings.Split(b.String(), "\n") {
		matched := true
		for _, f := range fragments {
			if !strings.Contains(line, f) {
				matched = false
				break
			}
		}
		if matched && line != "" {
			return true
		}
	}
	return false
}

// CaptureDefaultLogger points slog.Default() at a new LogBuffer for the
// duration of the test. Tests using it must not run in parallel.
func CaptureDefaultLogger(t interface{ Cleanup(func()) }) *LogBuffer {
	prev := slog.Default()
	logger, lb := NewLogger()
	slog.SetDefault(logger)
	t.Cleanup(func() { slog.SetDefault(prev) })
	return lb
}
