package testing

import (
	"fmt"
	"strings"
	"sync"
)

// RecordingLogger keeps every message in memory for assertions.
// Levels are kept as the same prefixes the console logger prints.
type RecordingLogger struct {
	mu    sync.Mutex
	lines []string
}

// NewRecordingLogger creates an empty RecordingLogger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) Verbose(format string, args ...interface{}) {
	l.add("[VERBOSE] ", format, args)
}

func (l *RecordingLogger) Info(format string, args ...interface{}) {
	l.add("", format, args)
}

func (l *RecordingLogger) Warn(format string, args ...interface{}) {
	l.add("[WARN] ", format, args)
}

func (l *RecordingLogger) Error(format string, args ...interface{}) {
	l.add("[ERROR] ", format, args)
}

func (l *RecordingLogger) add(prefix, format string, args []interface{}) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, prefix+msg)
}

// Lines returns a copy of the recorded messages.
func (l *RecordingLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Contains reports whether any recorded message contains substr.
func (l *RecordingLogger) Contains(substr string) bool {
	for _, line := range l.Lines() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
