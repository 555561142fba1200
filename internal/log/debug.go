// Package log provides the lazyhg debug log.
//
// Messages written before the destination is known (the --debug-log flag and
// the debug_log config key are resolved late) are buffered in memory and
// flushed once SetFile is called.
package log

import (
	"bytes"
	"log"
	"os"
	"sync"

	"github.com/chmouel/lazyhg/internal/utils"
)

// maxBuffered caps the in-memory backlog so a long running watch without a
// debug log does not grow without bound.
const maxBuffered = 1 << 20

// DebugLogger is an io.Writer backing the package level logger.
type DebugLogger struct {
	mu      sync.Mutex
	file    *os.File
	buffer  []byte
	discard bool
}

var (
	globalDebugLogger = &DebugLogger{}
	stdLogger         = log.New(globalDebugLogger, "lazyhg ", log.LstdFlags|log.Lmicroseconds)
)

// Write implements io.Writer.
func (l *DebugLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.discard {
		return len(p), nil
	}

	if l.file != nil {
		n, err := l.file.Write(p)
		_ = l.file.Sync()
		return n, err
	}

	if len(l.buffer)+len(p) > maxBuffered {
		// Drop the oldest half rather than the newest lines, keeping whole lines.
		cut := len(l.buffer) / 2
		if i := bytes.IndexByte(l.buffer[cut:], '\n'); i >= 0 {
			cut += i + 1
		} else {
			cut = len(l.buffer)
		}
		l.buffer = append([]byte(nil), l.buffer[cut:]...)
	}
	l.buffer = append(l.buffer, p...)
	return len(p), nil
}

// SetFile directs the log to path, flushing anything buffered so far.
// An empty path discards the backlog and every later message.
func SetFile(path string) error {
	globalDebugLogger.mu.Lock()
	defer globalDebugLogger.mu.Unlock()

	if globalDebugLogger.file != nil {
		_ = globalDebugLogger.file.Close()
		globalDebugLogger.file = nil
	}

	if path == "" {
		globalDebugLogger.discard = true
		globalDebugLogger.buffer = nil
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, utils.DefaultFilePerms) //nolint:gosec
	if err != nil {
		globalDebugLogger.discard = true
		globalDebugLogger.buffer = nil
		return err
	}

	globalDebugLogger.file = f
	globalDebugLogger.discard = false

	if len(globalDebugLogger.buffer) > 0 {
		_, _ = f.Write(globalDebugLogger.buffer)
		_ = f.Sync()
		globalDebugLogger.buffer = nil
	}

	return nil
}

// Printf writes a formatted debug message.
func Printf(format string, args ...any) {
	stdLogger.Printf(format, args...)
}

// Println writes a debug message.
func Println(v ...any) {
	stdLogger.Println(v...)
}

// Close closes the debug log file if one is open.
func Close() error {
	globalDebugLogger.mu.Lock()
	defer globalDebugLogger.mu.Unlock()

	if globalDebugLogger.file == nil {
		return nil
	}

	err := globalDebugLogger.file.Close()
	globalDebugLogger.file = nil
	return err
}
