package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetDebugLogger(t *testing.T) {
	t.Helper()

	globalDebugLogger.mu.Lock()
	prevFile := globalDebugLogger.file
	prevBuffer := append([]byte(nil), globalDebugLogger.buffer...)
	prevDiscard := globalDebugLogger.discard
	globalDebugLogger.file = nil
	globalDebugLogger.buffer = nil
	globalDebugLogger.discard = false
	globalDebugLogger.mu.Unlock()

	t.Cleanup(func() {
		globalDebugLogger.mu.Lock()
		if globalDebugLogger.file != nil {
			_ = globalDebugLogger.file.Close()
		}
		globalDebugLogger.file = prevFile
		globalDebugLogger.buffer = prevBuffer
		globalDebugLogger.discard = prevDiscard
		globalDebugLogger.mu.Unlock()
	})
}

func TestBufferedMessagesAreFlushed(t *testing.T) {
	resetDebugLogger(t)

	Printf("refresh %s", "/repo")
	logPath := filepath.Join(t.TempDir(), "debug.log")
	if err := SetFile(logPath); err != nil {
		t.Fatalf("SetFile: %v", err)
	}
	Println("after")
	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(logPath) //nolint:gosec
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "refresh /repo") || !strings.Contains(out, "after") {
		t.Fatalf("expected buffered and direct messages, got %q", out)
	}
	if !strings.Contains(out, "lazyhg ") {
		t.Fatalf("expected prefix in %q", out)
	}
}

func TestEmptyPathDiscards(t *testing.T) {
	resetDebugLogger(t)

	Printf("dropped")
	if err := SetFile(""); err != nil {
		t.Fatalf("SetFile: %v", err)
	}
	Printf("also dropped")

	globalDebugLogger.mu.Lock()
	defer globalDebugLogger.mu.Unlock()
	if !globalDebugLogger.discard || len(globalDebugLogger.buffer) != 0 {
		t.Fatalf("expected discard mode with empty buffer")
	}
}

func TestBufferIsBounded(t *testing.T) {
	resetDebugLogger(t)

	chunk := make([]byte, maxBuffered/4)
	for i := 0; i < 10; i++ {
		if _, err := globalDebugLogger.Write(chunk); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	globalDebugLogger.mu.Lock()
	size := len(globalDebugLogger.buffer)
	globalDebugLogger.mu.Unlock()
	if size > maxBuffered {
		t.Fatalf("buffer grew to %d bytes, limit %d", size, maxBuffered)
	}
}

func TestBufferTrimKeepsWholeLines(t *testing.T) {
	resetDebugLogger(t)

	line := strings.Repeat("x", 99) + "\n"
	for i := 0; i < 2*maxBuffered/len(line)+7; i++ {
		if _, err := globalDebugLogger.Write([]byte(line)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	globalDebugLogger.mu.Lock()
	buffered := string(globalDebugLogger.buffer)
	globalDebugLogger.mu.Unlock()

	if buffered == "" {
		t.Fatalf("expected buffered lines")
	}
	for _, l := range strings.SplitAfter(buffered, "\n") {
		if l != "" && l != line {
			t.Fatalf("found partial line %q", l)
		}
	}
}

func TestSetFileFailureDiscardsLogs(t *testing.T) {
	resetDebugLogger(t)

	missingDir := filepath.Join(t.TempDir(), "does", "not", "exist")
	if err := SetFile(filepath.Join(missingDir, "debug.log")); err == nil {
		t.Fatalf("expected SetFile to fail")
	}
	Printf("should be discarded")

	globalDebugLogger.mu.Lock()
	defer globalDebugLogger.mu.Unlock()
	if len(globalDebugLogger.buffer) != 0 {
		t.Fatalf("expected buffer to stay empty")
	}
}
