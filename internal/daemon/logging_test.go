package daemon

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestLogBufferAddQuery(t *testing.T) {
	b := NewLogBuffer(8)

	b.Add(LogEntry{Timestamp: time.Now(), Level: "INFO", Message: "first"})
	b.Add(LogEntry{Timestamp: time.Now(), Level: "ERROR", Message: "second"})

	if b.Count() != 2 {
		t.Fatalf("count: got %d, want 2", b.Count())
	}

	all := b.Query(LogQuery{})
	if len(all) != 2 || all[0].Message != "first" {
		t.Errorf("chronological query wrong: %+v", all)
	}

	errs := b.Query(LogQuery{Level: "error"})
	if len(errs) != 1 || errs[0].Message != "second" {
		t.Errorf("level filter wrong: %+v", errs)
	}
}

func TestLogBufferEviction(t *testing.T) {
	b := NewLogBuffer(4)
	for i := 0; i < 6; i++ {
		b.Add(LogEntry{Timestamp: time.Now(), Level: "INFO", Message: fmt.Sprintf("msg %d", i)})
	}

	entries := b.Query(LogQuery{})
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	if entries[0].Message != "msg 2" {
		t.Errorf("oldest: got %q, want %q", entries[0].Message, "msg 2")
	}
	if entries[3].Message != "msg 5" {
		t.Errorf("newest: got %q, want %q", entries[3].Message, "msg 5")
	}
}

func TestLogBufferLimit(t *testing.T) {
	b := NewLogBuffer(8)
	for i := 0; i < 5; i++ {
		b.Add(LogEntry{Timestamp: time.Now(), Level: "INFO", Message: fmt.Sprintf("msg %d", i)})
	}

	limited := b.Query(LogQuery{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("limit: got %d entries, want 2", len(limited))
	}
}

func TestBufferedHandlerCaptures(t *testing.T) {
	buffer := NewLogBuffer(16)
	handler := NewBufferedHandler(buffer, slog.NewTextHandler(io.Discard, nil))
	logger := slog.New(handler)

	logger.Info("display turned on", "previous", "off")
	logger.Warn("probe failed", "error", "no such device")

	entries := buffer.Query(LogQuery{})
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Message != "display turned on" {
		t.Errorf("message: got %q", entries[0].Message)
	}
	if entries[0].Fields["previous"] != "off" {
		t.Errorf("fields: %+v", entries[0].Fields)
	}
	if entries[1].Level != slog.LevelWarn.String() {
		t.Errorf("level: got %q", entries[1].Level)
	}
}

func TestBufferedHandlerWithAttrs(t *testing.T) {
	buffer := NewLogBuffer(16)
	handler := NewBufferedHandler(buffer, slog.NewTextHandler(io.Discard, nil))
	logger := slog.New(handler).With("conn", "abc123")

	logger.Info("ignoring unexpected payload")

	entries := buffer.Query(LogQuery{})
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Fields["conn"] != "abc123" {
		t.Errorf("preset attr missing: %+v", entries[0].Fields)
	}
}
