package log

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
)

func TestFileLoggerReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error: %v", err)
	}

	logger.Log(NewStateChangeEvent("conn-1", "disconnected", "connecting", ""))
	logger.Log(NewMessageEvent("conn-1", DirectionOut, "chat.message", 12))
	logger.Log(NewErrorEvent("conn-1", LayerTransport, errors.New("read failed"), "receive"))
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader() error: %v", err)
	}
	defer reader.Close()

	var events []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		events = append(events, event)
	}

	if len(events) != 3 {
		t.Fatalf("read %d events, want 3", len(events))
	}

	if events[0].StateChange == nil || events[0].StateChange.NewState != "connecting" {
		t.Error("first event missing state change")
	}
	if events[1].Message == nil || events[1].Message.EnvelopeType != "chat.message" {
		t.Error("second event missing message details")
	}
	if events[2].Error == nil || events[2].Error.Context != "receive" {
		t.Error("third event missing error details")
	}
}

func TestReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "nope.cbor"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
