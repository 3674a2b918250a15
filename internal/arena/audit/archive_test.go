package audit_test

import (
	"context"
	"fmt"
	"testing"

	"codeclash/internal/arena/audit"
	"codeclash/internal/arena/model"
)

func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	archiver := audit.NewArchiver(dir)

	room := &model.Room{ID: "room-1"}
	for i := 1; i <= 5; i++ {
		room.ViolationEvents = append(room.ViolationEvents, model.ViolationEvent{
			Type:          model.ViolationTypeTabSwitch,
			PlayerID:      "p1",
			TimestampMs:   int64(i * 100),
			WarningNumber: i,
		})
	}

	path, err := archiver.ArchiveRoom(room)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if path == "" {
		t.Fatalf("expected archive path")
	}

	events, err := audit.ReadArchive(path)
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.WarningNumber != i+1 || ev.PlayerID != "p1" {
			t.Fatalf("event %d corrupted: %+v", i, ev)
		}
	}
}

func TestArchiveEmptyRoomProducesNothing(t *testing.T) {
	archiver := audit.NewArchiver(t.TempDir())
	path, err := archiver.ArchiveRoom(&model.Room{ID: "room-1"})
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no archive for empty log, got %s", path)
	}
}

type failingSink struct{ calls int }

func (f *failingSink) Record(ctx context.Context, roomID string, event model.ViolationEvent) error {
	f.calls++
	return fmt.Errorf("sink down")
}

type countingSink struct{ calls int }

func (c *countingSink) Record(ctx context.Context, roomID string, event model.ViolationEvent) error {
	c.calls++
	return nil
}

func TestMultiSinkContinuesPastFailures(t *testing.T) {
	failing := &failingSink{}
	counting := &countingSink{}
	multi := audit.NewMultiSink(failing, nil, counting)

	err := multi.Record(context.Background(), "room-1", model.ViolationEvent{WarningNumber: 1})
	if err == nil {
		t.Fatalf("expected error surfaced from failing sink")
	}
	if failing.calls != 1 || counting.calls != 1 {
		t.Fatalf("expected both sinks invoked, got %d/%d", failing.calls, counting.calls)
	}
}
