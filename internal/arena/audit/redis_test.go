package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"codeclash/internal/arena/audit"
	"codeclash/internal/arena/model"
)

func newRedisSink(t *testing.T) (*audit.RedisSink, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return audit.NewRedisSink(client, "test:violations", time.Hour), mr
}

func TestRedisSinkAppendsInOrder(t *testing.T) {
	sink, _ := newRedisSink(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		err := sink.Record(ctx, "room-1", model.ViolationEvent{
			Type:          model.ViolationTypeTabSwitch,
			PlayerID:      "p1",
			TimestampMs:   int64(1000 * i),
			WarningNumber: i,
		})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	events, err := sink.Events(ctx, "room-1")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.WarningNumber != i+1 {
			t.Fatalf("event %d out of order: %+v", i, ev)
		}
	}
}

func TestRedisSinkIsolatesRooms(t *testing.T) {
	sink, _ := newRedisSink(t)
	ctx := context.Background()

	if err := sink.Record(ctx, "room-1", model.ViolationEvent{PlayerID: "p1", WarningNumber: 1}); err != nil {
		t.Fatalf("record: %v", err)
	}
	events, err := sink.Events(ctx, "room-2")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty log for other room, got %d", len(events))
	}
}

func TestRedisSinkSetsTTL(t *testing.T) {
	sink, mr := newRedisSink(t)
	ctx := context.Background()

	if err := sink.Record(ctx, "room-1", model.ViolationEvent{PlayerID: "p1", WarningNumber: 1}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if ttl := mr.TTL("test:violations:room-1"); ttl <= 0 {
		t.Fatalf("expected TTL set, got %v", ttl)
	}
}
