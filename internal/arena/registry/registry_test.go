package registry_test

import (
	"sync"
	"testing"
	"time"

	"codeclash/internal/arena/model"
	"codeclash/internal/arena/registry"
	pkgerrors "codeclash/pkg/errors"
)

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := registry.New()
	if err := reg.Register(&model.Room{ID: "r1"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	err := reg.Register(&model.Room{ID: "r1"})
	if !pkgerrors.Is(err, pkgerrors.RoomAlreadyExists) {
		t.Fatalf("expected RoomAlreadyExists, got %v", err)
	}
}

func TestWithRoomUnknown(t *testing.T) {
	reg := registry.New()
	err := reg.WithRoom("missing", func(room *model.Room) error { return nil })
	if !pkgerrors.Is(err, pkgerrors.RoomNotFound) {
		t.Fatalf("expected RoomNotFound, got %v", err)
	}
}

func TestWithRoomSerializesMutation(t *testing.T) {
	reg := registry.New()
	room := &model.Room{ID: "r1", Started: true}
	if err := reg.Register(room); err != nil {
		t.Fatalf("register: %v", err)
	}

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_ = reg.WithRoom("r1", func(room *model.Room) error {
				room.EnsureIntegrityState()
				room.ViolationCounts["p1"]++
				return nil
			})
		}()
	}
	wg.Wait()

	_ = reg.WithRoom("r1", func(room *model.Room) error {
		if room.ViolationCounts["p1"] != workers {
			t.Fatalf("expected %d serialized increments, got %d", workers, room.ViolationCounts["p1"])
		}
		return nil
	})
}

func TestRemove(t *testing.T) {
	reg := registry.New()
	if err := reg.Register(&model.Room{ID: "r1"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	room, ok := reg.Remove("r1")
	if !ok || room.ID != "r1" {
		t.Fatalf("expected removed room r1")
	}
	if _, ok := reg.Remove("r1"); ok {
		t.Fatalf("second remove must report missing")
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", reg.Len())
	}
}

func TestRemoveWaitsForInFlightMutation(t *testing.T) {
	reg := registry.New()
	room := &model.Room{ID: "r1", Started: true}
	if err := reg.Register(room); err != nil {
		t.Fatalf("register: %v", err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	mutated := make(chan struct{})
	go func() {
		defer close(mutated)
		_ = reg.WithRoom("r1", func(room *model.Room) error {
			close(entered)
			<-release
			room.ViolationEvents = append(room.ViolationEvents, model.ViolationEvent{
				Type:     model.ViolationTypeTabSwitch,
				PlayerID: "p1",
			})
			return nil
		})
	}()
	<-entered

	removed := make(chan *model.Room, 1)
	go func() {
		r, ok := reg.Remove("r1")
		if !ok {
			t.Errorf("expected remove to find the room")
			return
		}
		removed <- r
	}()

	select {
	case <-removed:
		t.Fatalf("remove returned while a mutation held the room")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-mutated
	r := <-removed
	if len(r.ViolationEvents) != 1 {
		t.Fatalf("expected the in-flight mutation visible after remove, got %d events", len(r.ViolationEvents))
	}

	err := reg.WithRoom("r1", func(room *model.Room) error { return nil })
	if !pkgerrors.Is(err, pkgerrors.RoomNotFound) {
		t.Fatalf("expected RoomNotFound after teardown, got %v", err)
	}
}
