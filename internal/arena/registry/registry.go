// Package registry serializes mutation of room records: one lock per room,
// full parallelism across rooms.
package registry

import (
	"sync"

	"codeclash/internal/arena/model"
	appErr "codeclash/pkg/errors"
)

type entry struct {
	mu      sync.Mutex
	room    *model.Room
	removed bool
}

// Registry holds the live rooms handed over by the external orchestrator.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{rooms: make(map[string]*entry)}
}

// Register adds a room. The room id must be unique.
func (r *Registry) Register(room *model.Room) error {
	if room == nil || room.ID == "" {
		return appErr.ValidationError("room_id", "required")
	}
	room.EnsureIntegrityState()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rooms[room.ID]; exists {
		return appErr.Newf(appErr.RoomAlreadyExists, "room %s already registered", room.ID)
	}
	r.rooms[room.ID] = &entry{room: room}
	return nil
}

// Remove tears a room down and returns it for final archiving. It takes the
// room lock before handing the record out: any WithRoom mutation still in
// flight finishes first, and stragglers that already looked the entry up see
// the removed mark instead of the record. The caller owns the room
// exclusively after Remove returns.
func (r *Registry) Remove(roomID string) (*model.Room, bool) {
	r.mu.Lock()
	e, ok := r.rooms[roomID]
	if ok {
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
	return e.room, true
}

// WithRoom runs fn with exclusive access to the room's record. Reports for
// the same room are serialized; different rooms proceed in parallel.
func (r *Registry) WithRoom(roomID string, fn func(room *model.Room) error) error {
	r.mu.RLock()
	e, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return appErr.Newf(appErr.RoomNotFound, "room %s not found", roomID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return appErr.Newf(appErr.RoomNotFound, "room %s not found", roomID)
	}
	return fn(e.room)
}

// Len returns the number of registered rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
