// Package contextkey defines the typed context keys shared between the
// HTTP layer and the logger.
package contextkey

type key string

// Keys carried through request contexts.
const (
	TraceID  key = "trace_id"
	RoomID   key = "room_id"
	PlayerID key = "player_id"
)
