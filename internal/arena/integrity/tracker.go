// Package integrity implements the server-authoritative violation state
// machine for blind coding rooms: warning escalation, deterministic
// disqualification and the zero-score auto-submissions that keep a room
// progressing without a disqualified player.
package integrity

import (
	"fmt"
	"time"

	"codeclash/internal/arena/model"
)

// Action is the tracker's decision for one violation report.
type Action string

const (
	ActionIgnored      Action = "ignored"
	ActionWarned       Action = "warned"
	ActionDisqualified Action = "disqualified"
)

// State is the per-player violation state within one room.
type State int

const (
	StateClean State = iota
	StateWarned
	StateFinalWarned
	StateDisqualified
)

// Ignore reasons returned with ActionIgnored.
const (
	ReasonNotActive           = "not active"
	ReasonAlreadyDisqualified = "already disqualified"
)

const defaultMaxWarnings = 3

// Outcome is the result of one violation report.
type Outcome struct {
	Action Action
	Count  int
	Reason string
}

// Tracker evaluates violation reports against a room record. It is a pure
// state transition over the room; callers serialize access per room.
type Tracker struct {
	maxWarnings int
	now         func() time.Time
}

// NewTracker creates a tracker. maxWarnings <= 0 selects the default of 3.
func NewTracker(maxWarnings int) *Tracker {
	if maxWarnings <= 0 {
		maxWarnings = defaultMaxWarnings
	}
	return &Tracker{maxWarnings: maxWarnings, now: time.Now}
}

// MaxWarnings returns the disqualification threshold.
func (t *Tracker) MaxWarnings() int {
	return t.maxWarnings
}

// ReportViolation applies one accepted violation event to the room.
// Inactive rooms and already disqualified players are ignored without any
// mutation, so repeated reports after disqualification are no-ops.
func (t *Tracker) ReportViolation(room *model.Room, playerID string) Outcome {
	if !room.Started {
		return Outcome{Action: ActionIgnored, Reason: ReasonNotActive}
	}

	room.EnsureIntegrityState()
	if room.DisqualifiedPlayers[playerID] {
		return Outcome{
			Action: ActionIgnored,
			Count:  room.ViolationCounts[playerID],
			Reason: ReasonAlreadyDisqualified,
		}
	}

	count := room.ViolationCounts[playerID] + 1
	room.ViolationCounts[playerID] = count
	room.ViolationEvents = append(room.ViolationEvents, model.ViolationEvent{
		Type:          model.ViolationTypeTabSwitch,
		PlayerID:      playerID,
		TimestampMs:   t.now().UnixMilli(),
		WarningNumber: count,
	})

	if count >= t.maxWarnings {
		room.DisqualifiedPlayers[playerID] = true
		return Outcome{Action: ActionDisqualified, Count: count}
	}
	return Outcome{Action: ActionWarned, Count: count}
}

// StateFor maps a violation count onto the explicit state space.
func (t *Tracker) StateFor(count int) State {
	switch {
	case count <= 0:
		return StateClean
	case count >= t.maxWarnings:
		return StateDisqualified
	case count == t.maxWarnings-1:
		return StateFinalWarned
	default:
		return StateWarned
	}
}

// WarningMessage returns the deterministic tier wording for a warned count.
func (t *Tracker) WarningMessage(count int) string {
	if t.StateFor(count) == StateFinalWarned {
		return fmt.Sprintf("Final warning (%d/%d): one more tab switch and you will be disqualified", count, t.maxWarnings)
	}
	return fmt.Sprintf("Warning %d/%d: tab switching is not allowed during blind mode", count, t.maxWarnings)
}

// DisqualifiedMessage is the player-facing disqualification wording.
func (t *Tracker) DisqualifiedMessage() string {
	return fmt.Sprintf("You have been disqualified after %d tab switching violations", t.maxWarnings)
}
