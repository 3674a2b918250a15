package integrity

import (
	"context"

	"go.uber.org/zap"

	"codeclash/internal/arena/model"
	"codeclash/internal/arena/registry"
	"codeclash/pkg/utils/logger"
)

// DisqualificationReason is carried by the room-wide broadcast.
const DisqualificationReason = "Tab switching violation"

// Outbound event names.
const (
	EventWarning            = "integrity_warning"
	EventDisqualified       = "disqualified"
	EventPlayerDisqualified = "player_disqualified"
	EventRoundProgress      = "round_progress"
)

// Notifier delivers outbound messages. Implementations must not block the
// caller; a slow client is the transport's problem.
type Notifier interface {
	NotifyPlayer(ctx context.Context, roomID, playerID, event string, payload interface{})
	Broadcast(ctx context.Context, roomID, event string, payload interface{})
}

// AuditSink records accepted violation events for audit. Sink failures are
// logged and never abort the report.
type AuditSink interface {
	Record(ctx context.Context, roomID string, event model.ViolationEvent) error
}

// Coordinator is the single entry point for incoming violation reports. It
// delegates the state transition to the tracker and fans out notifications
// and auto-submissions.
type Coordinator struct {
	rooms    *registry.Registry
	tracker  *Tracker
	auto     *AutoSubmitter
	notifier Notifier
	audit    AuditSink
}

// NewCoordinator wires the coordinator. audit may be nil.
func NewCoordinator(rooms *registry.Registry, tracker *Tracker, auto *AutoSubmitter, notifier Notifier, audit AuditSink) *Coordinator {
	return &Coordinator{
		rooms:    rooms,
		tracker:  tracker,
		auto:     auto,
		notifier: notifier,
		audit:    audit,
	}
}

// HandleViolationReport processes one violation report for (room, player).
// The registry serializes reports per room, so two near-simultaneous
// reports can never both observe the same count.
func (c *Coordinator) HandleViolationReport(ctx context.Context, roomID, playerID string) (Outcome, error) {
	var outcome Outcome

	err := c.rooms.WithRoom(roomID, func(room *model.Room) error {
		outcome = c.tracker.ReportViolation(room, playerID)

		switch outcome.Action {
		case ActionIgnored:
			logger.Debug(ctx, "violation report ignored",
				zap.String("room_id", roomID),
				zap.String("player_id", playerID),
				zap.String("reason", outcome.Reason))
			return nil

		case ActionWarned:
			c.recordAudit(ctx, room, roomID)
			c.notifier.NotifyPlayer(ctx, roomID, playerID, EventWarning, model.WarningMessage{
				Warnings:    outcome.Count,
				MaxWarnings: c.tracker.MaxWarnings(),
				Message:     c.tracker.WarningMessage(outcome.Count),
			})

		case ActionDisqualified:
			c.recordAudit(ctx, room, roomID)
			c.disqualify(ctx, room, roomID, playerID, outcome)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

// disqualify runs the full disqualification fan-out. Missing player
// metadata degrades to a placeholder; disqualification and auto-submission
// always complete once the threshold is reached.
func (c *Coordinator) disqualify(ctx context.Context, room *model.Room, roomID, playerID string, outcome Outcome) {
	username := PlaceholderUsername
	if p, ok := room.FindPlayer(playerID); ok && p.Username != "" {
		username = p.Username
	}

	c.notifier.NotifyPlayer(ctx, roomID, playerID, EventDisqualified, model.WarningMessage{
		Warnings:    outcome.Count,
		MaxWarnings: c.tracker.MaxWarnings(),
		Message:     c.tracker.DisqualifiedMessage(),
	})
	c.notifier.Broadcast(ctx, roomID, EventPlayerDisqualified, model.DisqualifiedBroadcast{
		PlayerID: playerID,
		Username: username,
		Reason:   DisqualificationReason,
	})

	round := room.CurrentLevel
	c.auto.AutoSubmit(room, playerID, round)

	c.notifier.Broadcast(ctx, roomID, EventRoundProgress, model.RoundProgress{
		PlayerID:       playerID,
		Username:       username + " (disqualified)",
		TotalSubmitted: room.SubmittedCount(round),
		TotalPlayers:   len(room.Players),
		Round:          round,
	})

	logger.Info(ctx, "player disqualified",
		zap.String("room_id", roomID),
		zap.String("player_id", playerID),
		zap.Int("violations", outcome.Count))
}

func (c *Coordinator) recordAudit(ctx context.Context, room *model.Room, roomID string) {
	if c.audit == nil || len(room.ViolationEvents) == 0 {
		return
	}
	event := room.ViolationEvents[len(room.ViolationEvents)-1]
	if err := c.audit.Record(ctx, roomID, event); err != nil {
		logger.Warn(ctx, "audit sink record failed",
			zap.String("room_id", roomID), zap.Error(err))
	}
}
