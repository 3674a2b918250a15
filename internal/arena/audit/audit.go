// Package audit persists accepted violation events outside the room record
// so operators can reconstruct what happened after a dispute. The tracker
// never reads any of this back; every sink is append-only.
package audit

import (
	"context"

	"go.uber.org/zap"

	"codeclash/internal/arena/model"
	"codeclash/pkg/utils/logger"
)

// Sink records one violation event. Implementations must tolerate being
// called concurrently for different rooms.
type Sink interface {
	Record(ctx context.Context, roomID string, event model.ViolationEvent) error
}

// MultiSink fans out to several sinks. A failing sink is logged and
// skipped; the last error is returned so callers can count failures, but
// delivery to the remaining sinks always proceeds.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink builds a fan-out over the given sinks, ignoring nils.
func NewMultiSink(sinks ...Sink) *MultiSink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &MultiSink{sinks: out}
}

// Record delivers the event to every sink.
func (m *MultiSink) Record(ctx context.Context, roomID string, event model.ViolationEvent) error {
	var lastErr error
	for _, s := range m.sinks {
		if err := s.Record(ctx, roomID, event); err != nil {
			lastErr = err
			logger.Warn(ctx, "audit sink failed",
				zap.String("room_id", roomID), zap.Error(err))
		}
	}
	return lastErr
}
