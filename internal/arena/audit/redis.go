package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"codeclash/internal/arena/model"
	appErr "codeclash/pkg/errors"
)

const defaultEventTTL = 24 * time.Hour

// RedisSink appends violation events to a per-room redis list.
type RedisSink struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSink creates a redis-backed audit sink. ttl <= 0 selects the
// default of 24h; the TTL is refreshed on every append.
func NewRedisSink(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisSink {
	if keyPrefix == "" {
		keyPrefix = "arena:violations"
	}
	if ttl <= 0 {
		ttl = defaultEventTTL
	}
	return &RedisSink{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *RedisSink) key(roomID string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, roomID)
}

// Record appends the event to the room's list.
func (s *RedisSink) Record(ctx context.Context, roomID string, event model.ViolationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return appErr.Wrapf(err, appErr.AuditPublishFailed, "marshal violation event failed")
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key(roomID), payload)
	pipe.Expire(ctx, s.key(roomID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return appErr.Wrapf(err, appErr.AuditPublishFailed, "append violation event failed")
	}
	return nil
}

// Events returns the room's full event log in emission order.
func (s *RedisSink) Events(ctx context.Context, roomID string) ([]model.ViolationEvent, error) {
	raw, err := s.client.LRange(ctx, s.key(roomID), 0, -1).Result()
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.CacheError, "read violation events failed")
	}
	events := make([]model.ViolationEvent, 0, len(raw))
	for _, item := range raw {
		var ev model.ViolationEvent
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, appErr.Wrapf(err, appErr.CacheError, "decode violation event failed")
		}
		events = append(events, ev)
	}
	return events, nil
}
