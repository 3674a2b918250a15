package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"codeclash/internal/arena/model"
	appErr "codeclash/pkg/errors"
)

// KafkaSink publishes violation events to a topic for external consumers
// (replay dashboards, tournament operators). Events are keyed by room id so
// one room's log stays ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
}

// KafkaConfig holds producer settings for the violation event topic.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
}

// NewKafkaSink creates a kafka-backed audit sink.
func NewKafkaSink(cfg KafkaConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, appErr.ValidationError("brokers", "required")
	}
	if cfg.Topic == "" {
		return nil, appErr.ValidationError("topic", "required")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 100 * time.Millisecond
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaSink{writer: writer}, nil
}

// Record publishes one event.
func (s *KafkaSink) Record(ctx context.Context, roomID string, event model.ViolationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return appErr.Wrapf(err, appErr.AuditPublishFailed, "marshal violation event failed")
	}
	msg := kafka.Message{
		Key:   []byte(roomID),
		Value: payload,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return appErr.Wrapf(err, appErr.AuditPublishFailed, "publish violation event failed")
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
