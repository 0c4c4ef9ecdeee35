package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"carehome-go/internal/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const alertEventSchemaVersion = 1

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AlertEvent is the JSON value written for each new alert.
type AlertEvent struct {
	SchemaVersion int          `json:"schema_version"`
	Alert         models.Alert `json:"alert"`
	PublishedAt   time.Time    `json:"published_at"`
}

// KafkaPublisher writes new alerts to a topic, keyed by resident so one
// resident's alerts stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	log    *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("brokers cannot be empty")
	}
	if topic == "" {
		return nil, errors.New("topic cannot be empty")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	log.Info("kafka alert publisher configured",
		zap.Strings("brokers", brokers),
		zap.String("topic", topic))

	return &KafkaPublisher{writer: writer, topic: topic, log: log}, nil
}

func (k *KafkaPublisher) Name() string { return "kafka" }

func buildMessage(a models.Alert, now time.Time) (kafka.Message, error) {
	payload, err := json.Marshal(AlertEvent{
		SchemaVersion: alertEventSchemaVersion,
		Alert:         a,
		PublishedAt:   now.UTC(),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal alert event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(strconv.Itoa(a.ResidentID)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "schema_version", Value: []byte(strconv.Itoa(alertEventSchemaVersion))},
			{Key: "alert_type", Value: []byte(a.AlertType)},
			{Key: "severity", Value: []byte(a.Severity)},
		},
		Time: now,
	}, nil
}

func (k *KafkaPublisher) Notify(ctx context.Context, a models.Alert) error {
	msg, err := buildMessage(a, time.Now())
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write alert %d to %s: %w", a.ID, k.topic, err)
	}
	k.log.Debug("alert published to kafka",
		zap.Int64("alert_id", a.ID),
		zap.String("topic", k.topic))
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
