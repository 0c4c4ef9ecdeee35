package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"carehome-go/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestNewKafkaPublisherValidation(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "care.alerts", zap.NewNop())
	assert.EqualError(t, err, "brokers cannot be empty")

	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "", zap.NewNop())
	assert.EqualError(t, err, "topic cannot be empty")

	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "care.alerts", zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	a := models.Alert{ID: 12, ResidentID: 7, AlertType: models.AlertFoodMissed, Severity: models.SeverityCritical}

	msg, err := buildMessage(a, now)
	require.NoError(t, err)
	assert.Equal(t, "7", string(msg.Key))
	assert.Equal(t, now, msg.Time)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "1", headers["schema_version"])
	assert.Equal(t, models.AlertFoodMissed, headers["alert_type"])
	assert.Equal(t, models.SeverityCritical, headers["severity"])

	var ev AlertEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, int64(12), ev.Alert.ID)
	assert.Equal(t, 1, ev.SchemaVersion)
}

func TestKafkaNotify(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaPublisher{writer: w, topic: "care.alerts", log: zap.NewNop()}

	require.NoError(t, p.Notify(context.Background(), models.Alert{ID: 1, ResidentID: 2}))
	require.Len(t, w.msgs, 1)

	w.err = errors.New("leader not available")
	assert.ErrorContains(t, p.Notify(context.Background(), models.Alert{ID: 2}), "leader not available")
}
