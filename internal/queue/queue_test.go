package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPublisher_DisabledWithoutURL(t *testing.T) {
	p := NewPublisher("", nil)
	assert.False(t, p.Enabled())
	err := p.Publish(context.Background(), QueueNotificationCreated, NotificationCreatedEvent{})
	assert.ErrorIs(t, err, ErrPublisherDisabled)
	assert.NoError(t, p.Close())
}

func TestConsumer_HandleNotification(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c := NewConsumer("amqp://unused", zap.New(core))

	body, err := json.Marshal(NotificationCreatedEvent{
		UserID: "u1", Type: "BRIEFING_APPROVED", Title: "ok", Email: true, CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, c.Handle(QueueNotificationCreated, body))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "notification dispatch requested", entry.Message)
	assert.Equal(t, "u1", entry.ContextMap()["user_id"])
	assert.Equal(t, true, entry.ContextMap()["email"])
}

func TestConsumer_HandleVerificationDoesNotLogLink(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c := NewConsumer("amqp://unused", zap.New(core))

	body, err := json.Marshal(VerificationRequestedEvent{
		UserID: "u1", Email: "ana@example.com", Link: "https://api/email-verification?token=secret",
	})
	require.NoError(t, err)

	require.NoError(t, c.Handle(QueueVerificationRequired, body))
	require.Equal(t, 1, logs.Len())
	for _, v := range logs.All()[0].ContextMap() {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "secret")
		}
	}
}

func TestConsumer_RejectsMalformedMessages(t *testing.T) {
	c := NewConsumer("amqp://unused", zap.NewNop())

	assert.Error(t, c.Handle(QueueNotificationCreated, []byte("{not json")))
	assert.Error(t, c.Handle(QueueNotificationCreated, []byte(`{"type":"NEW_COMMENT"}`)))
	assert.Error(t, c.Handle("unknown.queue", []byte(`{}`)))
}

func TestConsumer_RunWithoutURL(t *testing.T) {
	err := NewConsumer("", nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrPublisherDisabled)
}
