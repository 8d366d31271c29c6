package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/OudonePKL/chaet-backend1/internal/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueMessage_SkipsSender(t *testing.T) {
	queue := &mockQueue{}
	reg := newMockRegistry()
	svc := NewNotifyService(discardLogger(), queue, reg)

	msg := domain.NewMessage(uuid.New(), "u1", "hello everyone")
	svc.EnqueueMessage(context.Background(), msg, []string{"u1", "u2", "u3"})

	published := queue.getPublished()
	require.Len(t, published, 2)
	for _, raw := range published {
		var job notificationJob
		require.NoError(t, json.Unmarshal(raw, &job))
		assert.NotEqual(t, "u1", job.UserID)
		assert.Equal(t, "new_message", job.Event)
		assert.Equal(t, msg.RoomID.String(), job.RoomID)
		assert.Equal(t, msg.ID.String(), job.MessageID)
		assert.Equal(t, "hello everyone", job.Message)
	}
}

func TestEnqueueMessage_PublishFailureIsNonFatal(t *testing.T) {
	queue := &mockQueue{err: errors.New("stream full")}
	svc := NewNotifyService(discardLogger(), queue, newMockRegistry())

	msg := domain.NewMessage(uuid.New(), "u1", "hi")
	svc.EnqueueMessage(context.Background(), msg, []string{"u2", "u3"})

	assert.Empty(t, queue.getPublished())
}

func TestDeliver_PushesToUserConnections(t *testing.T) {
	reg := newMockRegistry()
	svc := NewNotifyService(discardLogger(), &mockQueue{}, reg)

	job := notificationJob{
		UserID:    "u2",
		Event:     "new_message",
		RoomID:    uuid.NewString(),
		MessageID: uuid.NewString(),
		Message:   "ping",
		Timestamp: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	require.NoError(t, err)

	require.NoError(t, svc.Deliver(context.Background(), raw))

	events := reg.userEvents["u2"]
	require.Len(t, events, 1)
	ev, ok := events[0].(domain.NotificationEvent)
	require.True(t, ok)
	assert.Equal(t, domain.EventNotification, ev.Type)
	assert.Equal(t, "new_message", ev.Event)
	assert.Equal(t, job.RoomID, ev.RoomID)
	assert.Equal(t, job.MessageID, ev.MessageID)
	assert.Equal(t, "ping", ev.Message)
}

func TestDeliver_BadPayload(t *testing.T) {
	reg := newMockRegistry()
	svc := NewNotifyService(discardLogger(), &mockQueue{}, reg)

	err := svc.Deliver(context.Background(), []byte("{not json"))
	assert.Error(t, err)
	assert.Empty(t, reg.userEvents)
}
