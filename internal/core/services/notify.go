package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/OudonePKL/chaet-backend1/internal/core/contracts"
	"github.com/OudonePKL/chaet-backend1/internal/core/domain"
)

// notificationJob is the queue payload between the message-creation
// path and the notification worker.
type notificationJob struct {
	UserID    string    `json:"user_id"`
	Event     string    `json:"event"`
	RoomID    string    `json:"room_id"`
	MessageID string    `json:"message_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NotifyService routes per-user events to that user's own live
// connections, independent of room membership or current room focus.
type NotifyService struct {
	log      *slog.Logger
	queue    contracts.NotificationQueue
	registry contracts.Registry
}

func NewNotifyService(
	log *slog.Logger,
	queue contracts.NotificationQueue,
	registry contracts.Registry,
) *NotifyService {
	return &NotifyService{
		log:      log,
		queue:    queue,
		registry: registry,
	}
}

// EnqueueMessage publishes one notification job per room member other
// than the sender. Enqueue failures are logged per member; one bad
// entry does not stop the rest.
func (n *NotifyService) EnqueueMessage(ctx context.Context, msg *domain.Message, members []string) {
	for _, member := range members {
		if member == msg.SenderID {
			continue
		}
		job := notificationJob{
			UserID:    member,
			Event:     "new_message",
			RoomID:    msg.RoomID.String(),
			MessageID: msg.ID.String(),
			Message:   msg.Content,
			Timestamp: msg.CreatedAt,
		}
		raw, err := json.Marshal(job)
		if err != nil {
			n.log.ErrorContext(ctx, "notify - enqueue - marshal failed", "user_id", member, "err", err)
			continue
		}
		if err := n.queue.Publish(ctx, raw); err != nil {
			n.log.ErrorContext(ctx, "notify - enqueue - publish failed", "user_id", member, "message_id", msg.ID, "err", err)
			continue
		}
	}
}

// Deliver pushes one dequeued job to the target user's connections.
func (n *NotifyService) Deliver(ctx context.Context, raw []byte) error {
	var job notificationJob
	if err := json.Unmarshal(raw, &job); err != nil {
		n.log.ErrorContext(ctx, "notify - deliver - bad payload", "err", err)
		return err
	}
	n.registry.BroadcastToUser(ctx, job.UserID, domain.NotificationEvent{
		Type:      domain.EventNotification,
		Event:     job.Event,
		RoomID:    job.RoomID,
		MessageID: job.MessageID,
		Message:   job.Message,
		Timestamp: job.Timestamp,
	})
	return nil
}
