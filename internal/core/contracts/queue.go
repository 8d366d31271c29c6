package contracts

import "context"

// NotificationQueue decouples the message-creation path from delivery
// of per-user notifications. Entries are consumed by the notification
// worker with at-least-once semantics.
type NotificationQueue interface {
	Publish(ctx context.Context, payload []byte) error
	// Subscribe blocks, reading entries on behalf of the consumer group
	// and invoking handler for each. It returns when ctx is done.
	Subscribe(ctx context.Context, group string, handler func(ctx context.Context, entryID string, data []byte) error) error
	// Ack marks an entry as processed for the group.
	Ack(ctx context.Context, group, entryID string) error
	// Remove deletes a processed entry to keep the stream bounded.
	Remove(ctx context.Context, entryID string) error
}
