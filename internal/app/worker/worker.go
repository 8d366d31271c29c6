package worker

import (
	"context"
	"log/slog"

	"github.com/OudonePKL/chaet-backend1/internal/core/contracts"
	"github.com/OudonePKL/chaet-backend1/internal/core/services"
)

// NotificationWorker drains the notification stream and pushes each
// entry to the target user's live connections. Entries are acked after
// delivery and removed to keep the stream bounded.
type NotificationWorker struct {
	log    *slog.Logger
	queue  contracts.NotificationQueue
	notify *services.NotifyService
	group  string
}

func NewNotificationWorker(
	log *slog.Logger,
	queue contracts.NotificationQueue,
	notify *services.NotifyService,
	group string,
) contracts.AsyncWorker {
	return &NotificationWorker{
		log:    log,
		queue:  queue,
		notify: notify,
		group:  group,
	}
}

func (w *NotificationWorker) Run(ctx context.Context) error {
	w.log.InfoContext(ctx, "worker - run - notification consumer started", "group", w.group)
	return w.queue.Subscribe(ctx, w.group, w.process)
}

func (w *NotificationWorker) process(ctx context.Context, entryID string, raw []byte) error {
	if err := w.notify.Deliver(ctx, raw); err != nil {
		w.log.ErrorContext(ctx, "worker - process - deliver failed", "entry_id", entryID, "err", err)
		return err
	}
	if err := w.queue.Ack(ctx, w.group, entryID); err != nil {
		w.log.ErrorContext(ctx, "worker - process - ack failed", "entry_id", entryID, "err", err)
		return err
	}
	if err := w.queue.Remove(ctx, entryID); err != nil {
		// Already acked; a leftover entry only costs stream space.
		w.log.ErrorContext(ctx, "worker - process - remove failed", "entry_id", entryID, "err", err)
	}
	return nil
}
