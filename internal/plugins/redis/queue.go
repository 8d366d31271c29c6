package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	notifyStream = "notifications"

	// Retry delay after a failed stream read, so an unreachable redis
	// does not turn the consumer into a hot error loop.
	readRetryDelay = time.Second
)

// RedisNotificationQueue is a Redis Stream carrying per-user
// notification entries from the message-creation path to the worker.
type RedisNotificationQueue struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisNotificationQueue(log *slog.Logger, rdb *redis.Client) *RedisNotificationQueue {
	return &RedisNotificationQueue{rdb: rdb, log: log}
}

func (q *RedisNotificationQueue) Publish(ctx context.Context, payload []byte) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: notifyStream,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": payload},
	}).Err()
}

func (q *RedisNotificationQueue) Subscribe(
	ctx context.Context,
	group string,
	handler func(ctx context.Context, entryID string, data []byte) error,
) error {
	err := q.rdb.XGroupCreateMkStream(ctx, notifyStream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	consumer := uuid.NewString()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{notifyStream, ">"},
			Count:    16,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() == nil {
				q.log.ErrorContext(ctx, "queue - subscribe - stream read failed", "stream", notifyStream, "err", err)
			}
			if err := waitRetry(ctx, readRetryDelay); err != nil {
				return err
			}
			continue
		}
		for _, stream := range res {
			for _, msg := range stream.Messages {
				raw, ok := msg.Values["data"].(string)
				if !ok {
					continue
				}
				if err := handler(ctx, msg.ID, []byte(raw)); err != nil {
					q.log.ErrorContext(ctx, "queue - subscribe - handler failed", "entry_id", msg.ID, "err", err)
				}
			}
		}
	}
}

// waitRetry blocks for the retry delay or until ctx ends, whichever
// comes first.
func waitRetry(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (q *RedisNotificationQueue) Ack(ctx context.Context, group, entryID string) error {
	return q.rdb.XAck(ctx, notifyStream, group, entryID).Err()
}

func (q *RedisNotificationQueue) Remove(ctx context.Context, entryID string) error {
	return q.rdb.XDel(ctx, notifyStream, entryID).Err()
}
