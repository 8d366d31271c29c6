package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/OudonePKL/chaet-backend1/internal/core/contracts"
	"github.com/OudonePKL/chaet-backend1/internal/core/domain"
)

// PresenceService tracks ephemeral per-user-per-room presence and
// typing state and broadcasts every change to the room group.
type PresenceService struct {
	log       *slog.Logger
	store     contracts.EphemeralStore
	registry  contracts.Registry
	statusTTL time.Duration
	typingTTL time.Duration
}

func NewPresenceService(
	log *slog.Logger,
	store contracts.EphemeralStore,
	registry contracts.Registry,
	statusTTL, typingTTL time.Duration,
) *PresenceService {
	return &PresenceService{
		log:       log,
		store:     store,
		registry:  registry,
		statusTTL: statusTTL,
		typingTTL: typingTTL,
	}
}

func presenceKey(roomID, userID string) string { return "presence:" + roomID + ":" + userID }
func typingKey(roomID, userID string) string   { return "typing:" + roomID + ":" + userID }

// SetStatus stores the user's status with a fresh liveness TTL and
// broadcasts the change. The store write happens before the broadcast;
// a store failure means nobody observes the change.
func (p *PresenceService) SetStatus(ctx context.Context, roomID, userID string, status domain.PresenceStatus) error {
	if !status.Valid() {
		return domain.ErrInvalidStatus
	}
	if err := p.store.Set(ctx, presenceKey(roomID, userID), string(status), p.statusTTL); err != nil {
		p.log.ErrorContext(ctx, "presence - set status - store write failed", "room_id", roomID, "user_id", userID, "err", err)
		return err
	}
	p.registry.Broadcast(ctx, roomID, domain.UserStatusEvent{
		Type:      domain.EventUserStatus,
		User:      userID,
		Status:    string(status),
		Timestamp: time.Now(),
	})
	return nil
}

// SetTyping updates the ephemeral typing flag, last write wins. The
// short TTL lets stale indicators expire on their own.
func (p *PresenceService) SetTyping(ctx context.Context, roomID, userID string, isTyping bool) error {
	var err error
	if isTyping {
		err = p.store.Set(ctx, typingKey(roomID, userID), strconv.FormatBool(true), p.typingTTL)
	} else {
		err = p.store.Delete(ctx, typingKey(roomID, userID))
	}
	if err != nil {
		p.log.ErrorContext(ctx, "presence - set typing - store write failed", "room_id", roomID, "user_id", userID, "err", err)
		return err
	}
	p.registry.Broadcast(ctx, roomID, domain.TypingStatusEvent{
		Type:      domain.EventTypingStatus,
		User:      userID,
		IsTyping:  isTyping,
		Timestamp: time.Now(),
	})
	return nil
}

// Clear is the disconnect hook: force typing off and status offline.
// Both broadcasts fire even if the store is unreachable; the TTL will
// reap whatever state the failed writes left behind. This is the
// observable "user left" signal, so it must not be swallowed.
func (p *PresenceService) Clear(ctx context.Context, roomID, userID string) error {
	errStatus := p.store.Set(ctx, presenceKey(roomID, userID), string(domain.PresenceOffline), p.statusTTL)
	p.registry.Broadcast(ctx, roomID, domain.UserStatusEvent{
		Type:      domain.EventUserStatus,
		User:      userID,
		Status:    string(domain.PresenceOffline),
		Timestamp: time.Now(),
	})
	errTyping := p.store.Delete(ctx, typingKey(roomID, userID))
	p.registry.Broadcast(ctx, roomID, domain.TypingStatusEvent{
		Type:      domain.EventTypingStatus,
		User:      userID,
		IsTyping:  false,
		Timestamp: time.Now(),
	})
	if err := errors.Join(errTyping, errStatus); err != nil {
		p.log.ErrorContext(ctx, "presence - clear - store cleanup failed", "room_id", roomID, "user_id", userID, "err", err)
		return err
	}
	return nil
}

// GetStatus reads the stored status; absent or expired entries read as
// offline.
func (p *PresenceService) GetStatus(ctx context.Context, roomID, userID string) (domain.PresenceStatus, error) {
	val, err := p.store.Get(ctx, presenceKey(roomID, userID))
	if err != nil {
		return "", err
	}
	if val == "" {
		return domain.PresenceOffline, nil
	}
	return domain.PresenceStatus(val), nil
}
