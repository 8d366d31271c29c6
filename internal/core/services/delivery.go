package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/OudonePKL/chaet-backend1/internal/core/contracts"
	"github.com/OudonePKL/chaet-backend1/internal/core/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("chat-core")

// DeliveryService owns the sent → delivered → seen lifecycle of every
// message. Each transition persists before it broadcasts, so a client
// never observes an event ahead of its durable record.
type DeliveryService struct {
	log      *slog.Logger
	registry contracts.Registry
	messages domain.MessageRepository
	rooms    domain.RoomRepository
	notify   *NotifyService

	mu    sync.Mutex
	locks map[uuid.UUID]*msgLock
}

type msgLock struct {
	mu   sync.Mutex
	refs int
}

func NewDeliveryService(
	log *slog.Logger,
	registry contracts.Registry,
	messages domain.MessageRepository,
	rooms domain.RoomRepository,
	notify *NotifyService,
) *DeliveryService {
	return &DeliveryService{
		log:      log,
		registry: registry,
		messages: messages,
		rooms:    rooms,
		notify:   notify,
		locks:    make(map[uuid.UUID]*msgLock),
	}
}

// lockMessage serializes transitions per message id so concurrent
// delivered/seen requests cannot interleave around the storage CAS.
func (s *DeliveryService) lockMessage(id uuid.UUID) func() {
	s.mu.Lock()
	l := s.locks[id]
	if l == nil {
		l = &msgLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// Create persists a new message, advances it to sent, and broadcasts
// the full payload to the room. The sender receives its own echo as
// the optimistic-UI confirmation. Recipients with a live connection in
// the group drive the sent → delivered transition immediately; every
// other member gets a cross-room notification enqueued.
func (s *DeliveryService) Create(ctx context.Context, roomID uuid.UUID, senderID, content string) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "DeliveryService.Create", trace.WithAttributes(
		attribute.String("room_id", roomID.String()),
		attribute.String("sender_id", senderID),
	))
	defer span.End()

	msg := domain.NewMessage(roomID, senderID, content)
	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.log.ErrorContext(ctx, "delivery - create - persist failed", "room_id", roomID, "sender_id", senderID, "err", err)
		return nil, err
	}
	if _, err := s.messages.AdvanceStatus(ctx, msg.ID, domain.StatusSent); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "advance to sent failed")
		s.log.ErrorContext(ctx, "delivery - create - advance to sent failed", "message_id", msg.ID, "err", err)
		return nil, err
	}
	msg.Status = domain.StatusSent

	room := roomID.String()
	s.registry.Broadcast(ctx, room, domain.ChatMessageEvent{
		Type:        domain.EventChatMessage,
		MessageID:   msg.ID.String(),
		Message:     msg.Content,
		User:        msg.SenderID,
		MessageType: domain.MessageTypeMessage,
		Status:      string(domain.StatusSent),
		Timestamp:   msg.CreatedAt,
	})

	// Push to an open connection counts as delivery. The CAS makes the
	// first present recipient win; the loop stops there.
	for _, userID := range s.registry.RoomUsers(room) {
		if userID == senderID {
			continue
		}
		advanced, err := s.Advance(ctx, msg.ID, domain.StatusDelivered, userID, room)
		if err != nil {
			s.log.ErrorContext(ctx, "delivery - create - mark delivered failed", "message_id", msg.ID, "user_id", userID, "err", err)
			continue
		}
		if advanced {
			msg.Status = domain.StatusDelivered
			break
		}
	}

	members, err := s.rooms.ListMembers(ctx, roomID)
	if err != nil {
		// The message is already durable and broadcast; a failed member
		// lookup only costs the offline notifications.
		s.log.ErrorContext(ctx, "delivery - create - list members failed", "room_id", roomID, "err", err)
		return msg, nil
	}
	s.notify.EnqueueMessage(ctx, msg, members)
	return msg, nil
}

// Advance requests a forward transition for one message. Stale and
// duplicate requests (including re-marking a seen message) are silent
// no-ops; only an actual advance is persisted and broadcast.
func (s *DeliveryService) Advance(ctx context.Context, msgID uuid.UUID, target domain.MessageStatus, userID, roomID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "DeliveryService.Advance", trace.WithAttributes(
		attribute.String("message_id", msgID.String()),
		attribute.String("target", string(target)),
	))
	defer span.End()

	unlock := s.lockMessage(msgID)
	defer unlock()

	advanced, err := s.messages.AdvanceStatus(ctx, msgID, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status cas failed")
		s.log.ErrorContext(ctx, "delivery - advance - status cas failed", "message_id", msgID, "target", target, "err", err)
		return false, err
	}
	if !advanced {
		return false, nil
	}
	s.registry.Broadcast(ctx, roomID, domain.MessageStatusEvent{
		Type:      domain.EventMessageStatus,
		MessageID: msgID.String(),
		Status:    string(target),
		User:      userID,
		Timestamp: time.Now(),
	})
	s.log.InfoContext(ctx, "delivery - advance - status updated", "message_id", msgID, "status", target, "user_id", userID)
	return true, nil
}
