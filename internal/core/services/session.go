package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OudonePKL/chaet-backend1/internal/core/contracts"
	"github.com/OudonePKL/chaet-backend1/internal/core/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Per-connection protocol states.
const (
	stateConnecting int32 = iota
	stateActive
	stateClosed
)

// SessionService runs the per-connection room protocol: handshake
// (auth + membership + history replay), frame dispatch, and ordered
// teardown.
type SessionService struct {
	log              *slog.Logger
	auth             domain.TokenVerifier
	rooms            domain.RoomRepository
	messages         domain.MessageRepository
	registry         contracts.Registry
	delivery         *DeliveryService
	presence         *PresenceService
	historyLimit     int
	handshakeTimeout time.Duration
}

func NewSessionService(
	log *slog.Logger,
	auth domain.TokenVerifier,
	rooms domain.RoomRepository,
	messages domain.MessageRepository,
	registry contracts.Registry,
	delivery *DeliveryService,
	presence *PresenceService,
	historyLimit int,
	handshakeTimeout time.Duration,
) *SessionService {
	return &SessionService{
		log:              log,
		auth:             auth,
		rooms:            rooms,
		messages:         messages,
		registry:         registry,
		delivery:         delivery,
		presence:         presence,
		historyLimit:     historyLimit,
		handshakeTimeout: handshakeTimeout,
	}
}

// Session is one live room connection with its explicit protocol
// state. Created in Connecting, promoted to Active on a successful
// handshake, and torn down exactly once on Close.
type Session struct {
	svc       *SessionService
	client    *sessionClient
	roomID    uuid.UUID
	userID    string
	state     atomic.Int32
	closeOnce sync.Once
}

// sessionClient adapts the raw transport into the registry's Client.
type sessionClient struct {
	id     string
	userID string
	roomID string
	conn   contracts.Conn
}

func (c *sessionClient) ID() string     { return c.id }
func (c *sessionClient) UserID() string { return c.userID }
func (c *sessionClient) RoomID() string { return c.roomID }
func (c *sessionClient) Send(ctx context.Context, data []byte) error {
	return c.conn.Send(ctx, data)
}
func (c *sessionClient) Close() {
	c.conn.CloseWithCode(domain.CloseNormal, "")
}

// Connect performs the Connecting → Active handshake. On any refusal
// the transport is closed with a distinct code so the client can tell
// unauthenticated, room-not-found and not-a-member apart. The whole
// handshake runs under a bounded timeout.
func (s *SessionService) Connect(ctx context.Context, conn contracts.Conn, credential, roomID string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.handshakeTimeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "SessionService.Connect")
	defer span.End()

	userID, err := s.auth.Verify(credential)
	if err != nil {
		span.RecordError(err)
		s.log.WarnContext(ctx, "session - connect - unauthenticated connection refused", "err", err)
		conn.CloseWithCode(domain.CloseUnauthenticated, "unauthenticated")
		return nil, domain.ErrInvalidCredential
	}
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("room_id", roomID))

	rid, err := uuid.Parse(roomID)
	if err != nil {
		s.log.WarnContext(ctx, "session - connect - bad room id", "room_id", roomID, "user_id", userID)
		conn.CloseWithCode(domain.CloseRoomNotFound, "room not found")
		return nil, domain.ErrRoomNotFound
	}
	if _, err := s.rooms.GetRoomByID(ctx, rid); err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrRoomNotFound) {
			s.log.WarnContext(ctx, "session - connect - room not found", "room_id", roomID, "user_id", userID)
			conn.CloseWithCode(domain.CloseRoomNotFound, "room not found")
			return nil, err
		}
		s.closeInternal(ctx, conn, err)
		return nil, err
	}
	member, err := s.rooms.IsMember(ctx, rid, userID)
	if err != nil {
		span.RecordError(err)
		s.closeInternal(ctx, conn, err)
		return nil, err
	}
	if !member {
		s.log.WarnContext(ctx, "session - connect - non-member refused", "room_id", roomID, "user_id", userID)
		conn.CloseWithCode(domain.CloseNotAMember, "not a room member")
		return nil, domain.ErrNotAMember
	}

	sess := &Session{
		svc:    s,
		roomID: rid,
		userID: userID,
		client: &sessionClient{
			id:     uuid.NewString(),
			userID: userID,
			roomID: roomID,
			conn:   conn,
		},
	}
	if err := s.registry.Register(sess.client); err != nil {
		span.RecordError(err)
		s.closeInternal(ctx, conn, err)
		return nil, err
	}

	if err := s.replayHistory(ctx, sess); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history replay failed")
		s.registry.Unregister(sess.client)
		s.closeInternal(ctx, conn, err)
		return nil, err
	}

	s.registry.Broadcast(ctx, roomID, domain.ChatMessageEvent{
		Type:        domain.EventChatMessage,
		Message:     fmt.Sprintf("%s joined the chat", userID),
		User:        userID,
		MessageType: domain.MessageTypeJoin,
		Timestamp:   time.Now(),
	})
	if err := s.presence.SetStatus(ctx, roomID, userID, domain.PresenceOnline); err != nil {
		// Presence lapses to the TTL default; the session itself is fine.
		s.log.WarnContext(ctx, "session - connect - initial presence write failed", "room_id", roomID, "user_id", userID, "err", err)
	}

	sess.state.Store(stateActive)
	s.log.InfoContext(ctx, "session - connect - active", "room_id", roomID, "user_id", userID, "conn_id", sess.client.id)
	return sess, nil
}

// replayHistory sends the bounded recent-message window to this
// connection only, oldest-first, and drives sent → delivered for every
// replayed message authored by someone else.
func (s *SessionService) replayHistory(ctx context.Context, sess *Session) error {
	msgs, err := s.messages.ListRecent(ctx, sess.roomID, s.historyLimit)
	if err != nil {
		return err
	}
	roomID := sess.roomID.String()
	for _, m := range msgs {
		data, err := json.Marshal(domain.ChatMessageEvent{
			Type:        domain.EventChatMessage,
			MessageID:   m.ID.String(),
			Message:     m.Content,
			User:        m.SenderID,
			MessageType: domain.MessageTypeMessage,
			Status:      string(m.Status),
			Timestamp:   m.CreatedAt,
		})
		if err != nil {
			return err
		}
		if err := sess.client.Send(ctx, data); err != nil {
			return err
		}
		if m.SenderID != sess.userID && m.Status == domain.StatusSent {
			if _, err := s.delivery.Advance(ctx, m.ID, domain.StatusDelivered, sess.userID, roomID); err != nil {
				s.log.ErrorContext(ctx, "session - replay - mark delivered failed", "message_id", m.ID, "user_id", sess.userID, "err", err)
			}
		}
	}
	return nil
}

func (s *SessionService) closeInternal(ctx context.Context, conn contracts.Conn, err error) {
	reason := "internal error"
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "handshake timeout"
	}
	s.log.ErrorContext(ctx, "session - connect - "+reason, "err", err)
	conn.CloseWithCode(domain.CloseInternalError, reason)
}

// Dispatch handles one inbound frame on an Active session. Failures
// are reported to this connection only as an error frame; they never
// tear the connection down or touch room-group state. A panic inside a
// handler is converted into an error frame as well.
func (s *Session) Dispatch(ctx context.Context, raw []byte) {
	if s.state.Load() != stateActive {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.svc.log.ErrorContext(ctx, "session - dispatch - panic recovered", "room_id", s.client.roomID, "user_id", s.userID, "panic", r)
			s.sendError(ctx, "internal error")
		}
	}()

	var frame domain.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.sendError(ctx, domain.ErrMalformedFrame.Error())
		return
	}

	roomID := s.client.roomID
	var err error
	switch frame.Type {
	case domain.FrameStatus:
		status := domain.PresenceStatus(frame.Status)
		if !status.Valid() {
			err = domain.ErrInvalidStatus
			break
		}
		err = s.svc.presence.SetStatus(ctx, roomID, s.userID, status)
	case domain.FrameTyping:
		err = s.svc.presence.SetTyping(ctx, roomID, s.userID, frame.IsTyping)
	case domain.FrameReadReceipt:
		var msgID uuid.UUID
		if msgID, err = uuid.Parse(frame.MessageID); err != nil {
			err = domain.ErrInvalidMessageID
			break
		}
		_, err = s.svc.delivery.Advance(ctx, msgID, domain.StatusSeen, s.userID, roomID)
	default:
		// Unrecognized kinds are treated as message sends.
		fallthrough
	case domain.FrameMessage:
		// Typing stops when a message goes out.
		if terr := s.svc.presence.SetTyping(ctx, roomID, s.userID, false); terr != nil {
			s.svc.log.WarnContext(ctx, "session - dispatch - typing reset failed", "room_id", roomID, "user_id", s.userID, "err", terr)
		}
		_, err = s.svc.delivery.Create(ctx, s.roomID, s.userID, frame.Message)
	}
	if err != nil {
		s.svc.log.ErrorContext(ctx, "session - dispatch - frame failed", "room_id", roomID, "user_id", s.userID, "frame", frame.Type, "err", err)
		s.sendError(ctx, err.Error())
	}
}

// Close runs the Active → Closed teardown exactly once, in order:
// presence offline, typing off, leave broadcast, deregistration.
// Racing triggers (transport close vs forced close) collapse into a
// single run.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		prev := s.state.Swap(stateClosed)
		roomID := s.client.roomID
		if prev == stateActive {
			if err := s.svc.presence.Clear(ctx, roomID, s.userID); err != nil {
				s.svc.log.ErrorContext(ctx, "session - close - presence clear failed", "room_id", roomID, "user_id", s.userID, "err", err)
			}
			s.svc.registry.Broadcast(ctx, roomID, domain.ChatMessageEvent{
				Type:        domain.EventChatMessage,
				Message:     fmt.Sprintf("%s left the chat", s.userID),
				User:        s.userID,
				MessageType: domain.MessageTypeLeave,
				Timestamp:   time.Now(),
			})
		}
		s.svc.registry.Unregister(s.client)
		s.client.conn.CloseWithCode(domain.CloseNormal, "")
		s.svc.log.InfoContext(ctx, "session - close - torn down", "room_id", roomID, "user_id", s.userID, "conn_id", s.client.id)
	})
}

// UserID reports the authenticated identity bound to this session.
func (s *Session) UserID() string { return s.userID }

func (s *Session) sendError(ctx context.Context, msg string) {
	data, err := json.Marshal(domain.ErrorEvent{Type: domain.EventError, Message: msg})
	if err != nil {
		return
	}
	if err := s.client.Send(ctx, data); err != nil {
		s.svc.log.WarnContext(ctx, "session - dispatch - error frame send failed", "user_id", s.userID, "err", err)
	}
}
