package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/OudonePKL/chaet-backend1/internal/app/server/ws"
	"github.com/OudonePKL/chaet-backend1/internal/core/contracts"
	"github.com/OudonePKL/chaet-backend1/internal/core/domain"
	"github.com/OudonePKL/chaet-backend1/internal/platform/logger"

	"github.com/google/uuid"
)

// notifyClient registers a notification-only connection in the
// per-user index; it belongs to no room group.
type notifyClient struct {
	id     string
	userID string
	conn   *ws.Client
}

func (c *notifyClient) ID() string     { return c.id }
func (c *notifyClient) UserID() string { return c.userID }
func (c *notifyClient) RoomID() string { return "" }
func (c *notifyClient) Send(ctx context.Context, data []byte) error {
	return c.conn.Send(ctx, data)
}
func (c *notifyClient) Close() {
	c.conn.CloseWithCode(domain.CloseNormal, "")
}

// NotifyHandler serves the per-user notification channel: cross-room
// message notifications plus liveness ping/pong.
type NotifyHandler struct {
	auth     domain.TokenVerifier
	registry contracts.Registry
}

func NewNotifyHandler(auth domain.TokenVerifier, registry contracts.Registry) *NotifyHandler {
	return &NotifyHandler{auth: auth, registry: registry}
}

func (h *NotifyHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	token := extractToken(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "notify handler - upgrade failed", "err", err)
		return
	}

	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	defer cancel()

	websock := ws.NewWebSocket(ctx, conn)
	client := ws.NewClient(ctx, websock)

	userID, err := h.auth.Verify(token)
	if err != nil {
		log.WarnContext(r.Context(), "notify handler - unauthenticated connection refused", "err", err)
		client.CloseWithCode(domain.CloseUnauthenticated, "unauthenticated")
		return
	}

	nc := &notifyClient{id: uuid.NewString(), userID: userID, conn: client}
	if err := h.registry.Register(nc); err != nil {
		log.ErrorContext(r.Context(), "notify handler - register failed", "user_id", userID, "err", err)
		client.CloseWithCode(domain.CloseInternalError, "internal error")
		return
	}
	defer client.CloseWithCode(domain.CloseNormal, "")
	defer h.registry.Unregister(nc)

	log.InfoContext(r.Context(), "notify handler - notification channel established", "user_id", userID)

	websock.ReadLoop(func(data []byte) {
		var in struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return
		}
		if in.Action == "ping" {
			pong, err := json.Marshal(domain.PongEvent{
				Type:      domain.EventPong,
				Timestamp: time.Now(),
			})
			if err != nil {
				return
			}
			_ = client.Send(ctx, pong)
		}
	})
}
