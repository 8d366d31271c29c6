package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/OudonePKL/chaet-backend1/internal/app/server/ws"
	"github.com/OudonePKL/chaet-backend1/internal/core/services"
	"github.com/OudonePKL/chaet-backend1/internal/platform/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // tighten later
	},
}

// extractToken pulls the credential from the query string first and
// falls back to the Authorization header.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// ChatHandler upgrades room connections and hands them to the session
// protocol. Authentication happens after the upgrade so refusals reach
// the client as distinct websocket close codes.
type ChatHandler struct {
	sessions *services.SessionService
}

func NewChatHandler(sessions *services.SessionService) *ChatHandler {
	return &ChatHandler{sessions: sessions}
}

func (h *ChatHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	roomID := r.PathValue("room_id")
	token := extractToken(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade failed", "err", err)
		return
	}

	// The session outlives the HTTP request context.
	sessionCtx := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithCancel(sessionCtx)
	defer cancel()

	websock := ws.NewWebSocket(ctx, conn)
	client := ws.NewClient(ctx, websock)

	sess, err := h.sessions.Connect(ctx, client, token, roomID)
	if err != nil {
		// Connect already closed the transport with the right code.
		return
	}
	defer sess.Close(ctx)

	log.InfoContext(r.Context(), "ws handler - room connection established", "room_id", roomID, "user_id", sess.UserID())

	// Frames are dispatched synchronously so one connection's requests
	// are processed strictly in arrival order.
	websock.ReadLoop(func(data []byte) {
		sess.Dispatch(ctx, data)
	})
}
