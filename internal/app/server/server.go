package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/OudonePKL/chaet-backend1/internal/app/server/handlers"
	"github.com/OudonePKL/chaet-backend1/internal/core/contracts"
	"github.com/OudonePKL/chaet-backend1/internal/core/domain"
	"github.com/OudonePKL/chaet-backend1/internal/core/services"
	"github.com/OudonePKL/chaet-backend1/pkg/middleware"
)

type Server struct {
	log           *slog.Logger
	mux           *http.ServeMux
	name          string
	addr          string
	chatHandler   *handlers.ChatHandler
	notifyHandler *handlers.NotifyHandler
}

func NewServer(
	log *slog.Logger,
	name, addr string,
	sessions *services.SessionService,
	auth domain.TokenVerifier,
	registry contracts.Registry,
) *Server {
	s := &Server{
		log:           log,
		mux:           http.NewServeMux(),
		name:          name,
		addr:          addr,
		chatHandler:   handlers.NewChatHandler(sessions),
		notifyHandler: handlers.NewNotifyHandler(auth, registry),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /ws/chat/{room_id}", s.chatHandler.Handler)
	s.mux.HandleFunc("GET /ws/notifications", s.notifyHandler.Handler)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (s *Server) Start(ctx context.Context) error {
	handler := middleware.RequestLogger(s.log)(
		middleware.TracerMiddleware(s.name)(s.mux),
	)
	server := &http.Server{
		Addr:    s.addr,
		Handler: handler,
		// No Read/WriteTimeout: they would sever long-lived websocket
		// connections. Per-frame deadlines live in the ws layer.
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	s.log.Info("server starting", "addr", s.addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
