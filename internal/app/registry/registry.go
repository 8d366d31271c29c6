package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/OudonePKL/chaet-backend1/internal/core/contracts"
	"github.com/OudonePKL/chaet-backend1/internal/core/domain"
)

// group is the set of live connections subscribed to one room. Each
// group carries its own lock so unrelated rooms stay independent.
type group struct {
	mu      sync.RWMutex
	clients map[string]contracts.Client // conn id → client
}

type Registry struct {
	log *slog.Logger

	mu    sync.RWMutex
	rooms map[string]*group
	conns map[string]contracts.Client            // conn id → client, at most one entry per handle
	users map[string]map[string]contracts.Client // user id → conn id → client
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:   log,
		rooms: make(map[string]*group),
		conns: make(map[string]contracts.Client),
		users: make(map[string]map[string]contracts.Client),
	}
}

func (r *Registry) Register(c contracts.Client) error {
	r.mu.Lock()
	if _, exists := r.conns[c.ID()]; exists {
		r.mu.Unlock()
		return domain.ErrAlreadyRegistered
	}
	r.conns[c.ID()] = c
	if r.users[c.UserID()] == nil {
		r.users[c.UserID()] = make(map[string]contracts.Client)
	}
	r.users[c.UserID()][c.ID()] = c

	// The group insertion stays inside the registry lock so a racing
	// Unregister cannot reap the group between the lookup and the
	// insert, which would leave this client in an orphaned group.
	var count int
	roomID := c.RoomID()
	if roomID != "" {
		g := r.rooms[roomID]
		if g == nil {
			g = &group{clients: make(map[string]contracts.Client)}
			r.rooms[roomID] = g
		}
		g.mu.Lock()
		g.clients[c.ID()] = c
		count = len(g.clients)
		g.mu.Unlock()
	}
	r.mu.Unlock()

	if roomID != "" {
		r.log.Info("registry - register - client joined room", "room_id", roomID, "user_id", c.UserID(), "conn_id", c.ID(), "clients", count)
	} else {
		r.log.Info("registry - register - notification client added", "user_id", c.UserID(), "conn_id", c.ID())
	}
	return nil
}

func (r *Registry) Unregister(c contracts.Client) {
	r.mu.Lock()
	if _, exists := r.conns[c.ID()]; !exists {
		r.mu.Unlock()
		return
	}
	delete(r.conns, c.ID())
	if byConn := r.users[c.UserID()]; byConn != nil {
		delete(byConn, c.ID())
		if len(byConn) == 0 {
			delete(r.users, c.UserID())
		}
	}
	g := r.rooms[c.RoomID()]
	r.mu.Unlock()

	if g == nil {
		return
	}
	g.mu.Lock()
	delete(g.clients, c.ID())
	count := len(g.clients)
	g.mu.Unlock()

	if count == 0 {
		r.mu.Lock()
		// Re-check under the registry lock; a racing Register may have
		// repopulated the group.
		if g2 := r.rooms[c.RoomID()]; g2 == g {
			g.mu.RLock()
			empty := len(g.clients) == 0
			g.mu.RUnlock()
			if empty {
				delete(r.rooms, c.RoomID())
			}
		}
		r.mu.Unlock()
	}
	r.log.Info("registry - unregister - client removed", "room_id", c.RoomID(), "user_id", c.UserID(), "conn_id", c.ID())
}

func (r *Registry) Broadcast(ctx context.Context, roomID string, event any) {
	r.mu.RLock()
	g := r.rooms[roomID]
	r.mu.RUnlock()
	if g == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		r.log.ErrorContext(ctx, "registry - broadcast - marshal failed", "room_id", roomID, "err", err)
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.clients {
		if err := c.Send(ctx, data); err != nil {
			r.log.WarnContext(ctx, "registry - broadcast - send failed, evicting", "room_id", roomID, "conn_id", c.ID(), "err", err)
			go r.evict(c)
		}
	}
}

func (r *Registry) BroadcastToUser(ctx context.Context, userID string, event any) {
	r.mu.RLock()
	byConn := r.users[userID]
	targets := make([]contracts.Client, 0, len(byConn))
	for _, c := range byConn {
		targets = append(targets, c)
	}
	r.mu.RUnlock()
	if len(targets) == 0 {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		r.log.ErrorContext(ctx, "registry - broadcast to user - marshal failed", "user_id", userID, "err", err)
		return
	}
	for _, c := range targets {
		if err := c.Send(ctx, data); err != nil {
			r.log.WarnContext(ctx, "registry - broadcast to user - send failed, evicting", "user_id", userID, "conn_id", c.ID(), "err", err)
			go r.evict(c)
		}
	}
}

func (r *Registry) RoomUsers(roomID string) []string {
	r.mu.RLock()
	g := r.rooms[roomID]
	r.mu.RUnlock()
	if g == nil {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[string]struct{}, len(g.clients))
	users := make([]string, 0, len(g.clients))
	for _, c := range g.clients {
		if _, dup := seen[c.UserID()]; dup {
			continue
		}
		seen[c.UserID()] = struct{}{}
		users = append(users, c.UserID())
	}
	return users
}

// Stats reports the current room-group and connection counts.
func (r *Registry) Stats() (rooms, conns int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.conns)
}

func (r *Registry) evict(c contracts.Client) {
	r.Unregister(c)
	c.Close()
}
