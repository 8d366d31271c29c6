package contracts

import "context"

// Registry tracks which live connection belongs to which room group and
// which user, and fans events out to them. It holds no durable state;
// its side effects are observable only through delivered events.
type Registry interface {
	// Register adds the client to its room's group (and the per-user
	// index). Fails with domain.ErrAlreadyRegistered if the handle is
	// already present. A client with an empty room id is registered in
	// the user index only (notification channel).
	Register(c Client) error
	// Unregister removes the client from whatever group it belongs to.
	// Idempotent; absent handles are a no-op.
	Unregister(c Client)
	// Broadcast delivers event to every connection in the room's group,
	// best effort per handle. A failed send evicts that handle without
	// blocking delivery to the others.
	Broadcast(ctx context.Context, roomID string, event any)
	// BroadcastToUser delivers event to all of the user's connections,
	// across room groups and notification-only registrations.
	BroadcastToUser(ctx context.Context, userID string, event any)
	// RoomUsers returns the user ids with at least one live connection
	// currently in the room's group.
	RoomUsers(roomID string) []string
}

// Client is the registry's view of a single live connection.
type Client interface {
	ID() string
	UserID() string
	// RoomID is empty for notification-only connections.
	RoomID() string
	Send(ctx context.Context, data []byte) error
	Close()
}

// Conn is the raw transport handle a session drives. CloseWithCode
// carries the protocol close reason to the client.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	CloseWithCode(code int, reason string)
}
