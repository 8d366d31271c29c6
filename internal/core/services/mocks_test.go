package services

import (
	"context"
	"sync"
	"time"

	"github.com/OudonePKL/chaet-backend1/internal/core/contracts"
	"github.com/OudonePKL/chaet-backend1/internal/core/domain"

	"github.com/google/uuid"
)

// mockConn captures everything a session writes to one transport.
type mockConn struct {
	mu         sync.Mutex
	sent       [][]byte
	closeCode  int
	closeCalls int
	sendErr    error
}

func (m *mockConn) Send(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.sent = append(m.sent, cp)
	return nil
}

func (m *mockConn) CloseWithCode(code int, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	if m.closeCode == 0 {
		m.closeCode = code
	}
}

func (m *mockConn) getSent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *mockConn) getCloseCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCode
}

// mockRegistry records fan-out calls without real connections.
type mockRegistry struct {
	mu          sync.Mutex
	registered  map[string]bool
	registerErr error
	roomEvents  map[string][]any
	userEvents  map[string][]any
	roomUsers   map[string][]string
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		registered: make(map[string]bool),
		roomEvents: make(map[string][]any),
		userEvents: make(map[string][]any),
		roomUsers:  make(map[string][]string),
	}
}

func (m *mockRegistry) Register(c contracts.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registerErr != nil {
		return m.registerErr
	}
	if m.registered[c.ID()] {
		return domain.ErrAlreadyRegistered
	}
	m.registered[c.ID()] = true
	return nil
}

func (m *mockRegistry) Unregister(c contracts.Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.registered, c.ID())
}

func (m *mockRegistry) Broadcast(ctx context.Context, roomID string, event any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomEvents[roomID] = append(m.roomEvents[roomID], event)
}

func (m *mockRegistry) BroadcastToUser(ctx context.Context, userID string, event any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userEvents[userID] = append(m.userEvents[userID], event)
}

func (m *mockRegistry) RoomUsers(roomID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomUsers[roomID]
}

func (m *mockRegistry) eventsFor(roomID string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.roomEvents[roomID]))
	copy(out, m.roomEvents[roomID])
	return out
}

// mockMessageRepo is an in-memory MessageRepository implementing the
// same forward-only CAS the postgres repo does.
type mockMessageRepo struct {
	mu         sync.Mutex
	messages   map[uuid.UUID]*domain.Message
	order      []uuid.UUID
	writes     int
	createErr  error
	advanceErr error
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{messages: make(map[uuid.UUID]*domain.Message)}
}

func (m *mockMessageRepo) CreateMessage(ctx context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *msg
	m.messages[msg.ID] = &cp
	m.order = append(m.order, msg.ID)
	return nil
}

func (m *mockMessageRepo) AdvanceStatus(ctx context.Context, msgID uuid.UUID, target domain.MessageStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.advanceErr != nil {
		return false, m.advanceErr
	}
	msg, ok := m.messages[msgID]
	if !ok {
		return false, domain.ErrMessageNotFound
	}
	if !msg.Status.Precedes(target) {
		return false, nil
	}
	msg.Status = target
	m.writes++
	return true, nil
}

func (m *mockMessageRepo) ListRecent(ctx context.Context, roomID uuid.UUID, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []domain.Message
	for _, id := range m.order {
		if msg := m.messages[id]; msg.RoomID == roomID && msg.DeletedAt == nil {
			all = append(all, *msg)
		}
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (m *mockMessageRepo) status(id uuid.UUID) domain.MessageStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages[id].Status
}

func (m *mockMessageRepo) messageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}

func (m *mockMessageRepo) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *mockMessageRepo) put(msg *domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages[msg.ID] = &cp
	m.order = append(m.order, msg.ID)
}

// mockRoomRepo holds rooms and memberships in memory.
type mockRoomRepo struct {
	mu      sync.Mutex
	rooms   map[uuid.UUID]*domain.Room
	members map[uuid.UUID][]string
	err     error
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{
		rooms:   make(map[uuid.UUID]*domain.Room),
		members: make(map[uuid.UUID][]string),
	}
}

func (m *mockRoomRepo) addRoom(roomID uuid.UUID, members ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[roomID] = &domain.Room{ID: roomID, Type: domain.RoomGroup, Name: "room", CreatedAt: time.Now()}
	m.members[roomID] = members
}

func (m *mockRoomRepo) GetRoomByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func (m *mockRoomRepo) IsMember(ctx context.Context, roomID uuid.UUID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, member := range m.members[roomID] {
		if member == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRoomRepo) ListMembers(ctx context.Context, roomID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.members[roomID], nil
}

// mockStore is an in-memory EphemeralStore; TTLs are recorded, not
// enforced.
type mockStore struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMockStore() *mockStore {
	return &mockStore{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.values[key], nil
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.values, key)
	return nil
}

func (m *mockStore) get(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key]
}

// mockQueue records published notification payloads.
type mockQueue struct {
	mu        sync.Mutex
	published [][]byte
	err       error
}

func (m *mockQueue) Publish(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.published = append(m.published, cp)
	return nil
}

func (m *mockQueue) Subscribe(ctx context.Context, group string, handler func(ctx context.Context, entryID string, data []byte) error) error {
	return nil
}

func (m *mockQueue) Ack(ctx context.Context, group, entryID string) error { return nil }

func (m *mockQueue) Remove(ctx context.Context, entryID string) error { return nil }

func (m *mockQueue) getPublished() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.published))
	copy(out, m.published)
	return out
}

// stubVerifier maps fixed credentials to user ids.
type stubVerifier struct {
	tokens map[string]string
}

func (s *stubVerifier) Verify(credential string) (string, error) {
	if userID, ok := s.tokens[credential]; ok {
		return userID, nil
	}
	return "", domain.ErrInvalidCredential
}
