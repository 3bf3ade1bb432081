package registry

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helixchain/realtime/pkg/auth"
	"github.com/helixchain/realtime/pkg/state"
	"github.com/helixchain/realtime/pkg/transport"
)

var ErrUserNotFound = errors.New("user not found")

// InMemoryManager holds all connection, user and room state in process-local
// maps. Everything here is a liveness signal, not a durable fact; it is
// rebuilt from scratch on restart.
type InMemoryManager struct {
	conns map[uuid.UUID]*state.Connection
	users map[string]*state.User
	rooms map[string]*state.Room

	mu sync.RWMutex

	logger *slog.Logger
}

func NewInMemoryManager(logger *slog.Logger) *InMemoryManager {
	return &InMemoryManager{
		conns:  make(map[uuid.UUID]*state.Connection),
		users:  make(map[string]*state.User),
		rooms:  make(map[string]*state.Room),
		logger: logger.With(slog.String("component", "connection_registry")),
	}
}

// compile-time check to ensure InMemoryManager implements Manager.
var _ state.Manager = (*InMemoryManager)(nil)

func (m *InMemoryManager) Register(conn *transport.Connection, identity auth.Identity, ipAddr string) (*state.Connection, error) {
	if identity.UserID == "" {
		return nil, errors.New("cannot register connection without a user identity")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	connID := conn.ID()
	if old, exists := m.conns[connID]; exists {
		// Idempotent overwrite: detach the stale record from its previous owner.
		m.detachLocked(old)
	}

	user, exists := m.users[identity.UserID]
	if !exists {
		user = &state.User{
			ID:            identity.UserID,
			Role:          identity.Role,
			WalletAddress: identity.WalletAddress,
			Connections:   make(map[uuid.UUID]*state.Connection),
			Rooms:         make(map[string]*state.Room),
		}
		m.users[identity.UserID] = user
		m.logger.Debug("Created user session", slog.String("userID", identity.UserID), slog.String("role", string(identity.Role)))
	}

	newConn := &state.Connection{
		ID:        connID,
		IPAddress: ipAddr,
		Transport: conn,
		User:      user,
		CreatedAt: time.Now(),
	}
	m.conns[connID] = newConn
	user.Connections[connID] = newConn

	// Every authenticated connection belongs to its owner's personal room.
	m.joinLocked(user, state.PersonalRoom(user.ID))

	m.logger.Debug("Connection registered", slog.String("connID", connID.String()), slog.String("userID", user.ID))
	return newConn, nil
}

func (m *InMemoryManager) Deregister(connID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		// Already deregistered.
		return nil
	}
	m.detachLocked(conn)
	m.logger.Debug("Connection deregistered", slog.String("connID", connID.String()))
	return nil
}

// detachLocked removes a connection record and, when it is the owner's last
// connection, removes the user from every room and drops the user record.
func (m *InMemoryManager) detachLocked(conn *state.Connection) {
	delete(m.conns, conn.ID)

	user := conn.User
	if user == nil {
		return
	}
	delete(user.Connections, conn.ID)
	if len(user.Connections) > 0 {
		return
	}

	for name, room := range user.Rooms {
		delete(room.Members, user.ID)
		if len(room.Members) == 0 {
			delete(m.rooms, name)
		}
	}
	delete(m.users, user.ID)
	m.logger.Debug("User disconnected", slog.String("userID", user.ID))
}

func (m *InMemoryManager) Connection(connID uuid.UUID) (*state.Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.conns[connID]
	return conn, ok
}

func (m *InMemoryManager) OldestUserConnection(userID string) (*state.Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, false
	}

	var oldest *state.Connection
	for _, conn := range user.Connections {
		if oldest == nil || conn.CreatedAt.Before(oldest.CreatedAt) {
			oldest = conn
		}
	}
	if oldest == nil {
		return nil, false
	}
	return oldest, true
}

// --- Presence ---

func (m *InMemoryManager) IsConnected(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[userID]
	return ok && len(user.Connections) > 0
}

func (m *InMemoryManager) ConnectionCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[userID]
	if !ok {
		return 0
	}
	return len(user.Connections)
}

func (m *InMemoryManager) CountDistinctUsers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

func (m *InMemoryManager) UsersByRole(role auth.Role) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0)
	for id, user := range m.users {
		if user.Role == role && len(user.Connections) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// --- Lookup ---

func (m *InMemoryManager) FindUser(userID string) (*state.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[userID]
	return user, ok
}

func (m *InMemoryManager) UserConnections(userID string) ([]*transport.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	conns := make([]*transport.Connection, 0, len(user.Connections))
	for _, c := range user.Connections {
		conns = append(conns, c.Transport)
	}
	return conns, nil
}

func (m *InMemoryManager) AllConnections() []*transport.Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns := make([]*transport.Connection, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c.Transport)
	}
	return conns
}

// --- Room Membership ---

func (m *InMemoryManager) Join(userID, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	m.joinLocked(user, room)
	return nil
}

func (m *InMemoryManager) joinLocked(user *state.User, name string) {
	if _, already := user.Rooms[name]; already {
		return
	}
	room, exists := m.rooms[name]
	if !exists {
		room = &state.Room{
			Name:    name,
			Members: make(map[string]*state.User),
		}
		m.rooms[name] = room
	}
	user.Rooms[name] = room
	room.Members[user.ID] = user
	m.logger.Debug("User joined room", slog.String("userID", user.ID), slog.String("room", name))
}

func (m *InMemoryManager) Leave(userID, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		// User doesn't exist, so they can't be in the room.
		return nil
	}
	r, ok := user.Rooms[room]
	if !ok {
		return nil
	}

	delete(user.Rooms, room)
	delete(r.Members, userID)

	// For memory hygiene, remove the room if it's now empty.
	if len(r.Members) == 0 {
		delete(m.rooms, room)
	}
	m.logger.Debug("User left room", slog.String("userID", userID), slog.String("room", room))
	return nil
}

func (m *InMemoryManager) RoomMembers(room string) ([]*state.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[room]
	if !ok {
		return nil, errors.New("room not found")
	}
	members := make([]*state.User, 0, len(r.Members))
	for _, u := range r.Members {
		members = append(members, u)
	}
	return members, nil
}

func (m *InMemoryManager) InRoom(userID, room string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return false
	}
	_, in := user.Rooms[room]
	return in
}
