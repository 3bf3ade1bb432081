package state

import (
	"github.com/google/uuid"

	"github.com/helixchain/realtime/pkg/auth"
	"github.com/helixchain/realtime/pkg/transport"
)

type Manager interface {
	// --- Connection Lifecycle ---
	// Register records the connection under the given identity, creating the
	// user aggregate if needed and joining the user's personal room. It is
	// idempotent: re-registering a known connection ID overwrites the mapping.
	Register(conn *transport.Connection, identity auth.Identity, ipAddr string) (*Connection, error)
	// Deregister removes the connection. When the owner's last connection
	// goes, the user leaves all rooms and the user record is dropped. Unknown
	// connection IDs are a no-op.
	Deregister(connID uuid.UUID) error
	Connection(connID uuid.UUID) (*Connection, bool)
	OldestUserConnection(userID string) (*Connection, bool)

	// --- Presence ---
	IsConnected(userID string) bool
	ConnectionCount(userID string) int
	CountDistinctUsers() int
	UsersByRole(role auth.Role) []string

	// --- Lookup ---
	FindUser(userID string) (*User, bool)
	UserConnections(userID string) ([]*transport.Connection, error)
	AllConnections() []*transport.Connection

	// --- Room Membership ---
	// Join adds a user to a room, creating the room if it doesn't exist.
	Join(userID, room string) error
	Leave(userID, room string) error
	RoomMembers(room string) ([]*User, error)
	InRoom(userID, room string) bool
}
