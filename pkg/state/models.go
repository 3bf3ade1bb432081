package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/helixchain/realtime/pkg/auth"
	"github.com/helixchain/realtime/pkg/transport"
)

// Connection is the registry's view of a single transport-layer session.
type Connection struct {
	ID        uuid.UUID
	IPAddress string
	Transport *transport.Connection // The actual connection for sending messages
	User      *User                 // Pointer to the owning user
	CreatedAt time.Time
}

// User aggregates all live connections of one authenticated account. A user
// is considered connected iff the Connections set is non-empty; the record is
// dropped entirely when the last connection deregisters, so nothing here
// survives a disconnect or a process restart.
type User struct {
	ID            string
	Role          auth.Role
	WalletAddress string
	Connections   map[uuid.UUID]*Connection
	Rooms         map[string]*Room // rooms this user is a member of, keyed by room name
}

// Room is a named broadcast channel.
type Room struct {
	Name    string
	Members map[string]*User // keyed by UserID
}
