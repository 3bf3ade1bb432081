package emitter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/helixchain/realtime/pkg/state"
	"github.com/helixchain/realtime/pkg/transport"
)

// ServerMessage is the wire envelope for every server-to-client event.
type ServerMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Emitter delivers a named event with a JSON payload to a room, a fan-out of
// rooms, or every connection. Delivery is at-most-once per currently-connected
// subscriber: no persistence, no replay, no acknowledgement. An event fired at
// an empty room is silently dropped.
type Emitter struct {
	logger   *slog.Logger
	registry state.Manager
}

func New(logger *slog.Logger, registry state.Manager) *Emitter {
	return &Emitter{
		logger:   logger.With(slog.String("component", "emitter")),
		registry: registry,
	}
}

// ToRoom emits one event to every connection of every member of the room.
func (e *Emitter) ToRoom(room, event string, payload any) {
	msg, err := marshal(event, payload)
	if err != nil {
		e.logger.Error("Failed to marshal event", slog.String("event", event), slog.Any("error", err))
		return
	}
	e.sendToRoom(room, event, msg)
}

// ToRooms fans one event out across several rooms. Rooms deliberately
// over-deliver rather than deduplicate across each other: a client subscribed
// via more than one of them receives the event more than once, and idempotent
// application is the client's responsibility.
func (e *Emitter) ToRooms(rooms []string, event string, payload any) {
	msg, err := marshal(event, payload)
	if err != nil {
		e.logger.Error("Failed to marshal event", slog.String("event", event), slog.Any("error", err))
		return
	}
	for _, room := range rooms {
		e.sendToRoom(room, event, msg)
	}
}

// ToConnection emits to one specific connection, bypassing room resolution.
// Used for handshake confirmations and request/reply style acks.
func (e *Emitter) ToConnection(conn *transport.Connection, event string, payload any) {
	msg, err := marshal(event, payload)
	if err != nil {
		e.logger.Error("Failed to marshal event", slog.String("event", event), slog.Any("error", err))
		return
	}
	conn.Send(msg)
}

// ToUser emits directly to a user's personal room.
func (e *Emitter) ToUser(userID, event string, payload any) {
	e.ToRoom(state.PersonalRoom(userID), event, payload)
}

// Broadcast emits to every live connection regardless of room membership.
func (e *Emitter) Broadcast(event string, payload any) {
	msg, err := marshal(event, payload)
	if err != nil {
		e.logger.Error("Failed to marshal event", slog.String("event", event), slog.Any("error", err))
		return
	}
	conns := e.registry.AllConnections()
	for _, conn := range conns {
		conn.Send(msg)
	}
	e.logger.Debug("Broadcast event", slog.String("event", event), slog.Int("connections", len(conns)))
}

func (e *Emitter) sendToRoom(room, event string, msg []byte) {
	conns, err := e.connectionsForRoom(room)
	if err != nil {
		// Usually means nobody is subscribed, which is a normal case: the
		// event is dropped.
		e.logger.Debug("No subscribers for room", slog.String("room", room), slog.String("event", event))
		return
	}
	for _, conn := range conns {
		conn.Send(msg)
	}
	e.logger.Debug("Emitted to room",
		slog.String("room", room),
		slog.String("event", event),
		slog.Int("connections", len(conns)),
	)
}

// connectionsForRoom resolves a room name to the distinct set of live
// connections behind it. Personal rooms short-circuit through the user's
// connection set so direct addressing works even before any explicit join.
func (e *Emitter) connectionsForRoom(room string) ([]*transport.Connection, error) {
	if userID, ok := strings.CutPrefix(room, "user:"); ok {
		return e.registry.UserConnections(userID)
	}

	members, err := e.registry.RoomMembers(room)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve room '%s': %w", room, err)
	}
	seen := make(map[uuid.UUID]*transport.Connection)
	for _, member := range members {
		memberConns, err := e.registry.UserConnections(member.ID)
		if err != nil {
			e.logger.Warn("Failed to get connections for room member",
				slog.String("room", room), slog.String("userID", member.ID), slog.Any("error", err))
			continue
		}
		for _, conn := range memberConns {
			seen[conn.ID()] = conn
		}
	}
	conns := make([]*transport.Connection, 0, len(seen))
	for _, conn := range seen {
		conns = append(conns, conn)
	}
	return conns, nil
}

func marshal(event string, payload any) ([]byte, error) {
	var raw json.RawMessage
	switch p := payload.(type) {
	case nil:
	case json.RawMessage:
		raw = p
	case []byte:
		raw = json.RawMessage(p)
	default:
		encoded, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(ServerMessage{Event: event, Payload: raw})
}
