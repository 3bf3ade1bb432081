package router

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/helixchain/realtime/internal/emitter"
	"github.com/helixchain/realtime/internal/presence"
	"github.com/helixchain/realtime/pkg/state"
)

// Router interprets client messages: room joins, subscriptions, direct
// messages, status updates and liveness pings. Authorization failures on
// join/subscribe requests are silently ignored rather than answered with an
// error frame; the client's membership is simply left unchanged.
type Router struct {
	logger   *slog.Logger
	registry state.Manager
	emitter  *emitter.Emitter
	status   *presence.StatusStore
}

func New(logger *slog.Logger, registry state.Manager, em *emitter.Emitter, status *presence.StatusStore) *Router {
	return &Router{
		logger:   logger.With(slog.String("component", "room_router")),
		registry: registry,
		emitter:  em,
		status:   status,
	}
}

func (r *Router) HandleMessage(ctx context.Context, connID uuid.UUID, msg []byte) {
	var clientMsg ClientMessage
	if err := json.Unmarshal(msg, &clientMsg); err != nil {
		r.logger.Warn("Failed to unmarshal client message", slog.String("connID", connID.String()), slog.Any("error", err))
		return
	}

	conn, ok := r.registry.Connection(connID)
	if !ok {
		r.logger.Error("Message from unregistered connection", slog.String("connID", connID.String()))
		return
	}

	switch clientMsg.Event {
	case EventJoinPatientRoom:
		r.handleJoinPatientRoom(conn, clientMsg.Payload)
	case EventJoinDoctorRoom:
		r.handleJoinDoctorRoom(conn)
	case EventJoinPatientMonitoring:
		r.handleJoinPatientMonitoring(conn, clientMsg.Payload)
	case EventJoinResearchUpdates:
		r.handleJoinResearchUpdates(conn)
	case EventSubscribeProof:
		r.handleSubscribeProof(conn, clientMsg.Payload)
	case EventSubscribeVerification:
		r.handleSubscribeVerification(conn)
	case EventMessageSend:
		r.handleMessageSend(conn, clientMsg.Payload)
	case EventStatusUpdate:
		r.handleStatusUpdate(conn, clientMsg.Payload)
	case EventPing:
		r.handlePing(conn)
	default:
		r.logger.Warn("Received unknown event", slog.String("event", clientMsg.Event), slog.String("connID", connID.String()))
	}
}
