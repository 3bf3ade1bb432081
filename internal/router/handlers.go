package router

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"

	"github.com/helixchain/realtime/internal/emitter"
	"github.com/helixchain/realtime/pkg/auth"
	"github.com/helixchain/realtime/pkg/state"
)

// A patient's data room is joinable only by the patient themselves. Requests
// for another patient's room leave membership untouched.
func (r *Router) handleJoinPatientRoom(conn *state.Connection, payload json.RawMessage) {
	patientID := gjson.GetBytes(payload, "patientId").String()
	if patientID == "" || patientID != conn.User.ID {
		r.logger.Warn("Rejected patient room join",
			slog.String("userID", conn.User.ID),
			slog.String("patientID", patientID),
		)
		return
	}
	r.join(conn, state.PatientRoom(patientID))
}

func (r *Router) handleJoinDoctorRoom(conn *state.Connection) {
	if conn.User.Role != auth.RoleDoctor {
		r.logger.Warn("Rejected doctors room join", slog.String("userID", conn.User.ID), slog.String("role", string(conn.User.Role)))
		return
	}
	r.join(conn, state.RoomDoctors)
}

// Doctors may monitor any patient. There is deliberately no ownership or
// consent check here: the upstream design grants broad access, and tightening
// it to an explicit consent record is tracked as an open policy question
// rather than silently changed in this layer.
func (r *Router) handleJoinPatientMonitoring(conn *state.Connection, payload json.RawMessage) {
	if conn.User.Role != auth.RoleDoctor {
		r.logger.Warn("Rejected monitoring room join", slog.String("userID", conn.User.ID), slog.String("role", string(conn.User.Role)))
		return
	}
	patientID := gjson.GetBytes(payload, "patientId").String()
	if patientID == "" {
		return
	}
	r.join(conn, state.MonitoringRoom(patientID))
}

func (r *Router) handleJoinResearchUpdates(conn *state.Connection) {
	if conn.User.Role != auth.RoleResearcher {
		r.logger.Warn("Rejected research room join", slog.String("userID", conn.User.ID), slog.String("role", string(conn.User.Role)))
		return
	}
	r.join(conn, state.RoomResearchUpdates)
}

// Any authenticated connection may follow any job's progress room; see the
// monitoring-room note above for why this stays permissive.
func (r *Router) handleSubscribeProof(conn *state.Connection, payload json.RawMessage) {
	jobID := gjson.GetBytes(payload, "jobId").String()
	if jobID == "" {
		return
	}
	r.join(conn, state.ProofRoom(jobID))
}

func (r *Router) handleSubscribeVerification(conn *state.Connection) {
	r.join(conn, state.VerificationRoom(conn.User.ID))
}

func (r *Router) handleMessageSend(conn *state.Connection, payload json.RawMessage) {
	recipientID := gjson.GetBytes(payload, "recipientId").String()
	if recipientID == "" {
		r.logger.Warn("message:send without recipient", slog.String("userID", conn.User.ID))
		return
	}
	msg := DirectMessage{
		SenderID:    conn.User.ID,
		RecipientID: recipientID,
		Message:     gjson.GetBytes(payload, "message").String(),
		Type:        gjson.GetBytes(payload, "type").String(),
		SentAt:      time.Now().UnixMilli(),
	}
	r.emitter.ToUser(recipientID, emitter.EventMessageReceived, msg)
	// Ack only the socket that sent it, not every connection of the sender.
	r.emitter.ToConnection(conn.Transport, emitter.EventMessageSent, msg)
}

func (r *Router) handleStatusUpdate(conn *state.Connection, payload json.RawMessage) {
	status := gjson.GetBytes(payload, "status").String()
	if status == "" {
		// The payload may also be a bare JSON string.
		status = gjson.ParseBytes(payload).String()
	}
	if status == "" {
		return
	}
	r.status.Set(conn.User.ID, status)
	r.emitter.ToUser(conn.User.ID, emitter.EventStatusUpdated, StatusUpdate{
		UserID:    conn.User.ID,
		Status:    status,
		UpdatedAt: time.Now().UnixMilli(),
	})
}

func (r *Router) handlePing(conn *state.Connection) {
	r.emitter.ToConnection(conn.Transport, emitter.EventPong, Pong{Time: time.Now().UnixMilli()})
}

func (r *Router) join(conn *state.Connection, room string) {
	if err := r.registry.Join(conn.User.ID, room); err != nil {
		r.logger.Error("Failed to join room",
			slog.String("userID", conn.User.ID),
			slog.String("room", room),
			slog.Any("error", err),
		)
	}
}
