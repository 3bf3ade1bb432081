package router_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixchain/realtime/internal/emitter"
	"github.com/helixchain/realtime/internal/presence"
	"github.com/helixchain/realtime/internal/router"
	"github.com/helixchain/realtime/pkg/auth"
	"github.com/helixchain/realtime/pkg/state"
	"github.com/helixchain/realtime/pkg/state/registry"
	"github.com/helixchain/realtime/pkg/transport"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

type harness struct {
	registry *registry.InMemoryManager
	router   *router.Router
	status   *presence.StatusStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := newTestLogger()
	reg := registry.NewInMemoryManager(logger)
	em := emitter.New(logger, reg)
	status := presence.NewStatusStore(time.Minute)
	t.Cleanup(status.Stop)
	return &harness{
		registry: reg,
		router:   router.New(logger, reg, em, status),
		status:   status,
	}
}

func (h *harness) connect(t *testing.T, userID string, role auth.Role) *transport.Connection {
	t.Helper()
	var wg sync.WaitGroup
	conn := transport.NewConnection(context.Background(), &wg, nil, transport.ConnectionConfig{}, nil, nil, newTestLogger())
	_, err := h.registry.Register(conn, auth.Identity{UserID: userID, Role: role}, "127.0.0.1")
	require.NoError(t, err)
	return conn
}

func (h *harness) send(conn *transport.Connection, event, payload string) {
	msg := fmt.Sprintf(`{"event":%q`, event)
	if payload != "" {
		msg += `,"payload":` + payload
	}
	msg += "}"
	h.router.HandleMessage(context.Background(), conn.ID(), []byte(msg))
}

func TestPatientJoinsOwnRoom(t *testing.T) {
	h := newHarness(t)
	conn := h.connect(t, "p1", auth.RolePatient)

	h.send(conn, router.EventJoinPatientRoom, `{"patientId":"p1"}`)
	assert.True(t, h.registry.InRoom("p1", state.PatientRoom("p1")))
}

func TestPatientCannotJoinOtherPatientsRoom(t *testing.T) {
	h := newHarness(t)
	conn := h.connect(t, "p1", auth.RolePatient)

	h.send(conn, router.EventJoinPatientRoom, `{"patientId":"p2"}`)
	assert.False(t, h.registry.InRoom("p1", state.PatientRoom("p2")),
		"membership must be unaffected by an unauthorized join")
}

func TestDoctorRoomIsRoleGated(t *testing.T) {
	h := newHarness(t)
	doctor := h.connect(t, "d1", auth.RoleDoctor)
	patient := h.connect(t, "p1", auth.RolePatient)

	h.send(doctor, router.EventJoinDoctorRoom, "")
	h.send(patient, router.EventJoinDoctorRoom, "")

	assert.True(t, h.registry.InRoom("d1", state.RoomDoctors))
	assert.False(t, h.registry.InRoom("p1", state.RoomDoctors))
}

func TestDoctorMayMonitorAnyPatient(t *testing.T) {
	h := newHarness(t)
	doctor := h.connect(t, "d1", auth.RoleDoctor)

	// Deliberately permissive: no consent check on monitoring rooms.
	h.send(doctor, router.EventJoinPatientMonitoring, `{"patientId":"p9"}`)
	assert.True(t, h.registry.InRoom("d1", state.MonitoringRoom("p9")))
}

func TestResearchRoomIsRoleGated(t *testing.T) {
	h := newHarness(t)
	researcher := h.connect(t, "r1", auth.RoleResearcher)
	doctor := h.connect(t, "d1", auth.RoleDoctor)

	h.send(researcher, router.EventJoinResearchUpdates, "")
	h.send(doctor, router.EventJoinResearchUpdates, "")

	assert.True(t, h.registry.InRoom("r1", state.RoomResearchUpdates))
	assert.False(t, h.registry.InRoom("d1", state.RoomResearchUpdates))
}

func TestAnyUserMaySubscribeToProofRoom(t *testing.T) {
	h := newHarness(t)
	patient := h.connect(t, "p1", auth.RolePatient)
	doctor := h.connect(t, "d1", auth.RoleDoctor)

	h.send(patient, router.EventSubscribeProof, `{"jobId":"j1"}`)
	h.send(doctor, router.EventSubscribeProof, `{"jobId":"j1"}`)

	assert.True(t, h.registry.InRoom("p1", state.ProofRoom("j1")))
	assert.True(t, h.registry.InRoom("d1", state.ProofRoom("j1")))
}

func TestSubscribeVerificationTargetsSelf(t *testing.T) {
	h := newHarness(t)
	conn := h.connect(t, "p1", auth.RolePatient)

	h.send(conn, router.EventSubscribeVerification, "")
	assert.True(t, h.registry.InRoom("p1", state.VerificationRoom("p1")))
}

func TestStatusUpdateStoresWithTTL(t *testing.T) {
	h := newHarness(t)
	conn := h.connect(t, "p1", auth.RolePatient)

	h.send(conn, router.EventStatusUpdate, `{"status":"available"}`)
	status, ok := h.status.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "available", status)

	// A bare string payload is accepted too.
	h.send(conn, router.EventStatusUpdate, `"busy"`)
	status, _ = h.status.Get("p1")
	assert.Equal(t, "busy", status)
}

func TestUnknownEventIsDropped(t *testing.T) {
	h := newHarness(t)
	conn := h.connect(t, "p1", auth.RolePatient)

	// Must not panic or alter membership.
	h.send(conn, "make:coffee", `{"sugar":true}`)
	assert.True(t, h.registry.InRoom("p1", state.PersonalRoom("p1")))
}

func TestMalformedMessageIsDropped(t *testing.T) {
	h := newHarness(t)
	conn := h.connect(t, "p1", auth.RolePatient)

	h.router.HandleMessage(context.Background(), conn.ID(), []byte("{not json"))
}
