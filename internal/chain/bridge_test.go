package chain

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixchain/realtime/internal/emitter"
	"github.com/helixchain/realtime/pkg/state/registry"
)

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

func TestChannelSourcePublishNeverBlocks(t *testing.T) {
	source := NewChannelSource(1)

	assert.True(t, source.Publish(Event{Type: RecordAnchored, PatientID: "p1"}))
	// Nobody draining and the buffer is full, so the second event is dropped.
	assert.False(t, source.Publish(Event{Type: RecordAnchored, PatientID: "p2"}))
}

func TestChannelSourcePublishStampsTime(t *testing.T) {
	source := NewChannelSource(1)
	require.True(t, source.Publish(Event{Type: VerificationRequested, PatientID: "p1"}))

	ev := <-source.Events()
	assert.False(t, ev.At.IsZero())
}

func TestBridgeRunStopsOnContextCancel(t *testing.T) {
	logger := newTestLogger()
	em := emitter.New(logger, registry.NewInMemoryManager(logger))
	source := NewChannelSource(4)
	bridge := NewBridge(logger, em, source)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	// Events with no subscribers are consumed and dropped without error.
	require.True(t, source.Publish(Event{Type: VerificationApproved, RequesterID: "d1"}))
	require.True(t, source.Publish(Event{Type: "bogus"}))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop after cancellation")
	}
}
