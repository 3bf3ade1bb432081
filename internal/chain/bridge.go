package chain

import (
	"context"
	"log/slog"

	"github.com/helixchain/realtime/internal/emitter"
	"github.com/helixchain/realtime/pkg/state"
)

// Bridge drains a chain event source and forwards each event to the rooms
// that care about it. Delivery inherits the emitter's contract: at-most-once,
// no replay, dropped when nobody is subscribed.
type Bridge struct {
	logger  *slog.Logger
	emitter *emitter.Emitter
	source  Source
}

func NewBridge(logger *slog.Logger, em *emitter.Emitter, source Source) *Bridge {
	return &Bridge{
		logger:  logger.With(slog.String("component", "chain_bridge")),
		emitter: em,
		source:  source,
	}
}

// Run blocks until the context is cancelled or the source channel closes.
func (b *Bridge) Run(ctx context.Context) error {
	events := b.source.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				b.logger.Info("Chain event source closed")
				return nil
			}
			b.dispatch(ev)
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *Bridge) dispatch(ev Event) {
	switch ev.Type {
	case VerificationRequested:
		b.emitter.ToRooms([]string{
			state.VerificationRoom(ev.PatientID),
			state.PersonalRoom(ev.PatientID),
		}, emitter.EventVerificationRequest, ev)
	case VerificationApproved:
		b.emitter.ToUser(ev.RequesterID, emitter.EventVerificationApproved, ev)
	case RecordAnchored:
		b.emitter.ToRooms([]string{
			state.PatientRoom(ev.PatientID),
			state.RoomResearchUpdates,
		}, emitter.EventDataUpdated, ev)
	default:
		b.logger.Warn("Dropping unknown chain event", slog.String("type", string(ev.Type)))
	}
}
