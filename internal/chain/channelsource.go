package chain

import "time"

// ChannelSource is a Source fed in-process, used where chain events arrive
// through the gateway's internal API instead of a direct chain listener.
type ChannelSource struct {
	ch chan Event
}

func NewChannelSource(buffer int) *ChannelSource {
	if buffer <= 0 {
		buffer = 64
	}
	return &ChannelSource{ch: make(chan Event, buffer)}
}

var _ Source = (*ChannelSource)(nil)

func (s *ChannelSource) Events() <-chan Event {
	return s.ch
}

// Publish hands an event to the bridge. It never blocks: if the bridge is not
// draining, the event is dropped, matching the layer's best-effort contract.
func (s *ChannelSource) Publish(ev Event) bool {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}
