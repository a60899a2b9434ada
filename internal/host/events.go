package host

import (
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/sweeney/camwatch/internal/mqtt"
)

// EventSink publishes raised events to MQTT. Redraw callbacks are ignored.
type EventSink struct {
	src   Source
	pub   mqtt.Publisher
	clock clockwork.Clock
	log   *slog.Logger
}

// NewEventSink creates a sink publishing src's events through pub.
func NewEventSink(src Source, pub mqtt.Publisher, c clockwork.Clock, logger *slog.Logger) *EventSink {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventSink{src: src, pub: pub, clock: c, log: logger.With("component", "events")}
}

func (s *EventSink) OnStateChanged()           {}
func (s *EventSink) OnImageInvalidated(string) {}

// RaiseEvent publishes the event with the state it left behind. Publish
// failures are logged, never returned to the button.
func (s *EventSink) RaiseEvent(name string) {
	snap := s.src.Snapshot()
	event := mqtt.Event{
		Timestamp: s.clock.Now(),
		Button:    snap.ID,
		Name:      name,
		State:     string(snap.State),
		Battery:   snap.Battery,
	}
	if err := s.pub.Publish(event); err != nil {
		s.log.Error("publish event", "event", name, "button", snap.ID, "error", err)
		return
	}
	s.log.Debug("published event", "event", name, "button", snap.ID)
}
