package host

import (
	"github.com/sweeney/camwatch/internal/button"
	"github.com/sweeney/camwatch/internal/status"
)

// Broadcaster pushes a status snapshot to live viewers.
type Broadcaster interface {
	BroadcastStatus(snap status.Snapshot)
}

// StatusFeed mirrors a button into the status tracker on every state change
// and pushes the result to live viewers.
type StatusFeed struct {
	src     Source
	tracker *status.Tracker
	live    Broadcaster // may be nil
}

// NewStatusFeed creates a feed for src. live may be nil.
func NewStatusFeed(src Source, tracker *status.Tracker, live Broadcaster) *StatusFeed {
	return &StatusFeed{src: src, tracker: tracker, live: live}
}

// OnStateChanged records the current snapshot.
func (f *StatusFeed) OnStateChanged() {
	f.Sync()
}

func (f *StatusFeed) OnImageInvalidated(string) {}
func (f *StatusFeed) RaiseEvent(string)         {}

// Sync records the current snapshot outside of a notification, e.g. after
// load or unload.
func (f *StatusFeed) Sync() {
	f.tracker.SetButton(ButtonStatus(f.src.Snapshot()))
	if f.live != nil {
		f.live.BroadcastStatus(f.tracker.Snapshot())
	}
}

// ButtonStatus converts a button snapshot for the tracker.
func ButtonStatus(s button.Snapshot) status.ButtonStatus {
	return status.ButtonStatus{
		ID:           s.ID,
		Loaded:       s.Loaded,
		Enabled:      s.Enabled,
		Alert:        s.Alert,
		Sleepy:       s.Sleepy(),
		RevertArmed:  s.RevertArmed,
		State:        s.State,
		Battery:      s.Battery,
		GaugeRunning: s.GaugeRunning,
	}
}
