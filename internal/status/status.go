// Package status provides a thread-safe status tracker for the camwatch daemon.
// It is read by the status server, the websocket feed and MQTT system events.
package status

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sweeney/camwatch/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	SignalAddr   string
	RevertMs     int64
	GaugeTickMs  int64
	GaugeInitial int
	Buttons      int
	HeartbeatMs  int64
	Broker       string
	HTTPAddr     string
	GPIO         bool
}

// ButtonStatus is the last known state of one button instance.
type ButtonStatus struct {
	ID           string
	Loaded       bool
	Enabled      bool
	Alert        bool
	Sleepy       bool // alert as shown to the user (hidden while disabled)
	RevertArmed  bool
	State        logic.State
	Battery      int
	GaugeRunning bool
}

// SignalCounts tallies recognised detector signals.
type SignalCounts struct {
	Sleepy     int
	Awake      int
	Stretching int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Buttons        []ButtonStatus
	Signals        SignalCounts
	SignalServerUp bool
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetButton records the state of one button, replacing any earlier record
// with the same ID. Buttons are kept sorted by ID.
func (t *Tracker) SetButton(b ButtonStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, found := slices.BinarySearchFunc(t.snap.Buttons, b.ID, func(e ButtonStatus, id string) int {
		return strings.Compare(e.ID, id)
	})
	if found {
		t.snap.Buttons[i] = b
		return
	}
	t.snap.Buttons = slices.Insert(t.snap.Buttons, i, b)
}

// HandleSignal counts a recognised detector signal.
func (t *Tracker) HandleSignal(sig logic.Signal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch sig {
	case logic.SignalSleepy:
		t.snap.Signals.Sleepy++
	case logic.SignalAwake:
		t.snap.Signals.Awake++
	case logic.SignalStretching:
		t.snap.Signals.Stretching++
	}
}

// SetSignalServer records whether this process holds the signal listener.
func (t *Tracker) SetSignalServer(up bool) {
	t.mu.Lock()
	t.snap.SignalServerUp = up
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Buttons = slices.Clone(t.snap.Buttons)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
