// Package logic contains the pure state machines behind a camera-watch button.
// This package has NO external dependencies (no timers, goroutines, OS or time.Sleep).
// Callers feed inputs in and act on the returned values; time is always injected.
package logic

import "time"

// Signal is a discrete input posted by the external detector process.
type Signal string

const (
	SignalSleepy     Signal = "sleepy"
	SignalAwake      Signal = "awake"
	SignalStretching Signal = "stretching"
)

// State is the observable state of the alert machine.
type State string

const (
	StateDisabled State = "DISABLED"
	StateNormal   State = "NORMAL"
	StateAlert    State = "ALERT"
)

// EventType is an event name raised to the host.
type EventType string

const (
	EventAlert         EventType = "alert"
	EventClear         EventType = "clear"
	EventGaugeDepleted EventType = "gauge-depleted"
)

// TimerAction tells the caller what to do with the revert timer.
type TimerAction int

const (
	TimerKeep TimerAction = iota
	TimerArm
	TimerDisarm
)

func (a TimerAction) String() string {
	switch a {
	case TimerArm:
		return "arm"
	case TimerDisarm:
		return "disarm"
	default:
		return "keep"
	}
}

// Transition describes the effect of one input on a Machine.
type Transition struct {
	// Changed is true when observable state changed and the host must redraw.
	Changed bool
	// Event is the event to raise, empty if none.
	Event EventType
	// Timer is the action to apply to the revert timer.
	Timer TimerAction
}

// GaugeChange describes the effect of one operation on a Gauge.
type GaugeChange struct {
	Changed  bool // level changed
	Start    bool // periodic clock must be started
	Stop     bool // periodic clock must be stopped
	Depleted bool // level just reached zero
}

// Level is the debounced level of a push button line.
type Level string

const (
	LevelUp   Level = "UP"
	LevelDown Level = "DOWN"
)

// Button identifies a physical push button.
type Button string

const (
	ButtonToggle Button = "TOGGLE"
	ButtonReset  Button = "RESET"
)

// Input represents a single sample of the physical buttons.
type Input struct {
	Toggle bool // true = pressed (already inverted from raw GPIO)
	Reset  bool
	Time   time.Time
}

// Press is a debounced button press.
type Press struct {
	Button Button
	Time   time.Time
}
