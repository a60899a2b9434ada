package logic

// Machine is the enable-gated sleepy/awake alert machine.
//
// A sleepy signal raises the alert immediately. An awake signal never clears
// it directly: it only asks for the revert timer to be armed, and the alert
// clears when that timer expires. Arming while armed is a no-op, so repeated
// awake signals do not extend the grace period.
type Machine struct {
	enabled     bool
	alert       bool
	revertArmed bool
}

// NewMachine creates a machine with the given enable toggle and no alert.
func NewMachine(enabled bool) *Machine {
	return &Machine{enabled: enabled}
}

// Toggle flips the enable toggle. It does not clear a raised alert; the
// renderer is expected to suppress it while disabled.
func (m *Machine) Toggle() Transition {
	m.enabled = !m.enabled
	return Transition{Changed: true}
}

// Process applies a sleepy or awake signal. Other signals, and every signal
// while disabled, leave the machine untouched.
func (m *Machine) Process(sig Signal) Transition {
	if !m.enabled {
		return Transition{}
	}

	switch sig {
	case SignalSleepy:
		var tr Transition
		if !m.alert {
			m.alert = true
			tr.Changed = true
			tr.Event = EventAlert
		}
		// Keep the alert fresh: a pending revert is cancelled, not fired.
		if m.revertArmed {
			m.revertArmed = false
			tr.Timer = TimerDisarm
		}
		return tr

	case SignalAwake:
		if m.alert && !m.revertArmed {
			m.revertArmed = true
			return Transition{Timer: TimerArm}
		}
	}

	return Transition{}
}

// Revert handles expiry of the revert timer. An expiry that arrives after the
// timer was disarmed is ignored.
func (m *Machine) Revert() Transition {
	if !m.revertArmed {
		return Transition{}
	}
	m.revertArmed = false

	if !m.alert {
		return Transition{}
	}
	m.alert = false
	return Transition{Changed: true, Event: EventClear}
}

// Enabled reports the enable toggle.
func (m *Machine) Enabled() bool {
	return m.enabled
}

// Alert reports whether the alert is raised, regardless of the toggle.
func (m *Machine) Alert() bool {
	return m.alert
}

// RevertArmed reports whether the machine is waiting on the revert timer.
func (m *Machine) RevertArmed() bool {
	return m.revertArmed
}

// State returns the collapsed observable state. A disabled machine reports
// StateDisabled even if an alert raised earlier is still latched.
func (m *Machine) State() State {
	switch {
	case !m.enabled:
		return StateDisabled
	case m.alert:
		return StateAlert
	default:
		return StateNormal
	}
}
