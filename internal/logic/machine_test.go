package logic

import "testing"

func enabledMachine(t *testing.T) *Machine {
	t.Helper()
	m := NewMachine(true)
	if m.State() != StateNormal {
		t.Fatalf("expected NORMAL, got %s", m.State())
	}
	return m
}

func TestNewMachine(t *testing.T) {
	m := NewMachine(false)
	if m.Enabled() {
		t.Error("expected disabled")
	}
	if m.Alert() {
		t.Error("new machine should not be alert")
	}
	if m.RevertArmed() {
		t.Error("new machine should not have revert armed")
	}
	if m.State() != StateDisabled {
		t.Errorf("expected DISABLED, got %s", m.State())
	}
}

func TestToggle(t *testing.T) {
	m := NewMachine(false)

	tr := m.Toggle()
	if !tr.Changed {
		t.Error("toggle should report a change")
	}
	if tr.Event != "" {
		t.Errorf("toggle should not raise an event, got %q", tr.Event)
	}
	if m.State() != StateNormal {
		t.Errorf("expected NORMAL after enable, got %s", m.State())
	}

	m.Toggle()
	if m.State() != StateDisabled {
		t.Errorf("expected DISABLED after second toggle, got %s", m.State())
	}
}

func TestSleepyEntersAlertOnce(t *testing.T) {
	m := enabledMachine(t)

	tr := m.Process(SignalSleepy)
	if !tr.Changed {
		t.Error("first sleepy should change state")
	}
	if tr.Event != EventAlert {
		t.Errorf("expected alert event, got %q", tr.Event)
	}
	if tr.Timer != TimerKeep {
		t.Errorf("expected no timer action, got %s", tr.Timer)
	}
	if m.State() != StateAlert {
		t.Errorf("expected ALERT, got %s", m.State())
	}

	for i := 0; i < 20; i++ {
		tr = m.Process(SignalSleepy)
		if tr.Changed || tr.Event != "" || tr.Timer != TimerKeep {
			t.Fatalf("repeat sleepy %d: expected no-op, got %+v", i, tr)
		}
	}
}

func TestAwakeArmsRevertOnce(t *testing.T) {
	m := enabledMachine(t)
	m.Process(SignalSleepy)

	tr := m.Process(SignalAwake)
	if tr.Timer != TimerArm {
		t.Fatalf("expected arm, got %s", tr.Timer)
	}
	if tr.Changed {
		t.Error("arming must not change observable state")
	}
	if m.State() != StateAlert {
		t.Errorf("awake must not clear the alert directly, got %s", m.State())
	}

	tr = m.Process(SignalAwake)
	if tr.Timer != TimerKeep {
		t.Errorf("second awake while armed should not touch the timer, got %s", tr.Timer)
	}
}

func TestAwakeWithoutAlertIsIgnored(t *testing.T) {
	m := enabledMachine(t)

	tr := m.Process(SignalAwake)
	if tr != (Transition{}) {
		t.Errorf("expected no-op, got %+v", tr)
	}
	if m.RevertArmed() {
		t.Error("revert should not be armed without an alert")
	}
}

func TestSleepyDisarmsPendingRevert(t *testing.T) {
	m := enabledMachine(t)
	m.Process(SignalSleepy)
	m.Process(SignalAwake)

	tr := m.Process(SignalSleepy)
	if tr.Timer != TimerDisarm {
		t.Errorf("expected disarm, got %s", tr.Timer)
	}
	if tr.Changed || tr.Event != "" {
		t.Errorf("sleepy while alert should not notify, got %+v", tr)
	}
	if m.RevertArmed() {
		t.Error("revert should be disarmed")
	}

	// A late expiry of the disarmed timer is ignored.
	tr = m.Revert()
	if tr != (Transition{}) {
		t.Errorf("stale revert should be a no-op, got %+v", tr)
	}
	if m.State() != StateAlert {
		t.Errorf("expected ALERT to survive stale revert, got %s", m.State())
	}
}

func TestRevertClearsAlert(t *testing.T) {
	m := enabledMachine(t)
	m.Process(SignalSleepy)
	m.Process(SignalAwake)

	tr := m.Revert()
	if !tr.Changed {
		t.Error("revert should change state")
	}
	if tr.Event != EventClear {
		t.Errorf("expected clear event, got %q", tr.Event)
	}
	if m.State() != StateNormal {
		t.Errorf("expected NORMAL, got %s", m.State())
	}
	if m.RevertArmed() {
		t.Error("revert should no longer be armed")
	}

	tr = m.Revert()
	if tr != (Transition{}) {
		t.Errorf("second revert should be a no-op, got %+v", tr)
	}
}

func TestDisabledIgnoresSignals(t *testing.T) {
	m := NewMachine(false)

	for i := 0; i < 50; i++ {
		for _, sig := range []Signal{SignalSleepy, SignalAwake} {
			if tr := m.Process(sig); tr != (Transition{}) {
				t.Fatalf("disabled machine reacted to %s: %+v", sig, tr)
			}
		}
	}
	if m.Alert() {
		t.Error("disabled machine should never raise an alert")
	}
}

func TestStretchingIgnoredByMachine(t *testing.T) {
	m := enabledMachine(t)
	if tr := m.Process(SignalStretching); tr != (Transition{}) {
		t.Errorf("expected no-op for stretching, got %+v", tr)
	}
}

// Disabling does not clear a latched alert. The collapsed state hides it, but
// the raw alert flag is preserved.
func TestDisableKeepsLatchedAlert(t *testing.T) {
	m := enabledMachine(t)
	m.Process(SignalSleepy)

	m.Toggle()
	if !m.Alert() {
		t.Error("disabling should not clear the alert")
	}
	if m.State() != StateDisabled {
		t.Errorf("expected DISABLED, got %s", m.State())
	}

	// An armed revert still clears it while disabled.
	m.Toggle()
	m.Process(SignalAwake)
	m.Toggle()
	tr := m.Revert()
	if tr.Event != EventClear {
		t.Errorf("expected clear while disabled, got %+v", tr)
	}
	if m.Alert() {
		t.Error("expected alert cleared")
	}
}

func TestTimerActionString(t *testing.T) {
	tests := map[TimerAction]string{
		TimerKeep:   "keep",
		TimerArm:    "arm",
		TimerDisarm: "disarm",
	}
	for a, want := range tests {
		if got := a.String(); got != want {
			t.Errorf("TimerAction(%d): got %q, want %q", a, got, want)
		}
	}
}
