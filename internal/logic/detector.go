package logic

import "time"

// lineState tracks debounce state for a single button line.
type lineState struct {
	// Current stable (debounced) level
	stable Level
	// Pending level during debounce, empty if none
	pending Level
	// Time when pending level was first observed
	pendingSince time.Time
	// Whether a baseline has been established
	baselined bool
}

// PressDetector debounces raw button samples into presses.
// A press is a debounced UP to DOWN transition; releases are not reported.
type PressDetector struct {
	debounce  time.Duration
	toggle    lineState
	reset     lineState
	baselined bool
	presses   int
}

// NewPressDetector creates a detector with the given debounce duration.
func NewPressDetector(debounce time.Duration) *PressDetector {
	return &PressDetector{debounce: debounce}
}

// Process takes a new sample and returns any presses it completes.
// No presses are reported until both lines have a baseline, so a button held
// down at startup is not mistaken for a press.
func (d *PressDetector) Process(input Input) []Press {
	toggleEdge := d.processLine(&d.toggle, levelOf(input.Toggle), input.Time)
	resetEdge := d.processLine(&d.reset, levelOf(input.Reset), input.Time)

	if !d.baselined {
		d.baselined = d.toggle.baselined && d.reset.baselined
		return nil
	}

	var presses []Press
	if toggleEdge {
		presses = append(presses, Press{Button: ButtonToggle, Time: input.Time})
	}
	if resetEdge {
		presses = append(presses, Press{Button: ButtonReset, Time: input.Time})
	}
	d.presses += len(presses)
	return presses
}

// processLine debounces one line and reports a completed UP to DOWN edge.
func (d *PressDetector) processLine(ls *lineState, level Level, now time.Time) bool {
	if ls.pending != level {
		if ls.baselined && level == ls.stable {
			ls.pending = ""
			return false
		}
		ls.pending = level
		ls.pendingSince = now
		return false
	}

	if now.Sub(ls.pendingSince) < d.debounce {
		return false
	}

	prev := ls.stable
	wasBaselined := ls.baselined
	ls.stable = level
	ls.pending = ""
	ls.baselined = true

	return wasBaselined && prev == LevelUp && level == LevelDown
}

func levelOf(pressed bool) Level {
	if pressed {
		return LevelDown
	}
	return LevelUp
}

// IsBaselined returns whether both lines have a baseline.
func (d *PressDetector) IsBaselined() bool {
	return d.baselined
}

// Presses returns the number of presses reported since creation.
func (d *PressDetector) Presses() int {
	return d.presses
}
