package logic

// GaugeMax is the full gauge level.
const GaugeMax = 100

// Gauge is a draining resource level in [0, GaugeMax].
//
// The gauge tracks whether its periodic clock should be running so callers
// only have to follow the Start/Stop hints in the returned GaugeChange.
type Gauge struct {
	level   int
	running bool
}

// NewGauge creates a stopped gauge at the given level, clamped to range.
func NewGauge(level int) *Gauge {
	return &Gauge{level: clamp(level)}
}

// Start marks the periodic clock as running.
func (g *Gauge) Start() GaugeChange {
	if g.running {
		return GaugeChange{}
	}
	g.running = true
	return GaugeChange{Start: true}
}

// Tick decrements the level by one. The tick that reaches zero also stops the
// clock; a tick while stopped is a no-op.
func (g *Gauge) Tick() GaugeChange {
	if !g.running {
		return GaugeChange{}
	}

	if g.level == 0 {
		g.running = false
		return GaugeChange{Stop: true}
	}

	g.level--
	c := GaugeChange{Changed: true}
	if g.level == 0 {
		g.running = false
		c.Stop = true
		c.Depleted = true
	}
	return c
}

// Reset refills the gauge and restarts the clock if it was stopped.
func (g *Gauge) Reset() GaugeChange {
	c := GaugeChange{Changed: g.level != GaugeMax}
	g.level = GaugeMax
	if !g.running {
		g.running = true
		c.Start = true
	}
	return c
}

// Recharge adds n to the level, capped at GaugeMax. The clock is left alone:
// a depleted gauge that is recharged stays stopped until Reset.
func (g *Gauge) Recharge(n int) GaugeChange {
	if n <= 0 {
		return GaugeChange{}
	}
	next := clamp(g.level + n)
	if next == g.level {
		return GaugeChange{}
	}
	g.level = next
	return GaugeChange{Changed: true}
}

// Level returns the current level.
func (g *Gauge) Level() int {
	return g.level
}

// Running reports whether the periodic clock should be running.
func (g *Gauge) Running() bool {
	return g.running
}

func clamp(level int) int {
	if level < 0 {
		return 0
	}
	if level > GaugeMax {
		return GaugeMax
	}
	return level
}
