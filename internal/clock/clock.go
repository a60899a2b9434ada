// Package clock runs periodic and one-shot callbacks on a clockwork.Clock.
//
// Callbacks run on a timer goroutine, never on the caller's. A panicking
// callback is recovered and logged; a Periodic keeps its schedule afterwards.
package clock

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sweeney/camwatch/internal/metrics"
)

// Periodic calls fn every interval while started.
type Periodic struct {
	clock    clockwork.Clock
	name     string
	interval time.Duration
	fn       func()
	log      *slog.Logger

	mu   sync.Mutex
	stop chan struct{}
}

// NewPeriodic creates a stopped periodic timer.
func NewPeriodic(c clockwork.Clock, name string, interval time.Duration, fn func(), logger *slog.Logger) *Periodic {
	if logger == nil {
		logger = slog.Default()
	}
	return &Periodic{
		clock:    c,
		name:     name,
		interval: interval,
		fn:       fn,
		log:      logger.With("timer", name),
	}
}

// Start begins ticking and reports whether the timer was stopped before.
// Starting a running timer is a no-op.
func (p *Periodic) Start() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop != nil {
		return false
	}
	stop := make(chan struct{})
	p.stop = stop
	ticker := p.clock.NewTicker(p.interval)
	go p.run(ticker, stop)
	return true
}

// Stop halts ticking and reports whether the timer was running. It does not
// wait for an in-flight callback, so it is safe to call from the callback.
func (p *Periodic) Stop() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stop == nil {
		return false
	}
	close(p.stop)
	p.stop = nil
	return true
}

// Running reports whether the timer is started.
func (p *Periodic) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

func (p *Periodic) run(ticker clockwork.Ticker, stop <-chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			// Stop wins over a tick that raced it.
			select {
			case <-stop:
				return
			default:
			}
			safeCall(p.log, p.name, p.fn)
		}
	}
}

// OneShot calls fn once, d after being armed. fn receives the generation of
// the arm that scheduled it; compare it with Generation under the caller's own
// lock to drop an expiry that raced a Disarm and re-Arm.
type OneShot struct {
	clock clockwork.Clock
	name  string
	d     time.Duration
	fn    func(gen uint64)
	log   *slog.Logger

	mu    sync.Mutex
	timer clockwork.Timer
	gen   uint64
}

// NewOneShot creates a disarmed one-shot timer.
func NewOneShot(c clockwork.Clock, name string, d time.Duration, fn func(gen uint64), logger *slog.Logger) *OneShot {
	if logger == nil {
		logger = slog.Default()
	}
	return &OneShot{
		clock: c,
		name:  name,
		d:     d,
		fn:    fn,
		log:   logger.With("timer", name),
	}
}

// Arm starts the countdown and reports whether it did. Arming an armed timer
// is a no-op, not a reset.
func (o *OneShot) Arm() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.timer != nil {
		return false
	}
	o.gen++
	gen := o.gen
	o.timer = o.clock.AfterFunc(o.d, func() { o.fire(gen) })
	return true
}

// Disarm stops the countdown without firing and reports whether it was armed.
func (o *OneShot) Disarm() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.timer == nil {
		return false
	}
	o.timer.Stop()
	o.timer = nil
	o.gen++
	return true
}

// Generation returns the generation of the current or most recent arm. Arm
// and Disarm both advance it.
func (o *OneShot) Generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen
}

// Armed reports whether the countdown is pending.
func (o *OneShot) Armed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.timer != nil
}

func (o *OneShot) fire(gen uint64) {
	o.mu.Lock()
	if o.timer == nil || o.gen != gen {
		// Disarmed (and possibly re-armed) after this expiry was scheduled.
		o.mu.Unlock()
		return
	}
	o.timer = nil
	o.mu.Unlock()

	safeCall(o.log, o.name, func() { o.fn(gen) })
}

func safeCall(log *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.TimerPanicsTotal.WithLabelValues(name).Inc()
			log.Error("timer callback panicked", "panic", r)
		}
	}()
	fn()
}
