// Package button runs one camera-watch button instance.
//
// A Watch owns the alert machine, the resource gauge and the two timers that
// drive them. Every mutation, whether it comes from a signal request, a timer
// or a host command, happens under the instance lock. Host notifications are
// queued on a notify.Notifier and never delivered on the caller's goroutine.
package button

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sweeney/camwatch/internal/clock"
	"github.com/sweeney/camwatch/internal/guard"
	"github.com/sweeney/camwatch/internal/ingest"
	"github.com/sweeney/camwatch/internal/logic"
	"github.com/sweeney/camwatch/internal/metrics"
	"github.com/sweeney/camwatch/internal/notify"
)

// Display slots. They double as the command parameters accepted by RunCommand.
const (
	SlotCamera  = "CameraToggle"
	SlotBattery = "BatteryStatus"
)

// Config holds per-instance timing and initial values.
type Config struct {
	Enabled       bool          // initial enable toggle
	Revert        time.Duration // alert grace period after an awake signal
	GaugeTick     time.Duration // gauge decrement period
	GaugeInitial  int           // gauge level at load
	InitialRedraw time.Duration // delay before the first full redraw
}

// DefaultConfig returns the stock camera-watch settings.
func DefaultConfig() Config {
	return Config{
		Revert:        2000 * time.Millisecond,
		GaugeTick:     5000 * time.Millisecond,
		GaugeInitial:  60,
		InitialRedraw: 1000 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Revert <= 0 {
		c.Revert = d.Revert
	}
	if c.GaugeTick <= 0 {
		c.GaugeTick = d.GaugeTick
	}
	if c.InitialRedraw <= 0 {
		c.InitialRedraw = d.InitialRedraw
	}
	return c
}

// Registrar subscribes a sink to incoming signals and returns its unsubscribe.
type Registrar interface {
	Register(s ingest.Sink) func()
}

// Snapshot is a point-in-time copy of an instance's state.
type Snapshot struct {
	ID           string
	Loaded       bool
	Enabled      bool
	Alert        bool // raw latch; see Sleepy for what a renderer should show
	RevertArmed  bool
	State        logic.State
	Battery      int
	GaugeRunning bool
}

// Watch is one loaded button instance.
type Watch struct {
	id       string
	cfg      Config
	clock    clockwork.Clock
	notifier notify.Notifier
	server   *guard.Shared
	signals  Registrar
	log      *slog.Logger

	mu         sync.Mutex
	loaded     bool
	machine    *logic.Machine
	gauge      *logic.Gauge
	revert     *clock.OneShot
	ticker     *clock.Periodic
	redraw     clockwork.Timer
	unregister func()
	retained   bool
}

// New creates an unloaded instance. server and signals may be nil, in which
// case the instance never binds the signal port or receives signals.
func New(id string, cfg Config, c clockwork.Clock, notifier notify.Notifier, server *guard.Shared, signals Registrar, logger *slog.Logger) *Watch {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watch{
		id:       id,
		cfg:      cfg.withDefaults(),
		clock:    c,
		notifier: notifier,
		server:   server,
		signals:  signals,
		log:      logger.With("component", "button", "button", id),
	}
}

// ID returns the instance identifier.
func (w *Watch) ID() string {
	return w.id
}

// Load creates the instance state, starts the gauge clock, subscribes to
// signals and takes a reference on the shared signal server. Failing to bind
// the server is logged and does not fail the load. Loading a loaded instance
// is a no-op.
func (w *Watch) Load() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.loaded {
		return
	}
	w.machine = logic.NewMachine(w.cfg.Enabled)
	w.gauge = logic.NewGauge(w.cfg.GaugeInitial)
	w.revert = clock.NewOneShot(w.clock, "revert", w.cfg.Revert, w.onRevert, w.log)
	w.ticker = clock.NewPeriodic(w.clock, "gauge", w.cfg.GaugeTick, w.onGaugeTick, w.log)
	w.loaded = true

	w.applyGauge(w.gauge.Start())
	w.redraw = w.clock.AfterFunc(w.cfg.InitialRedraw, w.onInitialRedraw)

	if w.signals != nil {
		w.unregister = w.signals.Register(w)
	}
	if w.server != nil {
		w.retained = true
		if err := w.server.Retain(); err != nil {
			w.log.Warn("signal server not started", "error", err)
		}
	}

	metrics.LoadedButtons.Inc()
	w.log.Info("button loaded", "enabled", w.machine.Enabled(), "battery", w.gauge.Level())
}

// Unload stops every timer, unsubscribes from signals and drops the server
// reference. The last instance to unload closes the signal server. All steps
// run even if one fails.
func (w *Watch) Unload() error {
	w.mu.Lock()
	if !w.loaded {
		w.mu.Unlock()
		return nil
	}
	w.loaded = false
	w.revert.Disarm()
	w.ticker.Stop()
	w.redraw.Stop()
	unregister := w.unregister
	w.unregister = nil
	retained := w.retained
	w.retained = false
	w.mu.Unlock()

	var errs []error
	if unregister != nil {
		unregister()
	}
	if retained {
		if err := w.server.Release(); err != nil {
			errs = append(errs, fmt.Errorf("release signal server: %w", err))
		}
	}

	metrics.LoadedButtons.Dec()
	metrics.GaugeLevel.DeleteLabelValues(w.id)
	w.log.Info("button unloaded")
	return errors.Join(errs...)
}

// Toggle flips the enable toggle.
func (w *Watch) Toggle() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.loaded {
		return
	}
	w.apply(w.machine.Toggle())
	w.log.Info("camera toggled", "enabled", w.machine.Enabled())
}

// ResetGauge refills the gauge and restarts its clock if it had stopped.
func (w *Watch) ResetGauge() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.loaded {
		return
	}
	w.applyGauge(w.gauge.Reset())
}

// RunCommand dispatches a host command by slot parameter.
func (w *Watch) RunCommand(param string) {
	switch param {
	case SlotCamera:
		w.Toggle()
	case SlotBattery:
		w.ResetGauge()
	default:
		w.log.Debug("unknown command ignored", "param", param)
	}
}

// HandleSignal applies a detector signal. Stretching recharges the gauge
// whether or not the camera is enabled.
func (w *Watch) HandleSignal(sig logic.Signal) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.loaded {
		return
	}
	if sig == logic.SignalStretching {
		w.applyGauge(w.gauge.Recharge(1))
		return
	}
	w.apply(w.machine.Process(sig))
}

// Snapshot returns the current state.
func (w *Watch) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{ID: w.id, Loaded: w.loaded}
	if w.machine == nil {
		return s
	}
	s.Enabled = w.machine.Enabled()
	s.Alert = w.machine.Alert()
	s.RevertArmed = w.machine.RevertArmed()
	s.State = w.machine.State()
	s.Battery = w.gauge.Level()
	s.GaugeRunning = w.gauge.Running()
	return s
}

func (w *Watch) onRevert(gen uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// Arm and Disarm only run under w.mu, so a generation mismatch means this
	// expiry was overtaken by a disarm and a fresh arm while it waited.
	if !w.loaded || gen != w.revert.Generation() {
		return
	}
	w.apply(w.machine.Revert())
}

func (w *Watch) onGaugeTick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.loaded {
		return
	}
	w.applyGauge(w.gauge.Tick())
}

func (w *Watch) onInitialRedraw() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.loaded {
		return
	}
	w.notifier.Invalidate(SlotCamera)
	w.notifier.Invalidate(SlotBattery)
	w.notifier.StateChanged()
}

// apply carries out a machine transition. Caller holds w.mu.
func (w *Watch) apply(tr logic.Transition) {
	switch tr.Timer {
	case logic.TimerArm:
		w.revert.Arm()
	case logic.TimerDisarm:
		w.revert.Disarm()
	}
	if tr.Changed {
		w.notifier.Invalidate(SlotCamera)
		w.notifier.StateChanged()
	}
	if tr.Event != "" {
		w.raise(tr.Event)
	}
}

// applyGauge carries out a gauge change. Caller holds w.mu.
func (w *Watch) applyGauge(c logic.GaugeChange) {
	if c.Start {
		w.ticker.Start()
	}
	if c.Stop {
		w.ticker.Stop()
	}
	metrics.GaugeLevel.WithLabelValues(w.id).Set(float64(w.gauge.Level()))
	if c.Changed {
		w.notifier.Invalidate(SlotBattery)
		w.notifier.StateChanged()
	}
	if c.Depleted {
		w.raise(logic.EventGaugeDepleted)
	}
}

func (w *Watch) raise(ev logic.EventType) {
	metrics.AlertTransitionsTotal.WithLabelValues(w.id, string(ev)).Inc()
	w.log.Info("event raised", "event", ev, "state", w.machine.State(), "battery", w.gauge.Level())
	w.notifier.Raise(string(ev))
}
