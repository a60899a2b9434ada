package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sweeney/camwatch/internal/button"
	"github.com/sweeney/camwatch/internal/config"
	"github.com/sweeney/camwatch/internal/gpio"
	"github.com/sweeney/camwatch/internal/guard"
	"github.com/sweeney/camwatch/internal/ingest"
	"github.com/sweeney/camwatch/internal/logic"
	"github.com/sweeney/camwatch/internal/mqtt"
	"github.com/sweeney/camwatch/internal/status"
)

func testConfig() *config.Config {
	return &config.Config{
		SignalAddr:    "127.0.0.1:0",
		Revert:        2 * time.Second,
		GaugeTick:     5 * time.Second,
		GaugeInitial:  60,
		Buttons:       1,
		Heartbeat:     15 * time.Minute,
		Poll:          100 * time.Millisecond,
		PressDebounce: 250 * time.Millisecond,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

func TestBindFlagsOverrideConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Broker = "tcp://from-env:1883"

	fs := flag.NewFlagSet("camwatch", flag.ContinueOnError)
	bindFlags(fs, cfg)
	err := fs.Parse([]string{"-buttons", "3", "-revert", "500ms", "-enabled", "-console=false"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Buttons != 3 {
		t.Errorf("Buttons: got %d, want 3", cfg.Buttons)
	}
	if cfg.Revert != 500*time.Millisecond {
		t.Errorf("Revert: got %v, want 500ms", cfg.Revert)
	}
	if !cfg.Enabled {
		t.Error("Enabled: got false, want true")
	}
	if cfg.Console {
		t.Error("Console: got true, want false")
	}
	if cfg.Broker != "tcp://from-env:1883" {
		t.Errorf("Broker: unset flag should keep config value, got %q", cfg.Broker)
	}
}

func TestFlagCorrectsInvalidEnvValue(t *testing.T) {
	cfg := testConfig()
	cfg.SignalAddr = "0.0.0.0:8085"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected public signal address to fail validation")
	}

	fs := flag.NewFlagSet("camwatch", flag.ContinueOnError)
	bindFlags(fs, cfg)
	if err := fs.Parse([]string{"-signal", "127.0.0.1:9000"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate after -signal override: %v", err)
	}
}

func TestStatusConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Buttons = 2
	cfg.GPIO = true

	sc := statusConfig(cfg)
	if sc.RevertMs != 2000 || sc.GaugeTickMs != 5000 || sc.HeartbeatMs != 900000 {
		t.Errorf("durations: got %+v", sc)
	}
	if sc.Buttons != 2 || !sc.GPIO || sc.GaugeInitial != 60 {
		t.Errorf("values: got %+v", sc)
	}
}

func TestLevelString(t *testing.T) {
	if got := levelString(true); got != logic.LevelDown {
		t.Errorf("pressed: got %s", got)
	}
	if got := levelString(false); got != logic.LevelUp {
		t.Errorf("released: got %s", got)
	}
}

func TestSignalName(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := signalName(tt.sig); got != tt.want {
			t.Errorf("signalName(%v) = %q, want %q", tt.sig, got, tt.want)
		}
	}
}

// --- button wiring tests ---

// syncBuffer is a bytes.Buffer safe for the console's writer goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoadButtonsSharesSignalServer(t *testing.T) {
	cfg := testConfig()
	cfg.Buttons = 3
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	signals := ingest.NewDispatcher()
	shared := guard.NewShared(signalServerOpener(cfg.SignalAddr, signals, tracker, nil), nil)

	set := loadButtons(cfg, buttonDeps{
		clock:   clockwork.NewFakeClock(),
		signals: signals,
		server:  shared,
		tracker: tracker,
	})

	if len(set.watches) != 3 {
		t.Fatalf("expected 3 watches, got %d", len(set.watches))
	}
	if got := shared.Refs(); got != 3 {
		t.Errorf("refs: got %d, want 3", got)
	}
	if !shared.Running() {
		t.Error("signal server should be running")
	}
	if got := signals.Len(); got != 3 {
		t.Errorf("signal sinks: got %d, want 3", got)
	}

	snap := tracker.Snapshot()
	if !snap.SignalServerUp {
		t.Error("tracker should report the signal server up")
	}
	wantIDs := []string{"cam-1", "cam-2", "cam-3"}
	if len(snap.Buttons) != len(wantIDs) {
		t.Fatalf("tracked buttons: got %d, want %d", len(snap.Buttons), len(wantIDs))
	}
	for i, id := range wantIDs {
		if snap.Buttons[i].ID != id || !snap.Buttons[i].Loaded {
			t.Errorf("button %d: got %+v", i, snap.Buttons[i])
		}
	}

	set.unload(discardLogger())

	if shared.Running() {
		t.Error("last unload should close the signal server")
	}
	snap = tracker.Snapshot()
	if snap.SignalServerUp {
		t.Error("tracker should report the signal server down")
	}
	for _, b := range snap.Buttons {
		if b.Loaded {
			t.Errorf("button %s still loaded", b.ID)
		}
	}
}

func TestLoadButtonsWiresHosts(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = true
	fc := clockwork.NewFakeClock()
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	signals := ingest.NewDispatcher()
	pub := mqtt.NewFakePublisher()
	out := &syncBuffer{}

	set := loadButtons(cfg, buttonDeps{
		clock:     fc,
		signals:   signals,
		tracker:   tracker,
		publisher: pub,
		console:   out,
	})
	defer set.unload(discardLogger())

	signals.HandleSignal(logic.SignalSleepy)

	waitUntil(t, "alert event published", func() bool { return len(pub.Events()) == 1 })
	ev := pub.Events()[0]
	if ev.Button != "cam-1" || ev.Name != "alert" || ev.State != "ALERT" || ev.Battery != 60 {
		t.Errorf("unexpected event: %+v", ev)
	}

	waitUntil(t, "console render", func() bool { return strings.Contains(out.String(), "Sleepiness detected!") })
	waitUntil(t, "tracker update", func() bool {
		b := tracker.Snapshot().Buttons
		return len(b) == 1 && b[0].Sleepy
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- loop tests ---

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Only called from the loop goroutine.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// repeat returns n copies of sample.
func repeat(sample gpio.Sample, n int) []gpio.Sample {
	out := make([]gpio.Sample, n)
	for i := range out {
		out[i] = sample
	}
	return out
}

// faultReader wraps a FakeReader and fails a fixed range of Read calls.
type faultReader struct {
	inner      *gpio.FakeReader
	call       int
	faultStart int // inclusive
	faultEnd   int // exclusive
}

func (r *faultReader) Read() (bool, bool, error) {
	i := r.call
	r.call++
	if i >= r.faultStart && i < r.faultEnd {
		return false, false, errors.New("gpio fault")
	}
	return r.inner.Read()
}

func (r *faultReader) Close() error { return r.inner.Close() }

type loopFixture struct {
	loop    *loop
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	watch   *button.Watch
}

func newLoopFixture(t *testing.T, reader gpio.Reader) *loopFixture {
	t.Helper()
	cfg := testConfig()
	tracker := status.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), statusConfig(cfg))
	set := loadButtons(cfg, buttonDeps{clock: clockwork.NewFakeClock(), tracker: tracker, log: discardLogger()})
	t.Cleanup(func() { set.unload(discardLogger()) })

	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	l := &loop{
		watches:    set.watches,
		reader:     reader,
		detector:   logic.NewPressDetector(cfg.PressDebounce),
		publisher:  pub,
		mqttStatus: pub,
		tracker:    tracker,
		now:        fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 100*time.Millisecond),
		log:        discardLogger(),
	}
	return &loopFixture{loop: l, pub: pub, tracker: tracker, watch: set.watches[0]}
}

// drive feeds nPoll poll ticks and nHeartbeat heartbeat ticks, then sends sig.
func (f *loopFixture) drive(t *testing.T, nPoll, nHeartbeat int, sig os.Signal) {
	t.Helper()
	poll := make(chan time.Time)
	heartbeat := make(chan time.Time)
	sigCh := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- f.loop.run(poll, heartbeat, sigCh)
	}()

	for i := 0; i < nPoll; i++ {
		poll <- time.Time{}
	}
	for i := 0; i < nHeartbeat; i++ {
		heartbeat <- time.Time{}
	}
	sigCh <- sig

	if err := <-errCh; err != nil {
		t.Fatalf("loop returned error: %v", err)
	}
}

func decodeSystem(t *testing.T, payload []byte) status.StatusInner {
	t.Helper()
	var s status.StatusJSON
	if err := json.Unmarshal(payload, &s); err != nil {
		t.Fatalf("decode system payload: %v", err)
	}
	return s.Status
}

func TestLoopShutdownPublishesSnapshot(t *testing.T) {
	f := newLoopFixture(t, nil)
	f.drive(t, 0, 0, syscall.SIGTERM)

	events := f.pub.SystemEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(events))
	}
	ev := events[0]
	if ev.Event != "SHUTDOWN" || ev.Reason != "SIGTERM" || !ev.Retained {
		t.Errorf("unexpected shutdown event: %+v", ev)
	}

	inner := decodeSystem(t, f.pub.SystemPayloads()[0])
	if inner.Event != "SHUTDOWN" || inner.Reason != "SIGTERM" {
		t.Errorf("payload event/reason: got %q/%q", inner.Event, inner.Reason)
	}
	if len(inner.Buttons) != 1 || inner.Buttons[0].ID != "cam-1" {
		t.Errorf("payload buttons: got %+v", inner.Buttons)
	}
	if !f.tracker.Snapshot().MQTTConnected {
		t.Error("tracker should record the MQTT connection state")
	}
}

func TestLoopNoPressAtBaseline(t *testing.T) {
	reader := gpio.NewFakeReader(repeat(gpio.Sample{}, 4))
	f := newLoopFixture(t, reader)

	f.drive(t, 4, 0, syscall.SIGINT)

	if f.loop.detector.Presses() != 0 {
		t.Errorf("expected no presses, got %d", f.loop.detector.Presses())
	}
	if f.watch.Snapshot().Enabled {
		t.Error("camera should still be disabled")
	}
}

func TestLoopHeldAtStartupIsNotAPress(t *testing.T) {
	reader := gpio.NewFakeReader(repeat(gpio.Sample{Toggle: true}, 8))
	f := newLoopFixture(t, reader)

	f.drive(t, 8, 0, syscall.SIGINT)

	if f.watch.Snapshot().Enabled {
		t.Error("a button held since startup must not toggle")
	}
}

func TestLoopTogglePress(t *testing.T) {
	samples := append(
		repeat(gpio.Sample{}, 4),
		repeat(gpio.Sample{Toggle: true}, 4)...,
	)
	f := newLoopFixture(t, gpio.NewFakeReader(samples))

	f.drive(t, len(samples), 0, syscall.SIGTERM)

	s := f.watch.Snapshot()
	if !s.Enabled {
		t.Error("toggle press should enable the camera")
	}
	if s.State != logic.StateNormal {
		t.Errorf("state: got %s, want NORMAL", s.State)
	}
}

func TestLoopResetPress(t *testing.T) {
	samples := append(
		repeat(gpio.Sample{}, 4),
		append(
			repeat(gpio.Sample{Reset: true}, 4),
			repeat(gpio.Sample{}, 4)...,
		)...,
	)
	f := newLoopFixture(t, gpio.NewFakeReader(samples))

	f.drive(t, len(samples), 0, syscall.SIGTERM)

	s := f.watch.Snapshot()
	if s.Battery != logic.GaugeMax {
		t.Errorf("battery: got %d, want %d", s.Battery, logic.GaugeMax)
	}
	if f.loop.detector.Presses() != 1 {
		t.Errorf("release must not count as a press, got %d presses", f.loop.detector.Presses())
	}
}

func TestLoopSurvivesReadErrors(t *testing.T) {
	samples := append(
		repeat(gpio.Sample{}, 4),
		repeat(gpio.Sample{Toggle: true}, 4)...,
	)
	reader := &faultReader{inner: gpio.NewFakeReader(samples), faultStart: 2, faultEnd: 5}
	f := newLoopFixture(t, reader)

	// 3 faulted reads on top of the 8 samples
	f.drive(t, len(samples)+3, 0, syscall.SIGTERM)

	if !f.watch.Snapshot().Enabled {
		t.Error("press after read errors should still toggle")
	}
}

func TestLoopHeartbeat(t *testing.T) {
	f := newLoopFixture(t, nil)
	f.drive(t, 0, 2, syscall.SIGTERM)

	events := f.pub.SystemEvents()
	if len(events) != 3 {
		t.Fatalf("expected 3 system events, got %d", len(events))
	}
	for i, want := range []string{"HEARTBEAT", "HEARTBEAT", "SHUTDOWN"} {
		if events[i].Event != want {
			t.Errorf("event %d: got %s, want %s", i, events[i].Event, want)
		}
	}
	if events[0].Retained {
		t.Error("heartbeat should not be retained")
	}
}

func TestLoopPublishErrorDoesNotStop(t *testing.T) {
	f := newLoopFixture(t, nil)
	f.pub.PublishSystemError = errors.New("broker gone")

	f.drive(t, 0, 1, syscall.SIGTERM)

	if len(f.pub.SystemEvents()) != 0 {
		t.Errorf("expected nothing recorded, got %d", len(f.pub.SystemEvents()))
	}
}

func TestPublishSystemWithoutBroker(t *testing.T) {
	f := newLoopFixture(t, nil)
	f.loop.publisher = nil
	f.loop.mqttStatus = nil

	f.loop.publishSystem("STARTUP", "")
	f.drive(t, 0, 0, syscall.SIGTERM)
}
