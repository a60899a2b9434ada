// Command camwatch runs camera-watch buttons fed by a local sleepiness detector.
//
// The detector posts to a loopback-only signal server; each button instance
// latches an alert, drains an energy gauge and reports to the console, MQTT
// and an optional status server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sweeney/camwatch/internal/button"
	"github.com/sweeney/camwatch/internal/config"
	"github.com/sweeney/camwatch/internal/gpio"
	"github.com/sweeney/camwatch/internal/guard"
	"github.com/sweeney/camwatch/internal/host"
	"github.com/sweeney/camwatch/internal/ingest"
	"github.com/sweeney/camwatch/internal/logging"
	"github.com/sweeney/camwatch/internal/logic"
	"github.com/sweeney/camwatch/internal/mqtt"
	"github.com/sweeney/camwatch/internal/notify"
	"github.com/sweeney/camwatch/internal/status"
	"github.com/sweeney/camwatch/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	printState := flag.Bool("print-state", false, "Print current button levels and exit")
	bindFlags(flag.CommandLine, cfg)
	flag.Parse()

	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if *printState {
		if err := printButtons(os.Stdout, cfg); err != nil {
			logger.Error("print state", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// bindFlags exposes every setting as a flag defaulting to the loaded value.
func bindFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.SignalAddr, "signal", cfg.SignalAddr, "Signal server address (loopback only)")
	fs.BoolVar(&cfg.Enabled, "enabled", cfg.Enabled, "Start with the camera enabled")
	fs.DurationVar(&cfg.Revert, "revert", cfg.Revert, "Alert grace period after an awake signal")
	fs.DurationVar(&cfg.GaugeTick, "gauge-tick", cfg.GaugeTick, "Energy gauge decrement period")
	fs.IntVar(&cfg.GaugeInitial, "gauge-initial", cfg.GaugeInitial, "Initial energy level")
	fs.IntVar(&cfg.Buttons, "buttons", cfg.Buttons, "Number of button instances")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")
	fs.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address (empty to disable)")
	fs.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.BoolVar(&cfg.Console, "console", cfg.Console, "Render button faces to stdout")
	fs.BoolVar(&cfg.GPIO, "gpio", cfg.GPIO, "Read physical toggle/reset buttons")
	fs.IntVar(&cfg.PinToggle, "pin-toggle", cfg.PinToggle, "BCM pin number for the toggle button")
	fs.IntVar(&cfg.PinReset, "pin-reset", cfg.PinReset, "BCM pin number for the reset button")
	fs.DurationVar(&cfg.Poll, "poll", cfg.Poll, "GPIO polling interval")
	fs.DurationVar(&cfg.PressDebounce, "press-debounce", cfg.PressDebounce, "Button press debounce")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
}

func printButtons(w io.Writer, cfg *config.Config) error {
	reader, err := gpio.NewRealReader(cfg.PinToggle, cfg.PinReset)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	toggle, reset, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	_, err = fmt.Fprintf(w, "TOGGLE: %s, RESET: %s\n", levelString(toggle), levelString(reset))
	return err
}

func levelString(pressed bool) logic.Level {
	if pressed {
		return logic.LevelDown
	}
	return logic.LevelUp
}

func run(cfg *config.Config, logger *slog.Logger) error {
	clk := clockwork.NewRealClock()
	tracker := status.NewTracker(clk.Now(), statusConfig(cfg))

	signals := ingest.NewDispatcher()
	signals.Register(tracker)
	shared := guard.NewShared(signalServerOpener(cfg.SignalAddr, signals, tracker, logger), logger)

	var (
		publisher  mqtt.Publisher
		mqttStatus mqtt.ConnectionStatus
	)
	if cfg.Broker != "" {
		pub, err := mqtt.NewRealPublisher(cfg.Broker, logger)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer pub.Close()
		publisher, mqttStatus = pub, pub
	}

	var live host.Broadcaster
	if cfg.HTTPAddr != "" {
		hub := web.NewHub(logger)
		defer hub.Stop()
		live = hub

		srv := web.New(cfg.HTTPAddr, tracker, hub, logger)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer shutdownHTTP(srv, logger)
		logger.Info("http status server listening", "addr", cfg.HTTPAddr)
	}

	var reader gpio.Reader
	if cfg.GPIO {
		rr, err := gpio.NewRealReader(cfg.PinToggle, cfg.PinReset)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer rr.Close()
		reader = rr
	}

	set := loadButtons(cfg, buttonDeps{
		clock:     clk,
		signals:   signals,
		server:    shared,
		tracker:   tracker,
		live:      live,
		publisher: publisher,
		console:   consoleOut(cfg),
		log:       logger,
	})
	defer set.unload(logger)

	l := &loop{
		watches:    set.watches,
		reader:     reader,
		detector:   logic.NewPressDetector(cfg.PressDebounce),
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		now:        clk.Now,
		log:        logger,
	}
	l.publishSystem("STARTUP", "")

	logger.Info("started",
		"buttons", cfg.Buttons,
		"signal", cfg.SignalAddr,
		"revert", cfg.Revert,
		"gauge_tick", cfg.GaugeTick,
		"broker", cfg.Broker,
		"gpio", cfg.GPIO)

	var pollC, heartbeatC <-chan time.Time
	if reader != nil {
		t := clk.NewTicker(cfg.Poll)
		defer t.Stop()
		pollC = t.Chan()
	}
	if publisher != nil && cfg.Heartbeat > 0 {
		t := clk.NewTicker(cfg.Heartbeat)
		defer t.Stop()
		heartbeatC = t.Chan()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return l.run(pollC, heartbeatC, sigCh)
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		SignalAddr:   cfg.SignalAddr,
		RevertMs:     cfg.Revert.Milliseconds(),
		GaugeTickMs:  cfg.GaugeTick.Milliseconds(),
		GaugeInitial: cfg.GaugeInitial,
		Buttons:      cfg.Buttons,
		HeartbeatMs:  cfg.Heartbeat.Milliseconds(),
		Broker:       cfg.Broker,
		HTTPAddr:     cfg.HTTPAddr,
		GPIO:         cfg.GPIO,
	}
}

func consoleOut(cfg *config.Config) io.Writer {
	if !cfg.Console {
		return nil
	}
	return os.Stdout
}

func shutdownHTTP(srv *web.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
}

// signalServer marks the tracker down when the shared server closes.
type signalServer struct {
	*ingest.Server
	tracker *status.Tracker
}

func (s signalServer) Close() error {
	s.tracker.SetSignalServer(false)
	return s.Server.Close()
}

// signalServerOpener binds the signal server on first use. It is called by
// guard.Shared, so at most one server exists however many buttons load.
func signalServerOpener(addr string, sink ingest.Sink, tracker *status.Tracker, logger *slog.Logger) guard.Opener {
	return func() (io.Closer, error) {
		srv, err := ingest.Listen(addr, sink, logger)
		if err != nil {
			return nil, err
		}
		tracker.SetSignalServer(true)
		return signalServer{Server: srv, tracker: tracker}, nil
	}
}

// buttonDeps is what every button instance shares.
type buttonDeps struct {
	clock     clockwork.Clock
	signals   button.Registrar
	server    *guard.Shared
	tracker   *status.Tracker
	live      host.Broadcaster // nil without a status server
	publisher mqtt.Publisher   // nil without a broker
	console   io.Writer        // nil disables console rendering
	log       *slog.Logger
}

// buttonSet is the loaded instances and their notification queues.
type buttonSet struct {
	watches     []*button.Watch
	feeds       []*host.StatusFeed
	dispatchers []*notify.Dispatcher
}

// loadButtons creates and loads cfg.Buttons instances, each with its own
// notification queue and hosts.
func loadButtons(cfg *config.Config, deps buttonDeps) *buttonSet {
	bcfg := button.Config{
		Enabled:      cfg.Enabled,
		Revert:       cfg.Revert,
		GaugeTick:    cfg.GaugeTick,
		GaugeInitial: cfg.GaugeInitial,
	}

	set := &buttonSet{}
	for i := 1; i <= cfg.Buttons; i++ {
		d := notify.NewDispatcher(deps.log)
		w := button.New(fmt.Sprintf("cam-%d", i), bcfg, deps.clock, d, deps.server, deps.signals, deps.log)

		feed := host.NewStatusFeed(w, deps.tracker, deps.live)
		d.AddHost(feed)
		if deps.console != nil {
			d.AddHost(host.NewConsole(w, deps.console))
		}
		if deps.publisher != nil {
			d.AddHost(host.NewEventSink(w, deps.publisher, deps.clock, deps.log))
		}

		w.Load()
		feed.Sync()

		set.watches = append(set.watches, w)
		set.feeds = append(set.feeds, feed)
		set.dispatchers = append(set.dispatchers, d)
	}
	return set
}

// unload stops every instance, then drains their notification queues. The
// last instance to unload closes the signal server.
func (s *buttonSet) unload(logger *slog.Logger) {
	for _, w := range s.watches {
		if err := w.Unload(); err != nil {
			logger.Warn("unload button", "button", w.ID(), "error", err)
		}
	}
	for i, d := range s.dispatchers {
		d.Close()
		s.feeds[i].Sync()
	}
}

// loop is the daemon's main select loop: physical buttons, heartbeat and
// OS signals. Detector signals and timers are handled by the buttons.
type loop struct {
	watches    []*button.Watch
	reader     gpio.Reader // nil when GPIO is disabled
	detector   *logic.PressDetector
	publisher  mqtt.Publisher // nil when MQTT is disabled
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	now        func() time.Time
	log        *slog.Logger
}

// run blocks until a signal arrives. A nil poll or heartbeat channel disables
// that source.
func (l *loop) run(poll, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			l.log.Info("shutting down", "signal", s)
			l.publishSystem("SHUTDOWN", signalName(s))
			return nil

		case <-poll:
			l.pollButtons()

		case <-heartbeat:
			l.log.Debug("heartbeat")
			l.publishSystem("HEARTBEAT", "")
		}
	}
}

func (l *loop) pollButtons() {
	t := l.now()
	toggle, reset, err := l.reader.Read()
	if err != nil {
		l.log.Warn("gpio read error", "error", err)
		return
	}

	for _, p := range l.detector.Process(logic.Input{Toggle: toggle, Reset: reset, Time: t}) {
		l.log.Info("button pressed", "button", p.Button)
		for _, w := range l.watches {
			switch p.Button {
			case logic.ButtonToggle:
				w.Toggle()
			case logic.ButtonReset:
				w.ResetGauge()
			}
		}
	}
}

// publishSystem sends a lifecycle event carrying a full status snapshot.
// Heartbeats are not retained.
func (l *loop) publishSystem(event, reason string) {
	if l.publisher == nil {
		return
	}
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	snap := l.tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := l.publisher.PublishSystem(ev); err != nil {
		l.log.Error("publish system event", "event", event, "error", err)
		return
	}
	l.log.Info("published system event", "event", event)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
