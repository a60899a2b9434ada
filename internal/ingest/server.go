// Package ingest provides the loopback HTTP server that receives signals from
// the external detector process.
//
// Every request is acknowledged with 200. Recognised POST paths are routed to
// a Sink; anything else is treated as a CORS preflight.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sweeney/camwatch/internal/logic"
	"github.com/sweeney/camwatch/internal/metrics"
)

// DefaultAddr is the address the detector posts to.
const DefaultAddr = "127.0.0.1:8085"

// Signal paths.
const (
	PathSleepy     = "/camera_sleepy"
	PathAwake      = "/camera_awake"
	PathStretching = "/camera_stretching"
)

const (
	maxBodyBytes    = 4 << 10
	shutdownTimeout = 2 * time.Second
)

// ErrNotLoopback is returned when asked to bind a non-loopback address.
var ErrNotLoopback = errors.New("signal server address must be loopback")

var routes = map[string]logic.Signal{
	PathSleepy:     logic.SignalSleepy,
	PathAwake:      logic.SignalAwake,
	PathStretching: logic.SignalStretching,
}

var okBody = []byte("OK")

// Handler acknowledges detector requests and routes recognised signals.
type Handler struct {
	sink Sink
	log  *slog.Logger
}

// NewHandler creates a Handler that routes signals to sink.
func NewHandler(sink Sink, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sink: sink, log: logger.With("component", "ingest")}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		metrics.RequestFaultsTotal.Inc()
		h.log.Error("signal request failed", "request_id", reqID, "method", r.Method, "path", r.URL.Path, "panic", rec)
		// net/http closes the connection for this sentinel without logging a stack.
		panic(http.ErrAbortHandler)
	}()

	hdr := w.Header()
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("Access-Control-Allow-Methods", "POST, GET")

	if r.Method != http.MethodPost {
		metrics.IgnoredRequestsTotal.WithLabelValues("preflight").Inc()
		w.WriteHeader(http.StatusOK)
		return
	}

	path := strings.ToLower(r.URL.Path)
	sig, ok := routes[path]
	if !ok {
		metrics.IgnoredRequestsTotal.WithLabelValues("unknown_path").Inc()
		h.log.Debug("unknown signal path", "request_id", reqID, "path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		return
	}

	source := readSource(r.Body)
	h.log.Debug("signal received", "request_id", reqID, "signal", sig, "source", source)
	metrics.SignalsReceivedTotal.WithLabelValues(string(sig)).Inc()

	h.sink.HandleSignal(sig)

	hdr.Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(okBody)
}

// readSource extracts the optional "source" field the detector sends.
// A missing or malformed body is not an error.
func readSource(body io.Reader) string {
	var payload struct {
		Source string `json:"source"`
	}
	if err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(&payload); err != nil {
		return ""
	}
	return payload.Source
}

// Server is a running signal listener.
type Server struct {
	httpServer *http.Server
	ln         net.Listener
	log        *slog.Logger
	done       chan struct{}
}

// Listen binds addr, which must be a loopback address, and starts serving in
// the background. A bind conflict is returned to the caller.
func Listen(addr string, sink Sink, logger *slog.Logger) (*Server, error) {
	if err := CheckLoopback(addr); err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	return Serve(ln, sink, logger), nil
}

// Serve starts serving on an already bound listener. Useful for tests.
func Serve(ln net.Listener, sink Sink, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		httpServer: &http.Server{
			Handler:           NewHandler(sink, logger),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
		},
		ln:   ln,
		log:  logger.With("component", "ingest", "addr", ln.Addr().String()),
		done: make(chan struct{}),
	}
	metrics.SignalServerUp.Set(1)
	go s.serve()
	s.log.Info("signal server listening")
	return s
}

func (s *Server) serve() {
	defer close(s.done)
	err := s.httpServer.Serve(s.ln)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		// Not restarted: the button keeps running without live signals.
		s.log.Error("signal server stopped", "error", err)
	}
	metrics.SignalServerUp.Set(0)
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Close stops accepting, waits briefly for in-flight requests and closes the
// listener. Every step runs even if an earlier one fails.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown: %w", err))
		if err := s.httpServer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("force close: %w", err))
		}
	}
	if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		errs = append(errs, fmt.Errorf("close listener: %w", err))
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		errs = append(errs, errors.New("signal server did not stop in time"))
	}

	if len(errs) == 0 {
		s.log.Info("signal server stopped")
	}
	return errors.Join(errs...)
}

// CheckLoopback returns ErrNotLoopback unless addr's host is a loopback IP or
// "localhost".
func CheckLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("parse signal address %q: %w", addr, err)
	}
	if strings.EqualFold(host, "localhost") {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("%w: %q", ErrNotLoopback, addr)
	}
	return nil
}
