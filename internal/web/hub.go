package web

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sweeney/camwatch/internal/status"
)

const (
	maxClients   = 32
	writeTimeout = 5 * time.Second
	sendBuffer   = 16
)

// ErrHubStopped is returned by Register after Stop.
var ErrHubStopped = errors.New("web: hub stopped")

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	conn    *websocket.Conn
	initial []byte
	errCh   chan error
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	conn *websocket.Conn
}

func (cmdUnregister) hubCmd() {}

type cmdBroadcast struct {
	data []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdClientCount struct {
	replyCh chan int
}

func (cmdClientCount) hubCmd() {}

// --- Per-connection writer ---

type clientWriter struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
}

func newClientWriter(conn *websocket.Conn) *clientWriter {
	cw := &clientWriter{
		conn:   conn,
		sendCh: make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (cw *clientWriter) run() {
	for {
		select {
		case msg := <-cw.sendCh:
			cw.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cw.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-cw.done:
			return
		}
	}
}

func (cw *clientWriter) stop() {
	close(cw.done)
	cw.conn.Close()
}

// --- Hub ---

// Hub fans status snapshots out to websocket clients. All client bookkeeping
// happens on the hub goroutine; each client has its own writer goroutine so a
// slow client cannot stall the others. Clients whose buffer is full are
// disconnected.
type Hub struct {
	cmdCh    chan hubCmd
	done     chan struct{}
	stopOnce sync.Once
	clients  map[*websocket.Conn]*clientWriter
	log      *slog.Logger
}

// NewHub creates a hub and starts its goroutine.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		done:    make(chan struct{}),
		clients: make(map[*websocket.Conn]*clientWriter),
		log:     logger.With("component", "ws"),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case cmdRegister:
				h.handleRegister(c)
			case cmdUnregister:
				h.handleUnregister(c.conn)
			case cmdBroadcast:
				h.handleBroadcast(c)
			case cmdClientCount:
				c.replyCh <- len(h.clients)
			}
		case <-h.done:
			for conn, cw := range h.clients {
				cw.stop()
				delete(h.clients, conn)
			}
			return
		}
	}
}

func (h *Hub) handleRegister(c cmdRegister) {
	if len(h.clients) >= maxClients {
		h.log.Warn("rejecting websocket client", "max_clients", maxClients)
		c.conn.Close()
		c.errCh <- fmt.Errorf("max clients (%d) reached", maxClients)
		return
	}
	cw := newClientWriter(c.conn)
	if c.initial != nil {
		cw.sendCh <- c.initial
	}
	h.clients[c.conn] = cw
	h.log.Debug("websocket client registered", "clients", len(h.clients))
	c.errCh <- nil
}

func (h *Hub) handleUnregister(conn *websocket.Conn) {
	cw, exists := h.clients[conn]
	if !exists {
		return
	}
	cw.stop()
	delete(h.clients, conn)
	h.log.Debug("websocket client unregistered", "clients", len(h.clients))
}

func (h *Hub) handleBroadcast(c cmdBroadcast) {
	var slow []*websocket.Conn
	for conn, cw := range h.clients {
		select {
		case cw.sendCh <- c.data:
		default:
			slow = append(slow, conn)
		}
	}
	for _, conn := range slow {
		h.log.Warn("disconnecting slow websocket client")
		h.handleUnregister(conn)
	}
}

func (h *Hub) send(cmd hubCmd) bool {
	select {
	case h.cmdCh <- cmd:
		return true
	case <-h.done:
		return false
	}
}

// --- Public API ---

// Register adds a client. initial, if non-nil, is the first message it gets.
func (h *Hub) Register(conn *websocket.Conn, initial []byte) error {
	errCh := make(chan error, 1)
	if !h.send(cmdRegister{conn: conn, initial: initial, errCh: errCh}) {
		conn.Close()
		return ErrHubStopped
	}
	select {
	case err := <-errCh:
		return err
	case <-h.done:
		return ErrHubStopped
	}
}

// Unregister removes and closes a client.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.send(cmdUnregister{conn: conn})
}

// Broadcast queues data for every client.
func (h *Hub) Broadcast(data []byte) {
	h.send(cmdBroadcast{data: data})
}

// BroadcastStatus sends a compact status snapshot to every client.
func (h *Hub) BroadcastStatus(snap status.Snapshot) {
	h.Broadcast(status.FormatCompactJSON(snap))
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	if !h.send(cmdClientCount{replyCh: replyCh}) {
		return 0
	}
	select {
	case n := <-replyCh:
		return n
	case <-h.done:
		return 0
	}
}

// Stop disconnects every client and stops the hub. It is idempotent.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}
