// Package notify delivers state-change notifications from a button to the
// host that displays it.
//
// Producers never block: notifications are queued and delivered in order by a
// single goroutine, which is the only context host callbacks run on.
// Redraw notifications for the same target are coalesced while queued.
package notify

import (
	"log/slog"
	"sync"

	"github.com/sweeney/camwatch/internal/metrics"
)

// DefaultQueueSize bounds the number of undelivered notifications.
const DefaultQueueSize = 256

// Host is the callback surface of whatever displays a button.
type Host interface {
	// OnStateChanged tells the host to re-query the button state.
	OnStateChanged()
	// OnImageInvalidated tells the host one slot's face must be redrawn.
	OnImageInvalidated(slot string)
	// RaiseEvent surfaces a named event (e.g. "alert").
	RaiseEvent(name string)
}

// Notifier is the producer side used by a button.
type Notifier interface {
	StateChanged()
	Invalidate(slot string)
	Raise(name string)
}

// Kind is the type of a queued notification.
type Kind int

const (
	KindStateChanged Kind = iota
	KindImageInvalidated
	KindRaise
)

func (k Kind) String() string {
	switch k {
	case KindStateChanged:
		return "state_changed"
	case KindImageInvalidated:
		return "image_invalidated"
	case KindRaise:
		return "raise"
	default:
		return "unknown"
	}
}

// Notification is one queued host callback.
type Notification struct {
	Kind Kind
	Slot string // KindImageInvalidated only
	Name string // KindRaise only
}

// Dispatcher queues notifications and delivers them to its hosts.
type Dispatcher struct {
	log      *slog.Logger
	maxQueue int

	mu      sync.Mutex
	hosts   []Host
	queue   []Notification
	pending map[Notification]bool
	closed  bool

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

// NewDispatcher creates a dispatcher and starts its delivery goroutine.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		log:      logger.With("component", "notify"),
		maxQueue: DefaultQueueSize,
		pending:  make(map[Notification]bool),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go d.run()
	return d
}

// AddHost registers a host. Hosts receive notifications queued after this call.
func (d *Dispatcher) AddHost(h Host) {
	d.mu.Lock()
	d.hosts = append(d.hosts, h)
	d.mu.Unlock()
}

// StateChanged queues an OnStateChanged callback.
func (d *Dispatcher) StateChanged() {
	d.enqueue(Notification{Kind: KindStateChanged})
}

// Invalidate queues an OnImageInvalidated callback for slot.
func (d *Dispatcher) Invalidate(slot string) {
	d.enqueue(Notification{Kind: KindImageInvalidated, Slot: slot})
}

// Raise queues a RaiseEvent callback. Raised events are never coalesced.
func (d *Dispatcher) Raise(name string) {
	d.enqueue(Notification{Kind: KindRaise, Name: name})
}

func (d *Dispatcher) enqueue(n Notification) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	coalesce := n.Kind != KindRaise
	if coalesce && d.pending[n] {
		d.mu.Unlock()
		metrics.NotificationsCoalescedTotal.Inc()
		return
	}
	if len(d.queue) >= d.maxQueue {
		d.mu.Unlock()
		metrics.NotificationsDroppedTotal.Inc()
		d.log.Warn("notification queue full, dropping", "kind", n.Kind, "slot", n.Slot, "name", n.Name)
		return
	}
	if coalesce {
		d.pending[n] = true
	}
	d.queue = append(d.queue, n)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) run() {
	defer close(d.stopped)
	for {
		select {
		case <-d.wake:
			d.flush()
		case <-d.done:
			d.flush()
			return
		}
	}
}

func (d *Dispatcher) flush() {
	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	clear(d.pending)
	hosts := append([]Host(nil), d.hosts...)
	d.mu.Unlock()

	for _, n := range batch {
		for _, h := range hosts {
			d.deliver(h, n)
		}
	}
}

func (d *Dispatcher) deliver(h Host, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ObserverPanicsTotal.Inc()
			d.log.Error("host callback panicked", "kind", n.Kind, "panic", r)
		}
	}()

	switch n.Kind {
	case KindStateChanged:
		h.OnStateChanged()
	case KindImageInvalidated:
		h.OnImageInvalidated(n.Slot)
	case KindRaise:
		h.RaiseEvent(n.Name)
	}
}

// Close delivers what is already queued and stops the delivery goroutine.
// Notifications sent after Close are discarded.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.done)
	<-d.stopped
}
