package ingest

import (
	"slices"
	"sync"

	"github.com/sweeney/camwatch/internal/logic"
)

// Sink consumes detector signals. HandleSignal must be cheap and must not
// block: it runs while the HTTP response is still open.
type Sink interface {
	HandleSignal(sig logic.Signal)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(sig logic.Signal)

// HandleSignal calls f(sig).
func (f SinkFunc) HandleSignal(sig logic.Signal) { f(sig) }

// Dispatcher fans each signal out to every registered sink. It lets one bound
// server feed every loaded button instance.
type Dispatcher struct {
	mu    sync.RWMutex
	sinks map[int]Sink
	next  int
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{sinks: make(map[int]Sink)}
}

// Register adds a sink and returns a function that removes it. The returned
// function is idempotent.
func (d *Dispatcher) Register(s Sink) func() {
	d.mu.Lock()
	id := d.next
	d.next++
	d.sinks[id] = s
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.sinks, id)
			d.mu.Unlock()
		})
	}
}

// Len returns the number of registered sinks.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sinks)
}

// HandleSignal delivers sig to every sink in registration order.
func (d *Dispatcher) HandleSignal(sig logic.Signal) {
	d.mu.RLock()
	ids := make([]int, 0, len(d.sinks))
	for id := range d.sinks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	sinks := make([]Sink, 0, len(ids))
	for _, id := range ids {
		sinks = append(sinks, d.sinks[id])
	}
	d.mu.RUnlock()

	for _, s := range sinks {
		s.HandleSignal(sig)
	}
}
