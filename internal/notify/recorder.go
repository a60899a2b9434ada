package notify

import "sync"

// Recorder is a Host that records every callback for test assertions.
type Recorder struct {
	mu     sync.Mutex
	calls  []Notification
	events []string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// OnStateChanged records the callback.
func (r *Recorder) OnStateChanged() {
	r.record(Notification{Kind: KindStateChanged})
}

// OnImageInvalidated records the callback.
func (r *Recorder) OnImageInvalidated(slot string) {
	r.record(Notification{Kind: KindImageInvalidated, Slot: slot})
}

// RaiseEvent records the callback.
func (r *Recorder) RaiseEvent(name string) {
	r.mu.Lock()
	r.events = append(r.events, name)
	r.mu.Unlock()
	r.record(Notification{Kind: KindRaise, Name: name})
}

func (r *Recorder) record(n Notification) {
	r.mu.Lock()
	r.calls = append(r.calls, n)
	r.mu.Unlock()
}

// Calls returns a copy of every recorded callback in order.
func (r *Recorder) Calls() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.calls...)
}

// Events returns the names passed to RaiseEvent in order.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Count returns how many callbacks of kind were recorded.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Invalidations returns how many times slot was invalidated.
func (r *Recorder) Invalidations(slot string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Kind == KindImageInvalidated && c.Slot == slot {
			n++
		}
	}
	return n
}

// Reset clears recorded callbacks.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.events = nil
	r.mu.Unlock()
}
