// Package guard keeps a single process-wide resource, such as the bound
// signal port, shared between several owners.
package guard

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ErrNotRetained is returned by Release without a matching Retain.
var ErrNotRetained = errors.New("guard: release without retain")

// Guard is a mutex-protected running flag. Exactly one caller wins Acquire
// until the flag is released.
type Guard struct {
	mu      sync.Mutex
	running bool
}

// Acquire marks the guard running. It returns false if it already was, in
// which case the caller must not touch the guarded resource.
func (g *Guard) Acquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return false
	}
	g.running = true
	return true
}

// Release clears the running flag and reports whether it was set.
func (g *Guard) Release() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	was := g.running
	g.running = false
	return was
}

// Running reports whether the guard is held.
func (g *Guard) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Opener opens the shared resource.
type Opener func() (io.Closer, error)

// Shared is a reference-counted owner of one resource. The first Retain
// opens it; the Release that drops the count to zero closes it.
type Shared struct {
	open Opener
	log  *slog.Logger

	guard Guard

	mu   sync.Mutex
	refs int
	res  io.Closer
}

// NewShared creates a Shared that opens its resource with open.
func NewShared(open Opener, logger *slog.Logger) *Shared {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shared{open: open, log: logger}
}

// Retain registers an owner. If the resource is not open, this owner tries to
// open it. An open failure is returned, but the reference still counts and
// must be released; a later Retain will try to open the resource again.
func (s *Shared) Retain() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refs++
	if s.res != nil || !s.guard.Acquire() {
		return nil
	}

	res, err := s.open()
	if err != nil {
		s.guard.Release()
		return fmt.Errorf("open shared resource: %w", err)
	}
	s.res = res
	s.log.Debug("shared resource opened", "refs", s.refs)
	return nil
}

// Release drops an owner. The last owner closes the resource; the guard is
// released even if closing fails.
func (s *Shared) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs == 0 {
		return ErrNotRetained
	}
	s.refs--
	if s.refs > 0 || s.res == nil {
		return nil
	}

	res := s.res
	s.res = nil
	defer s.guard.Release()

	if err := res.Close(); err != nil {
		return fmt.Errorf("close shared resource: %w", err)
	}
	s.log.Debug("shared resource closed")
	return nil
}

// Refs returns the number of current owners.
func (s *Shared) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Running reports whether the resource is open.
func (s *Shared) Running() bool {
	return s.guard.Running()
}
