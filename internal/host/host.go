// Package host contains the observers that sit on the host side of a button's
// notification dispatcher: a terminal renderer, an MQTT event sink and the
// status tracker feed. All callbacks run on the dispatcher goroutine.
package host

import "github.com/sweeney/camwatch/internal/button"

// Source is the read side of a button instance.
type Source interface {
	ID() string
	Snapshot() button.Snapshot
}
