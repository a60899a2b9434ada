// Package gpio reads the optional physical push buttons.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads push button states.
type Reader interface {
	// Read returns whether the toggle and reset buttons are held down.
	// Buttons are wired active-low: raw 0 = pressed.
	Read() (toggle, reset bool, err error)

	// Close releases GPIO resources.
	Close() error
}

// Default pins (BCM numbering)
const (
	DefaultPinToggle = 26 // camera enable toggle
	DefaultPinReset  = 16 // gauge reset
)
