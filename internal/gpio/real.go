//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads push buttons from the Linux GPIO character device.
type RealReader struct {
	chip   *gpiocdev.Chip
	toggle *gpiocdev.Line
	reset  *gpiocdev.Line
}

// NewRealReader requests both pins as pulled-up inputs on gpiochip0.
func NewRealReader(pinToggle, pinReset int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Buttons short the pin to ground, so idle must read high.
	toggle, err := chip.RequestLine(pinToggle, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request toggle pin %d: %w", pinToggle, err)
	}

	reset, err := chip.RequestLine(pinReset, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		toggle.Close()
		chip.Close()
		return nil, fmt.Errorf("request reset pin %d: %w", pinReset, err)
	}

	return &RealReader{chip: chip, toggle: toggle, reset: reset}, nil
}

// Read returns whether each button is held down (raw 0).
func (r *RealReader) Read() (bool, bool, error) {
	toggleRaw, err := r.toggle.Value()
	if err != nil {
		return false, false, fmt.Errorf("read toggle pin: %w", err)
	}

	resetRaw, err := r.reset.Value()
	if err != nil {
		return false, false, fmt.Errorf("read reset pin: %w", err)
	}

	return toggleRaw == 0, resetRaw == 0, nil
}

// Close returns both pins to pulled-down inputs, the Pi boot default, and
// releases the chip. Every step runs even if an earlier one fails.
func (r *RealReader) Close() error {
	var errs []error

	lines := []struct {
		name string
		line *gpiocdev.Line
	}{{"toggle", r.toggle}, {"reset", r.reset}}

	for _, l := range lines {
		if l.line == nil {
			continue
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
