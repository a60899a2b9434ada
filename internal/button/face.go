package button

import (
	"fmt"
	"math"
)

// Sleepy reports whether the alert face should be shown. A latched alert is
// hidden while the camera is disabled.
func (s Snapshot) Sleepy() bool {
	return s.Enabled && s.Alert
}

// CameraText is the caption for the camera slot.
func (s Snapshot) CameraText() string {
	switch {
	case s.Sleepy():
		return "Sleepiness detected!"
	case s.Enabled:
		return "Camera\nON"
	default:
		return "Camera\nOFF"
	}
}

// BatteryTitle is the heading of the battery slot.
func (s Snapshot) BatteryTitle() string {
	return "Energy Level"
}

// BatteryText is the level caption for the battery slot.
func (s Snapshot) BatteryText() string {
	return fmt.Sprintf("%d%%", s.Battery)
}

// BatteryColor returns the bar colour as "#rrggbb": red when empty, through
// amber at half, to green when full.
func (s Snapshot) BatteryColor() string {
	const maxIntensity = 200.0
	level := float64(s.Battery)

	var r, g int
	if level <= 50 {
		r = 255
		g = int(math.Round(level * maxIntensity / 50))
	} else {
		g = int(maxIntensity)
		r = 255 - int(math.Round((level-50)*255/50))
	}
	return fmt.Sprintf("#%02x%02x00", min(max(r, 0), 255), min(max(g, 0), 255))
}
