package host

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/sweeney/camwatch/internal/button"
)

const (
	tileWidth = 26
	barWidth  = 16
)

var (
	tileStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Width(tileWidth).
			Align(lipgloss.Center).
			Padding(0, 1)
	alertTileStyle = tileStyle.BorderForeground(lipgloss.Color("196"))
	headerStyle    = lipgloss.NewStyle().Bold(true)
	alertStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	onStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	offStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	eventStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// Console renders a button's faces to a terminal whenever a slot is
// invalidated. It is the render(state) side of the host contract.
type Console struct {
	src Source

	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a renderer for src writing to out.
func NewConsole(src Source, out io.Writer) *Console {
	return &Console{src: src, out: out}
}

// OnStateChanged is a no-op; faces are redrawn per slot.
func (c *Console) OnStateChanged() {}

// OnImageInvalidated redraws the given slot.
func (c *Console) OnImageInvalidated(slot string) {
	snap := c.src.Snapshot()

	var tile string
	switch slot {
	case button.SlotCamera:
		tile = RenderCamera(snap)
	case button.SlotBattery:
		tile = RenderBattery(snap)
	default:
		return
	}
	c.write(lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render(snap.ID+" "+slot), tile))
}

// RaiseEvent prints a one-line event banner.
func (c *Console) RaiseEvent(name string) {
	c.write(eventStyle.Render(fmt.Sprintf("%s: %s", c.src.ID(), name)))
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

// RenderCamera draws the camera slot. A latched alert is not shown while the
// camera is disabled.
func RenderCamera(snap button.Snapshot) string {
	text := snap.CameraText()
	switch {
	case snap.Sleepy():
		return alertTileStyle.Render(alertStyle.Render(text))
	case snap.Enabled:
		return tileStyle.Render(onStyle.Render(text))
	default:
		return tileStyle.Render(offStyle.Render(text))
	}
}

// RenderBattery draws the battery slot: title, a bar coloured by level and
// the percentage.
func RenderBattery(snap button.Snapshot) string {
	filled := snap.Battery * barWidth / 100
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(snap.BatteryColor())).Render(strings.Repeat("█", filled)) +
		offStyle.Render(strings.Repeat("░", barWidth-filled))

	return tileStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		snap.BatteryTitle(),
		bar,
		snap.BatteryText(),
	))
}
