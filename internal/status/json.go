package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string             `json:"event,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	SignalServer  SignalServerStatus `json:"signal_server"`
	Buttons       []ButtonJSON       `json:"buttons"`
	Signals       SignalsJSON        `json:"signal_counts"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	StartTime     string             `json:"start_time"`
	Timestamp     string             `json:"timestamp"`
	MQTT          MQTTStatus         `json:"mqtt"`
	Config        ConfigJSON         `json:"config"`
}

// SignalServerStatus reports the loopback listener.
type SignalServerStatus struct {
	Up   bool   `json:"up"`
	Addr string `json:"addr"`
}

// ButtonJSON is the JSON representation of one button instance.
type ButtonJSON struct {
	ID           string `json:"id"`
	Loaded       bool   `json:"loaded"`
	Enabled      bool   `json:"enabled"`
	Alert        bool   `json:"alert"`
	Sleepy       bool   `json:"sleepy"`
	RevertArmed  bool   `json:"revert_armed"`
	State        string `json:"state"`
	Battery      int    `json:"battery"`
	GaugeRunning bool   `json:"gauge_running"`
}

// SignalsJSON is the JSON representation of signal counts.
type SignalsJSON struct {
	Sleepy     int `json:"sleepy"`
	Awake      int `json:"awake"`
	Stretching int `json:"stretching"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SignalAddr   string `json:"signal_addr"`
	RevertMs     int64  `json:"revert_ms"`
	GaugeTickMs  int64  `json:"gauge_tick_ms"`
	GaugeInitial int    `json:"gauge_initial"`
	Buttons      int    `json:"buttons"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	GPIO         bool   `json:"gpio"`
}

func buildInner(snap Snapshot) StatusInner {
	buttons := make([]ButtonJSON, 0, len(snap.Buttons))
	for _, b := range snap.Buttons {
		state := string(b.State)
		if state == "" {
			state = "UNKNOWN"
		}
		buttons = append(buttons, ButtonJSON{
			ID:           b.ID,
			Loaded:       b.Loaded,
			Enabled:      b.Enabled,
			Alert:        b.Alert,
			Sleepy:       b.Sleepy,
			RevertArmed:  b.RevertArmed,
			State:        state,
			Battery:      b.Battery,
			GaugeRunning: b.GaugeRunning,
		})
	}

	cfg := snap.Config
	return StatusInner{
		SignalServer:  SignalServerStatus{Up: snap.SignalServerUp, Addr: cfg.SignalAddr},
		Buttons:       buttons,
		Signals:       SignalsJSON(snap.Signals),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: cfg.Broker},
		Config: ConfigJSON{
			SignalAddr:   cfg.SignalAddr,
			RevertMs:     cfg.RevertMs,
			GaugeTickMs:  cfg.GaugeTickMs,
			GaugeInitial: cfg.GaugeInitial,
			Buttons:      cfg.Buttons,
			HeartbeatMs:  cfg.HeartbeatMs,
			Broker:       cfg.Broker,
			HTTPAddr:     cfg.HTTPAddr,
			GPIO:         cfg.GPIO,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatCompactJSON returns the status as a single line, for the websocket feed.
func FormatCompactJSON(snap Snapshot) []byte {
	data, _ := json.Marshal(StatusJSON{Status: buildInner(snap)})
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
