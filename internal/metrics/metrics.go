// Package metrics defines the Prometheus instruments exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Signal server metrics
var (
	// SignalsReceivedTotal counts recognised POST signals by signal name
	SignalsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camwatch_signals_received_total",
			Help: "Recognised detector signals by signal name",
		},
		[]string{"signal"},
	)

	// IgnoredRequestsTotal counts requests acknowledged without a signal (preflight, unknown path)
	IgnoredRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camwatch_ignored_requests_total",
			Help: "Requests acknowledged without routing a signal, by reason",
		},
		[]string{"reason"},
	)

	// RequestFaultsTotal counts requests whose handling panicked
	RequestFaultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camwatch_request_faults_total",
			Help: "Signal requests aborted after a handler fault",
		},
	)

	// SignalServerUp is 1 while this process holds the signal listener
	SignalServerUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camwatch_signal_server_up",
			Help: "Whether the loopback signal server is bound (1) or not (0)",
		},
	)
)

// Button metrics
var (
	// AlertTransitionsTotal counts raised host events by button and event name
	AlertTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camwatch_events_raised_total",
			Help: "Events raised to the host by button and event",
		},
		[]string{"button", "event"},
	)

	// GaugeLevel tracks the current resource gauge level per button
	GaugeLevel = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "camwatch_gauge_level",
			Help: "Current resource gauge level (0-100)",
		},
		[]string{"button"},
	)

	// LoadedButtons tracks the number of loaded button instances
	LoadedButtons = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camwatch_loaded_buttons",
			Help: "Number of loaded button instances",
		},
	)
)

// Timer and notification metrics
var (
	// TimerPanicsTotal counts recovered panics in timer callbacks by timer name
	TimerPanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camwatch_timer_panics_total",
			Help: "Recovered panics in timer callbacks",
		},
		[]string{"timer"},
	)

	// NotificationsCoalescedTotal counts notifications merged into one already queued
	NotificationsCoalescedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camwatch_notifications_coalesced_total",
			Help: "Notifications coalesced into an identical pending notification",
		},
	)

	// NotificationsDroppedTotal counts notifications dropped on a full queue
	NotificationsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camwatch_notifications_dropped_total",
			Help: "Notifications dropped because the host queue was full",
		},
	)

	// ObserverPanicsTotal counts recovered panics in host callbacks
	ObserverPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camwatch_observer_panics_total",
			Help: "Recovered panics in host callbacks",
		},
	)
)

// MQTT metrics
var (
	// MQTTConnected is 1 while the broker connection is up
	MQTTConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camwatch_mqtt_connected",
			Help: "Whether the MQTT broker connection is up (1) or not (0)",
		},
	)

	// MQTTPublishedTotal counts messages handed to the broker by topic
	MQTTPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camwatch_mqtt_published_total",
			Help: "MQTT messages published by topic",
		},
		[]string{"topic"},
	)

	// MQTTBufferedTotal counts messages parked while the broker was unreachable
	MQTTBufferedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camwatch_mqtt_buffered_total",
			Help: "MQTT messages buffered while disconnected",
		},
	)
)
