// Package metrics holds the Prometheus collectors of a lodestone server.
//
// All methods are safe on a nil *Metrics so packages can be used without
// a registry, which is what the tests do.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lodestone"

type Metrics struct {
	framesIn       *prometheus.CounterVec
	framesOut      *prometheus.CounterVec
	bytesIn        prometheus.Counter
	bytesOut       prometheus.Counter
	connections    prometheus.Gauge
	unknownPackets *prometheus.CounterVec
	packetErrors   *prometheus.CounterVec
	logins         *prometheus.CounterVec
}

// New registers the collectors with reg. Use prometheus.DefaultRegisterer
// for the process wide registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		framesIn: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "frames_received_total",
			Help:      "Frames dispatched, by connection state",
		}, []string{"state"}),

		framesOut: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "frames_sent_total",
			Help:      "Frames sent, by compression",
		}, []string{"compressed"}),

		bytesIn: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "received_bytes_total",
			Help:      "Raw bytes read from client sockets",
		}),

		bytesOut: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "sent_bytes_total",
			Help:      "Raw bytes written to client sockets",
		}),

		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "transport",
			Name:      "connections",
			Help:      "Currently open client connections",
		}),

		unknownPackets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "unknown_packets_total",
			Help:      "Frames with no handler for their state and type",
		}, []string{"state"}),

		packetErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "packet_errors_total",
			Help:      "Malformed frames and packets",
		}, []string{"kind"}),

		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "protocol",
			Name:      "logins_total",
			Help:      "Login attempts by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) FrameReceived(state string) {
	if m == nil {
		return
	}
	m.framesIn.WithLabelValues(state).Inc()
}

func (m *Metrics) FrameSent(compressed bool) {
	if m == nil {
		return
	}

	label := "false"
	if compressed {
		label = "true"
	}
	m.framesOut.WithLabelValues(label).Inc()
}

func (m *Metrics) BytesReceived(n int) {
	if m == nil {
		return
	}
	m.bytesIn.Add(float64(n))
}

func (m *Metrics) BytesSent(n int) {
	if m == nil {
		return
	}
	m.bytesOut.Add(float64(n))
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) UnknownPacket(state string) {
	if m == nil {
		return
	}
	m.unknownPackets.WithLabelValues(state).Inc()
}

// PacketError counts a malformed frame. kind is a short stable label such
// as "frame", "length" or "handshake".
func (m *Metrics) PacketError(kind string) {
	if m == nil {
		return
	}
	m.packetErrors.WithLabelValues(kind).Inc()
}

// Login counts a finished login attempt. result is "ok", "denied" or
// "error".
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}
