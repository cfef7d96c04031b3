// Package metrics exposes the service runtime's health as Prometheus
// collectors. This mirrors runZeroInc-conniver (gitlab.com/xerra/common/go-tcpinfo),
// the pack's closest domain match — a TCP-connection-statistics exporter
// built on github.com/prometheus/client_golang — applied here to a
// single companion-app connection instead of a whole host's sockets.
// vaultlink never starts an HTTP server itself (that belongs to the
// embedding application); Registry() hands back a *prometheus.Registry
// the caller wires into their own handler.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the set of collectors one Service updates: on each frame
// read and written, on each keepalive tick, on each applied DATA_UPDATE
// record, after each DATA_UPDATE payload (graph size), when a command is
// issued or answered, and on each error that closes the connection.
type Metrics struct {
	registry *prometheus.Registry

	FramesReceived   prometheus.Counter
	FramesSent       prometheus.Counter
	KeepalivesSent   prometheus.Counter
	RPCOutstanding   prometheus.Gauge
	GraphNodes       prometheus.Gauge
	DataUpdateRecord prometheus.Counter
	ProtocolErrors   prometheus.Counter
}

// New constructs a fresh, independently-registered Metrics so multiple
// Services in one process don't collide on collector names.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultlink_frames_received_total",
			Help: "Frames read from the companion-app connection.",
		}),
		FramesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultlink_frames_sent_total",
			Help: "Frames written to the companion-app connection.",
		}),
		KeepalivesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultlink_keepalives_sent_total",
			Help: "KEEP_ALIVE messages enqueued by the keepalive activity.",
		}),
		RPCOutstanding: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaultlink_rpc_outstanding",
			Help: "Remote commands awaiting a COMMAND_RESULT.",
		}),
		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vaultlink_graph_nodes",
			Help: "Nodes currently held in the value graph.",
		}),
		DataUpdateRecord: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultlink_data_update_records_total",
			Help: "Value-graph records applied from DATA_UPDATE payloads.",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vaultlink_protocol_errors_total",
			Help: "Protocol errors that terminated a connection.",
		}),
	}
	reg.MustRegister(
		m.FramesReceived, m.FramesSent, m.KeepalivesSent,
		m.RPCOutstanding, m.GraphNodes, m.DataUpdateRecord, m.ProtocolErrors,
	)
	return m
}

// Registry returns the Prometheus registry holding this Metrics'
// collectors, for an embedding application to expose on its own
// http.Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
