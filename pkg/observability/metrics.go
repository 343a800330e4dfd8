package observability

import (
	"github.com/aretw0/domsync/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "domsync"

// Metrics holds the hub's Prometheus collectors.
type Metrics struct {
	PacketsSent     prometheus.Counter
	BytesSent       prometheus.Counter
	Flushes         prometheus.Counter
	FlushedNodes    *prometheus.CounterVec
	PacketsReceived prometheus.Counter
	Entries         *prometheus.CounterVec
	Faults          *prometheus.CounterVec
	Connections     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PacketsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_sent_total",
			Help:      "Packets delivered to channels, counted per channel.",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Packet bytes delivered to channels, counted per channel.",
		}),
		Flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Flushes that produced a packet.",
		}),
		FlushedNodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushed_nodes_total",
			Help:      "Nodes included in outbound packets.",
		}, []string{"change"}),
		PacketsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Inbound packets that decoded successfully.",
		}),
		Entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_total",
			Help:      "Inbound packet entries by outcome.",
		}, []string{"outcome"}),
		Faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_total",
			Help:      "Reported faults by kind.",
		}, []string{"kind"}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Currently connected channels.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.PacketsSent, m.BytesSent, m.Flushes, m.FlushedNodes,
			m.PacketsReceived, m.Entries, m.Faults, m.Connections,
		)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	connections := func(e *domain.ConnectionEvent) {
		m.Connections.Set(float64(e.Connections))
	}
	return domain.LifecycleHooks{
		OnFlush: func(e *domain.FlushEvent) {
			delivered := e.Connections - e.Failed
			m.Flushes.Inc()
			m.PacketsSent.Add(float64(delivered))
			m.BytesSent.Add(float64(delivered * e.Bytes))
			m.FlushedNodes.WithLabelValues("dirty").Add(float64(e.Dirty))
			m.FlushedNodes.WithLabelValues("dead").Add(float64(e.Dead))
		},
		OnApply: func(e *domain.ApplyEvent) {
			m.PacketsReceived.Inc()
			m.Entries.WithLabelValues("applied").Add(float64(e.Applied))
			m.Entries.WithLabelValues("rejected").Add(float64(e.Rejected))
		},
		OnConnect:    connections,
		OnDisconnect: connections,
		OnFault: func(e *domain.FaultEvent) {
			m.Faults.WithLabelValues(string(e.Kind)).Inc()
		},
	}
}
