package broker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics метрики брокера для Prometheus.
type Metrics struct {
	ActiveConnections *prometheus.GaugeVec
	MessagesTotal     *prometheus.CounterVec
	RelayDrops        prometheus.Counter
	DecryptFailures   prometheus.Counter
}

// NewMetrics создает и регистрирует метрики брокера.
// reg может быть nil, тогда метрики не регистрируются (удобно в тестах).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "broker",
			Name:      "active_connections",
			Help:      "Number of registered duplex connections by kind.",
		}, []string{"kind"}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "messages_total",
			Help:      "Inbound protocol messages by type.",
		}, []string{"type"}),
		RelayDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "relay_drops_total",
			Help:      "Relayed messages dropped because the target connection was saturated or gone.",
		}),
		DecryptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "broker",
			Name:      "template_decrypt_failures_total",
			Help:      "Stored fingerprint templates that failed to decrypt during bulk download.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.ActiveConnections, m.MessagesTotal, m.RelayDrops, m.DecryptFailures)
	}
	return m
}
