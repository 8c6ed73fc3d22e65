// Package metrics exposes relay and telemetry counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Wyydra/meet/internal/core/domain"
)

const namespace = "meet"

// Relay implements port.RelayMetrics.
type Relay struct {
	clients  *prometheus.GaugeVec
	relayed  *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	pairings *prometheus.CounterVec
}

func NewRelay(reg prometheus.Registerer) *Relay {
	m := &Relay{
		clients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Clients with a live relay connection.",
		}, []string{"room"}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_relayed_total",
			Help:      "Negotiation messages forwarded to their recipient.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Messages dropped by the relay.",
		}, []string{"kind", "reason"}),
		pairings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairings_total",
			Help:      "Caller/callee pairings formed in paired mode.",
		}, []string{"room"}),
	}
	reg.MustRegister(m.clients, m.relayed, m.dropped, m.pairings)
	return m
}

func (m *Relay) ClientConnected(room domain.RoomID) {
	m.clients.WithLabelValues(room.String()).Inc()
}

func (m *Relay) ClientDisconnected(room domain.RoomID) {
	m.clients.WithLabelValues(room.String()).Dec()
}

func (m *Relay) MessageRelayed(kind domain.Kind) {
	m.relayed.WithLabelValues(kind.String()).Inc()
}

func (m *Relay) MessageDropped(kind domain.Kind, reason string) {
	m.dropped.WithLabelValues(kind.String(), reason).Inc()
}

func (m *Relay) PairingFormed(room domain.RoomID) {
	m.pairings.WithLabelValues(room.String()).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) ClientConnected(domain.RoomID)      {}
func (Nop) ClientDisconnected(domain.RoomID)   {}
func (Nop) MessageRelayed(domain.Kind)         {}
func (Nop) MessageDropped(domain.Kind, string) {}
func (Nop) PairingFormed(domain.RoomID)        {}
