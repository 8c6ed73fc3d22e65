package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/core/port"
)

func TestRelay_CountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelay(reg)

	m.ClientConnected("r1")
	m.ClientConnected("r1")
	m.ClientDisconnected("r1")
	m.MessageRelayed(domain.KindOffer)
	m.MessageDropped(domain.KindAnswer, port.DropUnknownTarget)
	m.PairingFormed("r1")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.clients.WithLabelValues("r1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.relayed.WithLabelValues("offer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("answer", port.DropUnknownTarget)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pairings.WithLabelValues("r1")))
}

func TestTelemetry_ObserveAndForget(t *testing.T) {
	reg := prometheus.NewRegistry()
	tm := NewTelemetry(reg)

	fps := int64(30)
	rtt := 12.5
	tm.Observe(domain.PeerReport{
		PeerID:      "p1",
		RoundTripMs: &rtt,
		Audio:       &domain.StreamReport{BitrateKbps: 48, LossPct: 1.5},
		Video:       &domain.StreamReport{BitrateKbps: 900, FPS: &fps},
	})

	assert.Equal(t, 48.0, testutil.ToFloat64(tm.bitrate.WithLabelValues("p1", "audio")))
	assert.Equal(t, 1.5, testutil.ToFloat64(tm.loss.WithLabelValues("p1", "audio")))
	assert.Equal(t, 30.0, testutil.ToFloat64(tm.fps.WithLabelValues("p1")))
	assert.Equal(t, 12.5, testutil.ToFloat64(tm.rtt.WithLabelValues("p1")))

	tm.Forget("p1")
	assert.Equal(t, 0, testutil.CollectAndCount(tm.bitrate))
	assert.Equal(t, 0, testutil.CollectAndCount(tm.rtt))
}
