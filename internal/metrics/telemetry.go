package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Wyydra/meet/internal/core/domain"
)

// Telemetry mirrors the latest per-peer report into gauges.
type Telemetry struct {
	bitrate *prometheus.GaugeVec
	loss    *prometheus.GaugeVec
	jitter  *prometheus.GaugeVec
	fps     *prometheus.GaugeVec
	rtt     *prometheus.GaugeVec
}

func NewTelemetry(reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		bitrate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "peer", Name: "inbound_bitrate_kbps",
			Help: "Inbound bitrate over the last sampling period.",
		}, []string{"peer", "kind"}),
		loss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "peer", Name: "inbound_loss_percent",
			Help: "Inbound packet loss over the last sampling period.",
		}, []string{"peer", "kind"}),
		jitter: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "peer", Name: "inbound_jitter_ms",
			Help: "Inbound interarrival jitter.",
		}, []string{"peer", "kind"}),
		fps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "peer", Name: "decoded_fps",
			Help: "Decoded video frames per second.",
		}, []string{"peer"}),
		rtt: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "peer", Name: "round_trip_ms",
			Help: "Round-trip time of the active candidate pair.",
		}, []string{"peer"}),
	}
	reg.MustRegister(t.bitrate, t.loss, t.jitter, t.fps, t.rtt)
	return t
}

func (t *Telemetry) Observe(r domain.PeerReport) {
	peer := r.PeerID.String()
	t.observeStream(peer, "audio", r.Audio)
	t.observeStream(peer, "video", r.Video)
	if r.Video != nil && r.Video.FPS != nil {
		t.fps.WithLabelValues(peer).Set(float64(*r.Video.FPS))
	}
	if r.RoundTripMs != nil {
		t.rtt.WithLabelValues(peer).Set(*r.RoundTripMs)
	}
}

func (t *Telemetry) observeStream(peer, kind string, s *domain.StreamReport) {
	if s == nil {
		return
	}
	t.bitrate.WithLabelValues(peer, kind).Set(float64(s.BitrateKbps))
	t.loss.WithLabelValues(peer, kind).Set(s.LossPct)
	if s.JitterMs != nil {
		t.jitter.WithLabelValues(peer, kind).Set(*s.JitterMs)
	}
}

// Forget removes every series of a departed peer.
func (t *Telemetry) Forget(peer domain.ClientID) {
	labels := prometheus.Labels{"peer": peer.String()}
	t.bitrate.DeletePartialMatch(labels)
	t.loss.DeletePartialMatch(labels)
	t.jitter.DeletePartialMatch(labels)
	t.fps.DeletePartialMatch(labels)
	t.rtt.DeletePartialMatch(labels)
}
