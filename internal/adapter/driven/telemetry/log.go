package telemetry

import (
	"context"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/rs/zerolog"
)

// LogSink writes one structured line per peer and cycle.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(l zerolog.Logger) *LogSink {
	return &LogSink{log: l}
}

func (s *LogSink) Publish(_ context.Context, reports []domain.PeerReport) error {
	for _, r := range reports {
		ev := s.log.Info().
			Str("peer_id", r.PeerID.String()).
			Int64("elapsed_ms", r.ElapsedMs)
		if r.RoundTripMs != nil {
			ev = ev.Float64("rtt_ms", *r.RoundTripMs)
		}
		if r.OutgoingKbps != nil {
			ev = ev.Int64("available_out_kbps", *r.OutgoingKbps)
		}
		if r.IncomingKbps != nil {
			ev = ev.Int64("available_in_kbps", *r.IncomingKbps)
		}
		if r.Audio != nil {
			ev = ev.Dict("audio", streamDict(r.Audio))
		}
		if r.Video != nil {
			ev = ev.Dict("video", streamDict(r.Video))
		}
		if r.Resolution != nil {
			ev = ev.Int("width", r.Resolution.Width).Int("height", r.Resolution.Height)
		}
		if r.Remote != nil {
			ev = ev.Int64("remote_lost", r.Remote.PacketsLost)
			if r.Remote.RoundTripMs != nil {
				ev = ev.Float64("remote_rtt_ms", *r.Remote.RoundTripMs)
			}
		}
		ev.Msg("Peer stats")
	}
	return nil
}

func streamDict(s *domain.StreamReport) *zerolog.Event {
	d := zerolog.Dict().
		Int64("kbps", s.BitrateKbps).
		Float64("loss_pct", s.LossPct)
	if s.JitterMs != nil {
		d = d.Float64("jitter_ms", *s.JitterMs)
	}
	if s.FPS != nil {
		d = d.Int64("fps", *s.FPS)
	}
	return d
}
