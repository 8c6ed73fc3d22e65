package pion

import (
	"time"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/pion/webrtc/v4"
)

// sampleFromReport picks the inbound streams, the selected candidate pair
// and the remote view of our outbound stream out of a pion stats report.
func sampleFromReport(report webrtc.StatsReport, now time.Time) (domain.StatsSample, error) {
	sample := domain.StatsSample{Timestamp: now}
	found := false

	for _, s := range report {
		switch st := s.(type) {
		case webrtc.InboundRTPStreamStats:
			c := &domain.StreamCounters{
				BytesReceived:   st.BytesReceived,
				PacketsReceived: uint64(st.PacketsReceived),
				PacketsLost:     uint64(max(st.PacketsLost, 0)),
			}
			jitter := st.Jitter
			c.Jitter = &jitter

			switch st.Kind {
			case "audio":
				sample.Audio = merge(sample.Audio, c)
			case "video":
				if st.FramesDecoded > 0 {
					frames := uint64(st.FramesDecoded)
					c.FramesDecoded = &frames
				}
				sample.Video = merge(sample.Video, c)
				if st.FrameWidth > 0 && st.FrameHeight > 0 {
					sample.Resolution = &domain.Resolution{Width: int(st.FrameWidth), Height: int(st.FrameHeight)}
				}
			default:
				continue
			}
			found = true

		case webrtc.ICECandidatePairStats:
			if !st.Nominated || st.State != webrtc.StatsICECandidatePairStateSucceeded {
				continue
			}
			if st.CurrentRoundTripTime > 0 {
				rtt := seconds(st.CurrentRoundTripTime)
				sample.RoundTripTime = &rtt
			}
			if st.AvailableOutgoingBitrate > 0 {
				out := st.AvailableOutgoingBitrate
				sample.AvailableOutgoingBitrate = &out
			}
			if st.AvailableIncomingBitrate > 0 {
				in := st.AvailableIncomingBitrate
				sample.AvailableIncomingBitrate = &in
			}
			found = true

		case webrtc.RemoteInboundRTPStreamStats:
			r := sample.Remote
			if r == nil {
				r = &domain.RemoteInbound{}
				sample.Remote = r
			}
			r.PacketsLost += int64(st.PacketsLost)
			if st.RoundTripTime > 0 {
				rtt := seconds(st.RoundTripTime)
				r.RoundTripTime = &rtt
			}
			fl := st.FractionLost
			r.FractionLost = &fl
			found = true
		}
	}

	if !found {
		return domain.StatsSample{}, domain.ErrStatsUnavailable
	}
	return sample, nil
}

// merge sums counters when a peer sends more than one stream of a kind.
// Jitter is the worst of the streams.
func merge(acc, c *domain.StreamCounters) *domain.StreamCounters {
	if acc == nil {
		return c
	}
	acc.BytesReceived += c.BytesReceived
	acc.PacketsReceived += c.PacketsReceived
	acc.PacketsLost += c.PacketsLost
	if c.Jitter != nil && (acc.Jitter == nil || *c.Jitter > *acc.Jitter) {
		j := *c.Jitter
		acc.Jitter = &j
	}
	if c.FramesDecoded != nil {
		if acc.FramesDecoded == nil {
			acc.FramesDecoded = c.FramesDecoded
		} else {
			sum := *acc.FramesDecoded + *c.FramesDecoded
			acc.FramesDecoded = &sum
		}
	}
	return acc
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
