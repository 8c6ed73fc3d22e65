package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/core/port"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const DefaultStatsPeriod = time.Second

// Aggregator polls every active peer once per period and turns cumulative
// transport counters into rates.
type Aggregator struct {
	peers   port.PeerSet
	sinks   []port.TelemetrySink
	surface port.PlaybackSurface
	period  time.Duration
	timeout time.Duration
	now     func() time.Time

	mu        sync.Mutex
	snapshots map[domain.ClientID]domain.Snapshot
}

type AggregatorOption func(*Aggregator)

func WithPlaybackSurface(s port.PlaybackSurface) AggregatorOption {
	return func(a *Aggregator) { a.surface = s }
}

// WithPullTimeout bounds a single peer's stats pull. Defaults to 80% of the
// period.
func WithPullTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) { a.timeout = d }
}

func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(peers port.PeerSet, period time.Duration, sinks []port.TelemetrySink, opts ...AggregatorOption) *Aggregator {
	if period <= 0 {
		period = DefaultStatsPeriod
	}
	a := &Aggregator{
		peers:     peers,
		sinks:     sinks,
		period:    period,
		timeout:   period * 8 / 10,
		now:       time.Now,
		snapshots: make(map[domain.ClientID]domain.Snapshot),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run samples until ctx is done.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			reports := a.Collect(ctx)
			for _, sink := range a.sinks {
				if err := sink.Publish(ctx, reports); err != nil {
					log.Warn().Err(err).Msg("Failed to publish telemetry")
				}
			}
		}
	}
}

// Collect runs one sampling cycle. Peers whose stats are unavailable, fail
// or miss the pull timeout are left out of the result.
func (a *Aggregator) Collect(ctx context.Context) []domain.PeerReport {
	peers := a.peers.ActivePeers()
	samples := make([]*domain.StatsSample, len(peers))

	var g errgroup.Group
	for i, p := range peers {
		i, p := i, p
		g.Go(func() error {
			pullCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			sample, err := a.pull(pullCtx, p)
			if err != nil {
				if !errors.Is(err, domain.ErrStatsUnavailable) {
					log.Debug().Err(err).Str("peer_id", p.RemoteID().String()).Msg("Stats pull skipped")
				}
				return nil
			}
			samples[i] = &sample
			return nil
		})
	}
	_ = g.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	active := make(map[domain.ClientID]struct{}, len(peers))
	reports := make([]domain.PeerReport, 0, len(peers))
	for i, p := range peers {
		id := p.RemoteID()
		active[id] = struct{}{}
		if samples[i] == nil {
			continue
		}
		sample := *samples[i]
		if sample.Timestamp.IsZero() {
			sample.Timestamp = a.now()
		}

		var prev *domain.Snapshot
		if snap, ok := a.snapshots[id]; ok {
			prev = &snap
		}
		report, next := Derive(prev, sample, a.period)
		a.snapshots[id] = next

		report.PeerID = id
		if a.surface != nil {
			if res, ok := a.surface.Resolution(id); ok {
				report.Resolution = &res
			}
		}
		reports = append(reports, report)
	}
	for id := range a.snapshots {
		if _, ok := active[id]; !ok {
			delete(a.snapshots, id)
		}
	}
	return reports
}

// pull returns as soon as ctx expires even if the transport does not honour
// it, so one stuck peer cannot hold the cycle.
func (a *Aggregator) pull(ctx context.Context, p port.StatsProvider) (domain.StatsSample, error) {
	type result struct {
		sample domain.StatsSample
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := p.Stats(ctx)
		ch <- result{s, err}
	}()
	select {
	case r := <-ch:
		return r.sample, r.err
	case <-ctx.Done():
		return domain.StatsSample{}, ctx.Err()
	}
}

// Derive computes the report for one sample against the previous snapshot
// of the same peer (nil on the first poll) and returns the snapshot to keep
// for the next cycle.
func Derive(prev *domain.Snapshot, sample domain.StatsSample, period time.Duration) (domain.PeerReport, domain.Snapshot) {
	elapsedMs := period.Milliseconds()
	var prevAudio, prevVideo *domain.StreamCounters
	if prev != nil {
		if e := sample.Timestamp.Sub(prev.Timestamp).Milliseconds(); e > 0 {
			elapsedMs = e
		}
		prevAudio, prevVideo = prev.Audio, prev.Video
	}
	if elapsedMs <= 0 {
		elapsedMs = DefaultStatsPeriod.Milliseconds()
	}

	report := domain.PeerReport{
		Timestamp: sample.Timestamp,
		ElapsedMs: elapsedMs,
		Audio:     streamReport(prevAudio, sample.Audio, elapsedMs),
		Video:     streamReport(prevVideo, sample.Video, elapsedMs),
	}
	if sample.RoundTripTime != nil {
		ms := durationMs(*sample.RoundTripTime)
		report.RoundTripMs = &ms
	}
	if sample.AvailableOutgoingBitrate != nil {
		kbps := int64(math.Round(*sample.AvailableOutgoingBitrate / 1000))
		report.OutgoingKbps = &kbps
	}
	if sample.AvailableIncomingBitrate != nil {
		kbps := int64(math.Round(*sample.AvailableIncomingBitrate / 1000))
		report.IncomingKbps = &kbps
	}
	if r := sample.Remote; r != nil {
		rr := &domain.RemoteReport{PacketsLost: r.PacketsLost, FractionLost: r.FractionLost}
		if r.RoundTripTime != nil {
			ms := durationMs(*r.RoundTripTime)
			rr.RoundTripMs = &ms
		}
		report.Remote = rr
	}
	if sample.Resolution != nil {
		res := *sample.Resolution
		report.Resolution = &res
	}

	next := domain.Snapshot{
		Timestamp: sample.Timestamp,
		Audio:     keep(prevAudio, sample.Audio),
		Video:     keep(prevVideo, sample.Video),
	}
	return report, next
}

func streamReport(prev, cur *domain.StreamCounters, elapsedMs int64) *domain.StreamReport {
	if cur == nil {
		return nil
	}
	var base domain.StreamCounters
	if prev != nil {
		base = *prev
	}

	bytes := delta(cur.BytesReceived, base.BytesReceived)
	packets := delta(cur.PacketsReceived, base.PacketsReceived)
	lost := delta(cur.PacketsLost, base.PacketsLost)

	r := &domain.StreamReport{
		BitrateKbps: int64(math.Round(float64(bytes) * 8 / float64(elapsedMs))),
	}
	if total := lost + packets; total > 0 {
		r.LossPct = math.Round(float64(lost)/float64(total)*1000) / 10
	}
	if cur.Jitter != nil {
		ms := *cur.Jitter * 1000
		r.JitterMs = &ms
	}
	if cur.FramesDecoded != nil && prev != nil && prev.FramesDecoded != nil {
		frames := delta(*cur.FramesDecoded, *prev.FramesDecoded)
		fps := int64(math.Round(float64(frames) * 1000 / float64(elapsedMs)))
		r.FPS = &fps
	}
	return r
}

// delta clamps counter resets to zero.
func delta(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

func keep(prev, cur *domain.StreamCounters) *domain.StreamCounters {
	if cur == nil {
		return prev
	}
	c := *cur
	return &c
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
