package port

import (
	"context"

	"github.com/Wyydra/meet/internal/core/domain"
)

// StatsProvider is one active peer as seen by the telemetry loop.
type StatsProvider interface {
	RemoteID() domain.ClientID
	Stats(ctx context.Context) (domain.StatsSample, error)
}

// PeerSet lists the peers currently eligible for polling.
type PeerSet interface {
	ActivePeers() []StatsProvider
}

// PlaybackSurface reports the size a remote peer's video is rendered at.
type PlaybackSurface interface {
	Resolution(peer domain.ClientID) (domain.Resolution, bool)
}

type TelemetrySink interface {
	Publish(ctx context.Context, reports []domain.PeerReport) error
}
