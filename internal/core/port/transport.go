package port

import (
	"context"

	"github.com/Wyydra/meet/internal/core/domain"
)

// PeerTransport is the external real-time media capability for one remote
// peer. Descriptions and candidates are opaque JSON documents.
type PeerTransport interface {
	// CreateOffer creates an offer and installs it as the local description.
	CreateOffer(ctx context.Context) ([]byte, error)
	// ApplyOffer installs a remote offer and returns the installed answer.
	ApplyOffer(ctx context.Context, offer []byte) ([]byte, error)
	ApplyAnswer(ctx context.Context, answer []byte) error
	AddCandidate(ctx context.Context, candidate []byte) error
	// Stats returns domain.ErrStatsUnavailable when nothing was ever
	// exchanged on the connection.
	Stats(ctx context.Context) (domain.StatsSample, error)
	OnLocalCandidate(fn func(candidate []byte))
	OnStateChange(fn func(state domain.TransportState))
	Close() error
}

type TransportFactory interface {
	NewTransport(ctx context.Context, remote domain.ClientID) (PeerTransport, error)
}
