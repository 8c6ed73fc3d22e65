package port

import (
	"context"

	"github.com/Wyydra/meet/internal/core/domain"
)

// RealTimeGateway delivers messages to connected relay clients. Send must
// not block on a slow recipient; it returns domain.ErrClientNotFound when the
// recipient has no live connection.
type RealTimeGateway interface {
	Send(ctx context.Context, to domain.ClientID, msg domain.Message) error
}

// Reasons reported with RelayMetrics.MessageDropped.
const (
	DropUnknownTarget = "unknown_target"
	DropSelfAddressed = "self_addressed"
	DropQueueFull     = "queue_full"
	DropMalformed     = "malformed"
	DropNotAllowed    = "not_allowed"
)

// RelayMetrics observes relay activity. Implementations must be safe for
// concurrent use.
type RelayMetrics interface {
	ClientConnected(room domain.RoomID)
	ClientDisconnected(room domain.RoomID)
	MessageRelayed(kind domain.Kind)
	MessageDropped(kind domain.Kind, reason string)
	PairingFormed(room domain.RoomID)
}
