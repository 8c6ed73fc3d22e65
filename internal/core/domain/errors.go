package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKind      = errors.New("unknown message kind")
	ErrClientNotFound   = errors.New("client not found")
	ErrSelfAddressed    = errors.New("message addressed to sender")
	ErrSendQueueFull    = errors.New("send queue full")
	ErrNotNegotiation   = errors.New("not a negotiation message")
	ErrPeerClosed       = errors.New("peer closed")
	ErrPeerNotFound     = errors.New("peer not found")
	ErrStatsUnavailable = errors.New("stats unavailable")
	ErrInvalidPayload   = errors.New("invalid negotiation payload")
)

// PeerError ties a failed transport operation to the remote peer it was
// running for.
type PeerError struct {
	Op   string
	Peer ClientID
	Err  error
}

func (e *PeerError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("%s (peer %s): %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PeerError) Unwrap() error {
	return e.Err
}

func NewPeerError(op string, peer ClientID, err error) *PeerError {
	return &PeerError{Op: op, Peer: peer, Err: err}
}
