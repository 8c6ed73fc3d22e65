package domain

import (
	"fmt"
	"strings"
)

// Mode selects how a registry matches clients.
type Mode string

const (
	ModePaired Mode = "paired" // two clients at a time, explicit ready
	ModeMesh   Mode = "mesh"   // everyone with everyone
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePaired:
		return ModePaired, nil
	case ModeMesh, "":
		return ModeMesh, nil
	}
	return "", fmt.Errorf("invalid signaling mode %q (want paired or mesh)", s)
}

type Role int

const (
	RoleCaller Role = iota
	RoleCallee
)

func (r Role) String() string {
	if r == RoleCaller {
		return "caller"
	}
	return "callee"
}

// PeerState is the negotiation state of one remote peer.
type PeerState int

const (
	StateIdle PeerState = iota
	StateOffering
	StateAwaitingAnswer
	StateAwaitingOffer
	StateAnswering
	StateConnected
	StateClosed
)

var peerStateNames = [...]string{
	StateIdle:           "idle",
	StateOffering:       "offering",
	StateAwaitingAnswer: "awaiting-answer",
	StateAwaitingOffer:  "awaiting-offer",
	StateAnswering:      "answering",
	StateConnected:      "connected",
	StateClosed:         "closed",
}

func (s PeerState) String() string {
	if int(s) < len(peerStateNames) {
		return peerStateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// TransportState is what the media transport reports about its own
// connectivity. Only terminal values drive the state machine.
type TransportState int

const (
	TransportNew TransportState = iota
	TransportConnecting
	TransportConnected
	TransportDisconnected
	TransportFailed
	TransportClosed
)

func (s TransportState) Terminal() bool {
	return s == TransportFailed || s == TransportClosed
}

func (s TransportState) String() string {
	switch s {
	case TransportNew:
		return "new"
	case TransportConnecting:
		return "connecting"
	case TransportConnected:
		return "connected"
	case TransportDisconnected:
		return "disconnected"
	case TransportFailed:
		return "failed"
	case TransportClosed:
		return "closed"
	}
	return "unknown"
}
