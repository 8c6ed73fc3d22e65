package domain

import "fmt"

// Kind is the closed set of message types carried over the relay.
type Kind string

const (
	KindReady            Kind = "ready"
	KindWait             Kind = "wait"
	KindStartCall        Kind = "start-call"
	KindAllClients       Kind = "all-clients"
	KindNewPeer          Kind = "new-peer"
	KindOffer            Kind = "offer"
	KindAnswer           Kind = "answer"
	KindICECandidate     Kind = "ice-candidate"
	KindPeerDisconnected Kind = "peer-disconnected"
)

var kinds = map[Kind]struct{}{
	KindReady:            {},
	KindWait:             {},
	KindStartCall:        {},
	KindAllClients:       {},
	KindNewPeer:          {},
	KindOffer:            {},
	KindAnswer:           {},
	KindICECandidate:     {},
	KindPeerDisconnected: {},
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kinds[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// IsNegotiation reports whether messages of this kind are addressed to a
// single peer and forwarded by the relay.
func (k Kind) IsNegotiation() bool {
	switch k {
	case KindOffer, KindAnswer, KindICECandidate:
		return true
	}
	return false
}

// ClientOriginated reports whether a client may send this kind to the relay.
func (k Kind) ClientOriginated() bool {
	return k == KindReady || k.IsNegotiation()
}

func (k Kind) String() string {
	return string(k)
}

// Negotiation is the interpreted form of an offer, answer or candidate at
// the peer boundary. Payload stays opaque JSON (a session description or a
// candidate init object).
type Negotiation struct {
	Kind    Kind
	From    ClientID
	Payload []byte
}
