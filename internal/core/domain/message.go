package domain

import (
	"encoding/json"
	"fmt"
)

// Message is one relay frame. Only the fields belonging to Type are set;
// negotiation payloads are opaque to the relay.
type Message struct {
	Type      Kind            `json:"type" msgpack:"type"`
	SocketID  ClientID        `json:"socketId,omitempty" msgpack:"socketId,omitempty"`
	RemoteID  ClientID        `json:"remoteId,omitempty" msgpack:"remoteId,omitempty"`
	IsCaller  *bool           `json:"isCaller,omitempty" msgpack:"isCaller,omitempty"`
	Clients   []ClientID      `json:"clients,omitempty" msgpack:"clients,omitempty"`
	Offer     json.RawMessage `json:"offer,omitempty" msgpack:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty" msgpack:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty" msgpack:"candidate,omitempty"`
}

// MarshalJSON keeps "clients" present for all-clients even when the room
// was empty, browsers iterate it unconditionally.
func (m Message) MarshalJSON() ([]byte, error) {
	type plain Message
	if m.Type != KindAllClients {
		return json.Marshal(plain(m))
	}
	clients := m.Clients
	if clients == nil {
		clients = []ClientID{}
	}
	return json.Marshal(struct {
		plain
		Clients []ClientID `json:"clients"`
	}{plain(m), clients})
}

func NewWait() Message {
	return Message{Type: KindWait}
}

func NewReady() Message {
	return Message{Type: KindReady}
}

func NewStartCall(remote ClientID, isCaller bool) Message {
	return Message{Type: KindStartCall, RemoteID: remote, IsCaller: &isCaller}
}

func NewAllClients(clients []ClientID) Message {
	return Message{Type: KindAllClients, Clients: clients}
}

func NewNewPeer(id ClientID) Message {
	return Message{Type: KindNewPeer, SocketID: id}
}

func NewPeerDisconnected(id ClientID) Message {
	return Message{Type: KindPeerDisconnected, SocketID: id}
}

// NewNegotiationMessage builds an offer, answer or ice-candidate frame
// addressed to (or, once relayed, sent from) peer.
func NewNegotiationMessage(kind Kind, peer ClientID, payload []byte) (Message, error) {
	msg := Message{Type: kind, SocketID: peer}
	switch kind {
	case KindOffer:
		msg.Offer = payload
	case KindAnswer:
		msg.Answer = payload
	case KindICECandidate:
		msg.Candidate = payload
	default:
		return Message{}, fmt.Errorf("%w: %s is not a negotiation message", ErrUnknownKind, kind)
	}
	return msg, nil
}

// Payload returns the opaque negotiation body for offer, answer and
// ice-candidate frames, nil otherwise.
func (m Message) Payload() []byte {
	switch m.Type {
	case KindOffer:
		return m.Offer
	case KindAnswer:
		return m.Answer
	case KindICECandidate:
		return m.Candidate
	}
	return nil
}

// Caller reports the role carried by a start-call frame.
func (m Message) Caller() bool {
	return m.IsCaller != nil && *m.IsCaller
}

// Delivery is a message queued for one recipient.
type Delivery struct {
	To  ClientID
	Msg Message
}
