// Package wire encodes relay frames. JSON is what browsers speak; msgpack
// is offered as a binary websocket subprotocol for native peers.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	SubprotocolJSON    = "meet.json"
	SubprotocolMsgpack = "meet.msgpack"
)

var ErrMalformedFrame = errors.New("malformed frame")

type Codec interface {
	// Name is the websocket subprotocol the codec is negotiated under.
	Name() string
	// FrameType is websocket.TextMessage or websocket.BinaryMessage.
	FrameType() int
	Encode(msg domain.Message) ([]byte, error)
	Decode(data []byte) (domain.Message, error)
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

// Subprotocols lists what a server accepts, in preference order.
func Subprotocols() []string {
	return []string{SubprotocolMsgpack, SubprotocolJSON}
}

// ForSubprotocol picks the codec for a negotiated subprotocol. Connections
// without one, as opened by browsers, get JSON.
func ForSubprotocol(name string) Codec {
	if name == SubprotocolMsgpack {
		return Msgpack
	}
	return JSON
}

// ByName resolves a configured codec name ("json" or "msgpack").
func ByName(name string) (Codec, error) {
	switch name {
	case "", "json", SubprotocolJSON:
		return JSON, nil
	case "msgpack", SubprotocolMsgpack:
		return Msgpack, nil
	}
	return nil, fmt.Errorf("unknown wire codec %q", name)
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return SubprotocolJSON }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Encode(msg domain.Message) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Decode(data []byte) (domain.Message, error) {
	var msg domain.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return validate(msg)
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string   { return SubprotocolMsgpack }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (msgpackCodec) Encode(msg domain.Message) ([]byte, error) {
	return msgpack.Marshal(msg)
}

func (msgpackCodec) Decode(data []byte) (domain.Message, error) {
	var msg domain.Message
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return validate(msg)
}

func validate(msg domain.Message) (domain.Message, error) {
	kind, err := domain.ParseKind(string(msg.Type))
	if err != nil {
		return domain.Message{}, err
	}
	msg.Type = kind
	return msg, nil
}
