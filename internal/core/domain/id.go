package domain

import (
	"github.com/google/uuid"
)

// ClientID addresses one live relay connection. On the wire it is the
// socketId field.
type ClientID string

func NewClientID() ClientID {
	return ClientID(uuid.New().String())
}

func (id ClientID) String() string {
	return string(id)
}

// RoomID names an independent signaling registry.
type RoomID string

const DefaultRoom RoomID = "default"

func NewRoomID(s string) RoomID {
	if s == "" {
		return DefaultRoom
	}
	return RoomID(s)
}

func (id RoomID) String() string {
	return string(id)
}
