package ws

import "github.com/Wyydra/meet/internal/core/domain"

// Client is one live websocket connection as the hub sees it. Send only
// enqueues; it returns domain.ErrSendQueueFull instead of blocking.
type Client interface {
	ID() domain.ClientID
	Send(msg domain.Message) error
	Close() error
}
