package port

import "github.com/Wyydra/meet/internal/core/domain"

// SignalSender is the client side of the relay connection.
type SignalSender interface {
	Send(msg domain.Message) error
	Close() error
}
