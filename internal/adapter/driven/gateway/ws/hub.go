package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/rs/zerolog/log"
)

// implements port.RealTimeGateway
type Hub struct {
	mu      sync.RWMutex
	clients map[domain.ClientID]Client
	stopped bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[domain.ClientID]Client),
	}
}

// Register makes c addressable. It must happen before the client is joined
// to a room so the first notification has somewhere to go.
func (h *Hub) Register(c Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return errors.New("hub stopped")
	}
	h.clients[c.ID()] = c
	log.Info().Str("client_id", c.ID().String()).Msg("Client registered")
	return nil
}

func (h *Hub) Unregister(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.ID()]; ok && cur == c {
		delete(h.clients, c.ID())
		log.Info().Str("client_id", c.ID().String()).Msg("Client unregistered")
	}
}

// Send enqueues msg for one client. A client whose queue is full is too slow
// to keep up and is disconnected.
func (h *Hub) Send(ctx context.Context, to domain.ClientID, msg domain.Message) error {
	h.mu.RLock()
	c, ok := h.clients[to]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("send %s: %w", msg.Type, domain.ErrClientNotFound)
	}

	err := c.Send(msg)
	if errors.Is(err, domain.ErrSendQueueFull) {
		log.Warn().Str("client_id", to.String()).Msg("Send queue full, dropping client")
		h.Unregister(c)
		c.Close()
	}
	return err
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	for id, client := range h.clients {
		client.Close()
		delete(h.clients, id)
	}
}
