package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/core/port"
	"github.com/rs/zerolog/log"
)

// SignalingService routes every frame a client sends to the relay.
type SignalingService struct {
	rooms   *RoomService
	gateway port.RealTimeGateway
	metrics port.RelayMetrics
}

func NewSignalingService(rooms *RoomService, gateway port.RealTimeGateway, metrics port.RelayMetrics) *SignalingService {
	return &SignalingService{
		rooms:   rooms,
		gateway: gateway,
		metrics: metrics,
	}
}

func (s *SignalingService) Connect(ctx context.Context, roomID domain.RoomID, id domain.ClientID) {
	s.rooms.Join(ctx, roomID, id)
}

func (s *SignalingService) Disconnect(ctx context.Context, id domain.ClientID) {
	s.rooms.Leave(ctx, id)
}

// HandleSignal dispatches one inbound frame. The returned error is for the
// caller's logs only; nothing is ever reported back to the sender.
func (s *SignalingService) HandleSignal(ctx context.Context, from domain.ClientID, msg domain.Message) error {
	switch msg.Type {
	case domain.KindReady:
		s.rooms.Ready(ctx, from)
		return nil
	case domain.KindOffer, domain.KindAnswer, domain.KindICECandidate:
		return s.Relay(ctx, from, msg.Type, msg.SocketID, msg.Payload())
	default:
		s.metrics.MessageDropped(msg.Type, port.DropNotAllowed)
		return fmt.Errorf("%w: clients may not send %q", domain.ErrUnknownKind, msg.Type)
	}
}

// Relay forwards a negotiation payload from sender to target, stamping the
// sender as socketId. Messages to the sender itself or to a client that is
// not live in the sender's room are dropped.
func (s *SignalingService) Relay(ctx context.Context, sender domain.ClientID, kind domain.Kind, target domain.ClientID, payload []byte) error {
	if !kind.IsNegotiation() {
		s.metrics.MessageDropped(kind, port.DropNotAllowed)
		return domain.ErrNotNegotiation
	}
	if target == sender {
		s.metrics.MessageDropped(kind, port.DropSelfAddressed)
		return domain.ErrSelfAddressed
	}
	if !s.rooms.IsLive(sender, target) {
		s.metrics.MessageDropped(kind, port.DropUnknownTarget)
		return fmt.Errorf("relay %s to %s: %w", kind, target, domain.ErrClientNotFound)
	}

	msg, err := domain.NewNegotiationMessage(kind, sender, payload)
	if err != nil {
		return err
	}

	if err := s.gateway.Send(ctx, target, msg); err != nil {
		s.metrics.MessageDropped(kind, dropReason(err))
		return fmt.Errorf("relay %s to %s: %w", kind, target, err)
	}

	s.metrics.MessageRelayed(kind)
	log.Debug().Str("from", sender.String()).Str("to", target.String()).Str("type", kind.String()).Msg("Relayed")
	return nil
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrSendQueueFull):
		return port.DropQueueFull
	case errors.Is(err, domain.ErrSelfAddressed):
		return port.DropSelfAddressed
	default:
		return port.DropUnknownTarget
	}
}
