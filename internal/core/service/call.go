package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/core/port"
	"github.com/rs/zerolog/log"
)

// CallService is the client side of a call: it turns relay messages into
// peer records and owns the set of active peers. That one set is both the
// routing table for negotiation messages and what telemetry polls.
type CallService struct {
	factory port.TransportFactory
	signal  port.SignalSender

	mu     sync.RWMutex
	peers  map[domain.ClientID]*Peer
	left   bool
	waitCh chan struct{}
}

func NewCallService(factory port.TransportFactory, signal port.SignalSender) *CallService {
	return &CallService{
		factory: factory,
		signal:  signal,
		peers:   make(map[domain.ClientID]*Peer),
		waitCh:  make(chan struct{}, 1),
	}
}

// Handle routes one message received from the relay.
func (s *CallService) Handle(ctx context.Context, msg domain.Message) error {
	switch msg.Type {
	case domain.KindWait:
		log.Info().Msg("Waiting for a partner")
		select {
		case s.waitCh <- struct{}{}:
		default:
		}
		return nil

	case domain.KindStartCall:
		role := domain.RoleCallee
		if msg.Caller() {
			role = domain.RoleCaller
		}
		_, err := s.open(ctx, msg.RemoteID, role)
		return err

	case domain.KindAllClients:
		log.Info().Int("peers", len(msg.Clients)).Msg("Joined room")
		for _, id := range msg.Clients {
			if _, err := s.open(ctx, id, domain.RoleCallee); err != nil {
				return err
			}
		}
		return nil

	case domain.KindNewPeer:
		_, err := s.open(ctx, msg.SocketID, domain.RoleCaller)
		return err

	case domain.KindOffer:
		p, ok := s.Peer(msg.SocketID)
		if !ok {
			var err error
			if p, err = s.open(ctx, msg.SocketID, domain.RoleCallee); err != nil {
				return err
			}
		}
		return p.Deliver(negotiation(msg))

	case domain.KindAnswer, domain.KindICECandidate:
		p, ok := s.Peer(msg.SocketID)
		if !ok {
			log.Debug().Str("peer_id", msg.SocketID.String()).Str("type", msg.Type.String()).Msg("Message for unknown peer")
			return domain.NewPeerError(msg.Type.String(), msg.SocketID, domain.ErrPeerNotFound)
		}
		return p.Deliver(negotiation(msg))

	case domain.KindPeerDisconnected:
		log.Info().Str("peer_id", msg.SocketID.String()).Msg("Peer left")
		return s.Remove(msg.SocketID)
	}
	return fmt.Errorf("%w: %q", domain.ErrUnknownKind, msg.Type)
}

// Waiting fires each time the relay answered ready with wait.
func (s *CallService) Waiting() <-chan struct{} {
	return s.waitCh
}

func (s *CallService) Peer(id domain.ClientID) (*Peer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.peers[id]
	return p, ok
}

func (s *CallService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// ActivePeers implements port.PeerSet.
func (s *CallService) ActivePeers() []port.StatsProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]port.StatsProvider, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p)
	}
	return out
}

// Remove tears the peer down. It is gone from the active set and its
// transport is closed when Remove returns.
func (s *CallService) Remove(id domain.ClientID) error {
	s.mu.Lock()
	p, ok := s.peers[id]
	delete(s.peers, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return p.Close()
}

// Leave closes every peer and the relay connection.
func (s *CallService) Leave() error {
	s.mu.Lock()
	s.left = true
	peers := s.peers
	s.peers = make(map[domain.ClientID]*Peer)
	s.mu.Unlock()

	for id, p := range peers {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Str("peer_id", id.String()).Msg("Failed to close peer")
		}
	}
	return s.signal.Close()
}

func (s *CallService) open(ctx context.Context, remote domain.ClientID, role domain.Role) (*Peer, error) {
	if remote == "" {
		return nil, domain.NewPeerError("open", remote, domain.ErrPeerNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.left {
		return nil, domain.NewPeerError("open", remote, domain.ErrPeerClosed)
	}
	if p, ok := s.peers[remote]; ok {
		return p, nil
	}

	t, err := s.factory.NewTransport(ctx, remote)
	if err != nil {
		return nil, domain.NewPeerError("open", remote, err)
	}
	p := newPeer(remote, role, t, s.signal)
	t.OnStateChange(func(state domain.TransportState) {
		p.logger.Debug().Stringer("transport", state).Msg("Transport state")
		if state.Terminal() {
			// Off the transport's goroutine: closing waits for it.
			go s.removePeer(p)
		}
	})
	s.peers[remote] = p
	p.start()

	log.Info().Str("peer_id", remote.String()).Str("role", role.String()).Msg("Peer added")
	return p, nil
}

// removePeer drops p only if it is still the record for its id.
func (s *CallService) removePeer(p *Peer) {
	s.mu.Lock()
	if s.peers[p.remote] == p {
		delete(s.peers, p.remote)
	}
	s.mu.Unlock()
	_ = p.Close()
}

func negotiation(msg domain.Message) domain.Negotiation {
	return domain.Negotiation{Kind: msg.Type, From: msg.SocketID, Payload: msg.Payload()}
}
