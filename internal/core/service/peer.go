package service

import (
	"context"
	"sync"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/core/port"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	peerInboxSize      = 128
	localCandidateSize = 64
)

// Peer drives the offer/answer exchange with one remote client. All
// negotiation runs on the peer's own goroutine, in the order messages were
// delivered, so no second offer starts before the previous one finished.
type Peer struct {
	remote domain.ClientID
	role   domain.Role
	signal port.SignalSender
	logger zerolog.Logger

	inbox chan domain.Negotiation
	local chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	// mu guards use of transport; Close takes it exclusively.
	mu        sync.RWMutex
	transport port.PeerTransport
	closed    bool

	stateMu sync.Mutex
	state   domain.PeerState
}

func newPeer(remote domain.ClientID, role domain.Role, transport port.PeerTransport, signal port.SignalSender) *Peer {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Peer{
		remote:    remote,
		role:      role,
		signal:    signal,
		logger:    log.With().Str("peer_id", remote.String()).Str("role", role.String()).Logger(),
		inbox:     make(chan domain.Negotiation, peerInboxSize),
		local:     make(chan []byte, localCandidateSize),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		transport: transport,
		state:     domain.StateIdle,
	}
	transport.OnLocalCandidate(p.queueLocalCandidate)
	return p
}

func (p *Peer) RemoteID() domain.ClientID {
	return p.remote
}

func (p *Peer) Role() domain.Role {
	return p.role
}

func (p *Peer) State() domain.PeerState {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.state
}

func (p *Peer) setState(s domain.PeerState) {
	p.stateMu.Lock()
	prev := p.state
	if prev != domain.StateClosed {
		p.state = s
	}
	p.stateMu.Unlock()
	if prev != s && prev != domain.StateClosed {
		p.logger.Debug().Stringer("from", prev).Stringer("to", s).Msg("Peer state")
	}
}

// Stats pulls the transport counters. It fails with domain.ErrPeerClosed
// once Close has returned.
func (p *Peer) Stats(ctx context.Context) (domain.StatsSample, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return domain.StatsSample{}, domain.NewPeerError("stats", p.remote, domain.ErrPeerClosed)
	}
	return p.transport.Stats(ctx)
}

// Deliver hands an inbound negotiation message to the peer task.
func (p *Peer) Deliver(n domain.Negotiation) error {
	select {
	case <-p.done:
		return domain.NewPeerError("deliver", p.remote, domain.ErrPeerClosed)
	default:
	}
	select {
	case p.inbox <- n:
		return nil
	case <-p.done:
		return domain.NewPeerError("deliver", p.remote, domain.ErrPeerClosed)
	}
}

// Close stops the peer task and closes the transport. No transport method
// is called after Close returns.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.cancel()
		close(p.done)

		p.mu.Lock()
		p.closed = true
		err = p.transport.Close()
		p.mu.Unlock()

		p.stateMu.Lock()
		p.state = domain.StateClosed
		p.stateMu.Unlock()
		p.logger.Info().Msg("Peer closed")
	})
	return err
}

func (p *Peer) Done() <-chan struct{} {
	return p.done
}

func (p *Peer) start() {
	go p.run()
}

func (p *Peer) run() {
	switch p.role {
	case domain.RoleCaller:
		p.offer()
	case domain.RoleCallee:
		p.setState(domain.StateAwaitingOffer)
	}

	for {
		select {
		case <-p.done:
			return
		case n := <-p.inbox:
			p.handle(n)
		case c := <-p.local:
			p.sendSignal(domain.KindICECandidate, c)
		}
	}
}

func (p *Peer) handle(n domain.Negotiation) {
	switch n.Kind {
	case domain.KindOffer:
		p.answer(n.Payload)
	case domain.KindAnswer:
		p.acceptAnswer(n.Payload)
	case domain.KindICECandidate:
		p.addCandidate(n.Payload)
	default:
		p.logger.Warn().Str("type", n.Kind.String()).Msg("Unexpected message for peer")
	}
}

func (p *Peer) offer() {
	p.setState(domain.StateOffering)

	var sdp []byte
	err := p.withTransport(func(t port.PeerTransport) (err error) {
		sdp, err = t.CreateOffer(p.ctx)
		return err
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to create offer")
		p.setState(domain.StateIdle)
		return
	}

	p.sendSignal(domain.KindOffer, sdp)
	p.setState(domain.StateAwaitingAnswer)
}

func (p *Peer) answer(offer []byte) {
	prev := p.State()
	switch prev {
	case domain.StateIdle, domain.StateAwaitingOffer, domain.StateAwaitingAnswer, domain.StateConnected:
	default:
		p.logger.Warn().Stringer("state", prev).Msg("Offer ignored")
		return
	}
	if prev == domain.StateConnected {
		p.logger.Info().Msg("Renegotiating")
	}
	p.setState(domain.StateAnswering)

	var sdp []byte
	err := p.withTransport(func(t port.PeerTransport) (err error) {
		sdp, err = t.ApplyOffer(p.ctx, offer)
		return err
	})
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to apply offer")
		p.setState(prev)
		return
	}

	p.sendSignal(domain.KindAnswer, sdp)
	p.setState(domain.StateConnected)
}

func (p *Peer) acceptAnswer(answer []byte) {
	if s := p.State(); s != domain.StateAwaitingAnswer {
		p.logger.Warn().Stringer("state", s).Msg("Answer ignored")
		return
	}
	err := p.withTransport(func(t port.PeerTransport) error {
		return t.ApplyAnswer(p.ctx, answer)
	})
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to apply answer")
		return
	}
	p.setState(domain.StateConnected)
}

func (p *Peer) addCandidate(candidate []byte) {
	err := p.withTransport(func(t port.PeerTransport) error {
		return t.AddCandidate(p.ctx, candidate)
	})
	if err != nil {
		p.logger.Debug().Err(err).Msg("Failed to add ICE candidate")
	}
}

// withTransport runs fn unless the peer is already closed.
func (p *Peer) withTransport(fn func(port.PeerTransport) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return domain.ErrPeerClosed
	}
	return fn(p.transport)
}

// queueLocalCandidate is called by the transport. Candidates go out from the
// peer task so they never overtake the description they belong to.
func (p *Peer) queueLocalCandidate(c []byte) {
	select {
	case p.local <- c:
	case <-p.done:
	}
}

func (p *Peer) sendSignal(kind domain.Kind, payload []byte) {
	msg, err := domain.NewNegotiationMessage(kind, p.remote, payload)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to build message")
		return
	}

	// Held across Send so Close cannot complete in between.
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed || p.ctx.Err() != nil {
		p.logger.Debug().Str("type", kind.String()).Msg("Signal dropped, peer closed")
		return
	}
	if err := p.signal.Send(msg); err != nil {
		p.logger.Warn().Err(err).Str("type", kind.String()).Msg("Failed to send signal")
	}
}
