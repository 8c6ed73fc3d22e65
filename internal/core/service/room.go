package service

import (
	"context"
	"sync"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/core/port"
	"github.com/rs/zerolog/log"
)

// room serializes every membership event of one registry together with the
// enqueueing of its notifications, so recipients observe events in the
// order the registry decided them.
type room struct {
	id       domain.RoomID
	mu       sync.Mutex
	registry port.SessionRegistry
	clients  int // guarded by RoomService.mu
}

// RoomService owns one registry per room and knows which room every live
// client belongs to.
type RoomService struct {
	gateway     port.RealTimeGateway
	metrics     port.RelayMetrics
	newRegistry func() port.SessionRegistry

	mu      sync.Mutex
	rooms   map[domain.RoomID]*room
	members map[domain.ClientID]*room
}

func NewRoomService(newRegistry func() port.SessionRegistry, gateway port.RealTimeGateway, metrics port.RelayMetrics) *RoomService {
	return &RoomService{
		gateway:     gateway,
		metrics:     metrics,
		newRegistry: newRegistry,
		rooms:       make(map[domain.RoomID]*room),
		members:     make(map[domain.ClientID]*room),
	}
}

// Join registers a freshly connected client in roomID.
func (s *RoomService) Join(ctx context.Context, roomID domain.RoomID, id domain.ClientID) {
	s.mu.Lock()
	if _, ok := s.members[id]; ok {
		s.mu.Unlock()
		return
	}
	r, ok := s.rooms[roomID]
	if !ok {
		r = &room{id: roomID, registry: s.newRegistry()}
		s.rooms[roomID] = r
		log.Debug().Str("room", roomID.String()).Str("mode", string(r.registry.Mode())).Msg("Room created")
	}
	r.clients++
	s.members[id] = r
	s.mu.Unlock()

	r.mu.Lock()
	s.dispatch(ctx, r.registry.Connect(id))
	r.mu.Unlock()

	s.metrics.ClientConnected(roomID)
	log.Info().Str("room", roomID.String()).Str("client_id", id.String()).Msg("Client joined room")
}

// Leave removes a disconnected client and tells whoever must know.
func (s *RoomService) Leave(ctx context.Context, id domain.ClientID) {
	s.mu.Lock()
	r, ok := s.members[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.members, id)
	s.mu.Unlock()

	r.mu.Lock()
	s.dispatch(ctx, r.registry.Disconnect(id))
	r.mu.Unlock()

	s.mu.Lock()
	r.clients--
	if r.clients == 0 {
		delete(s.rooms, r.id)
		log.Debug().Str("room", r.id.String()).Msg("Room deleted")
	}
	s.mu.Unlock()

	s.metrics.ClientDisconnected(r.id)
	log.Info().Str("room", r.id.String()).Str("client_id", id.String()).Msg("Client left room")
}

// Ready asks the client's registry to pair it.
func (s *RoomService) Ready(ctx context.Context, id domain.ClientID) {
	r := s.roomOf(id)
	if r == nil {
		return
	}

	r.mu.Lock()
	out := r.registry.Ready(id)
	s.dispatch(ctx, out)
	r.mu.Unlock()

	for _, d := range out {
		if d.Msg.Type == domain.KindStartCall && d.Msg.Caller() {
			s.metrics.PairingFormed(r.id)
			log.Info().Str("room", r.id.String()).Str("caller", d.To.String()).Str("callee", d.Msg.RemoteID.String()).Msg("Pairing formed")
		}
	}
}

// IsLive reports whether target is connected in the same room as from.
func (s *RoomService) IsLive(from, target domain.ClientID) bool {
	r := s.roomOf(from)
	return r != nil && r.registry.IsLive(target)
}

// RoomOf returns the room a live client joined.
func (s *RoomService) RoomOf(id domain.ClientID) (domain.RoomID, bool) {
	r := s.roomOf(id)
	if r == nil {
		return "", false
	}
	return r.id, true
}

func (s *RoomService) roomOf(id domain.ClientID) *room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.members[id]
}

func (s *RoomService) dispatch(ctx context.Context, out []domain.Delivery) {
	for _, d := range out {
		if err := s.gateway.Send(ctx, d.To, d.Msg); err != nil {
			s.metrics.MessageDropped(d.Msg.Type, dropReason(err))
			log.Debug().Err(err).Str("client_id", d.To.String()).Str("type", d.Msg.Type.String()).Msg("Notification not delivered")
		}
	}
}
