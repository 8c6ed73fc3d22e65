package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wyydra/meet/internal/adapter/driven/registry/memory"
	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/core/port"
	"github.com/Wyydra/meet/internal/metrics"
)

// fakeGateway records what every connected client would have received.
type fakeGateway struct {
	mu    sync.Mutex
	inbox map[domain.ClientID][]domain.Message
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{inbox: make(map[domain.ClientID][]domain.Message)}
}

func (g *fakeGateway) connect(id domain.ClientID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inbox[id] = nil
}

func (g *fakeGateway) disconnect(id domain.ClientID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inbox, id)
}

func (g *fakeGateway) Send(_ context.Context, to domain.ClientID, msg domain.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	box, ok := g.inbox[to]
	if !ok {
		return domain.ErrClientNotFound
	}
	g.inbox[to] = append(box, msg)
	return nil
}

func (g *fakeGateway) received(id domain.ClientID) []domain.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Message(nil), g.inbox[id]...)
}

func (g *fakeGateway) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, box := range g.inbox {
		n += len(box)
	}
	return n
}

type relayFixture struct {
	gw  *fakeGateway
	svc *SignalingService
}

func newRelayFixture(mode domain.Mode) *relayFixture {
	gw := newFakeGateway()
	rooms := NewRoomService(func() port.SessionRegistry { return memory.New(mode) }, gw, metrics.Nop{})
	return &relayFixture{gw: gw, svc: NewSignalingService(rooms, gw, metrics.Nop{})}
}

func (f *relayFixture) join(room domain.RoomID, id domain.ClientID) {
	f.gw.connect(id)
	f.svc.Connect(context.Background(), room, id)
}

func (f *relayFixture) leave(id domain.ClientID) {
	f.gw.disconnect(id)
	f.svc.Disconnect(context.Background(), id)
}

func TestSignaling_PairedScenario(t *testing.T) {
	f := newRelayFixture(domain.ModePaired)
	ctx := context.Background()

	f.join(domain.DefaultRoom, "A")
	require.NoError(t, f.svc.HandleSignal(ctx, "A", domain.NewReady()))
	f.join(domain.DefaultRoom, "B")
	require.NoError(t, f.svc.HandleSignal(ctx, "B", domain.NewReady()))

	a := f.gw.received("A")
	require.Len(t, a, 2)
	assert.Equal(t, domain.KindWait, a[0].Type)
	assert.Equal(t, domain.KindStartCall, a[1].Type)
	assert.Equal(t, domain.ClientID("B"), a[1].RemoteID)
	assert.True(t, a[1].Caller())

	b := f.gw.received("B")
	require.Len(t, b, 1)
	assert.Equal(t, domain.ClientID("A"), b[0].RemoteID)
	assert.False(t, b[0].Caller())
}

func TestSignaling_MeshScenario(t *testing.T) {
	f := newRelayFixture(domain.ModeMesh)
	f.join(domain.DefaultRoom, "X")
	f.join(domain.DefaultRoom, "Y")
	f.join(domain.DefaultRoom, "C")

	c := f.gw.received("C")
	require.Len(t, c, 1)
	assert.Equal(t, domain.KindAllClients, c[0].Type)
	assert.Equal(t, []domain.ClientID{"X", "Y"}, c[0].Clients)

	for _, id := range []domain.ClientID{"X", "Y"} {
		got := f.gw.received(id)
		last := got[len(got)-1]
		assert.Equal(t, domain.KindNewPeer, last.Type)
		assert.Equal(t, domain.ClientID("C"), last.SocketID)
	}
}

func TestSignaling_RelayRewritesSender(t *testing.T) {
	f := newRelayFixture(domain.ModeMesh)
	f.join(domain.DefaultRoom, "A")
	f.join(domain.DefaultRoom, "B")

	offer, err := domain.NewNegotiationMessage(domain.KindOffer, "B", []byte(`{"type":"offer","sdp":"v=0"}`))
	require.NoError(t, err)
	require.NoError(t, f.svc.HandleSignal(context.Background(), "A", offer))

	got := f.gw.received("B")
	last := got[len(got)-1]
	assert.Equal(t, domain.KindOffer, last.Type)
	assert.Equal(t, domain.ClientID("A"), last.SocketID)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(last.Offer))
}

func TestSignaling_RelayToDisconnectedTargetIsDropped(t *testing.T) {
	f := newRelayFixture(domain.ModeMesh)
	f.join(domain.DefaultRoom, "A")
	f.join(domain.DefaultRoom, "B")
	f.leave("B")
	before := f.gw.total()

	offer, _ := domain.NewNegotiationMessage(domain.KindOffer, "B", []byte(`{}`))
	err := f.svc.HandleSignal(context.Background(), "A", offer)

	assert.True(t, errors.Is(err, domain.ErrClientNotFound))
	assert.Equal(t, before, f.gw.total(), "nothing delivered, not even an error to the sender")
}

func TestSignaling_RelayNeverLoopsToSender(t *testing.T) {
	f := newRelayFixture(domain.ModeMesh)
	f.join(domain.DefaultRoom, "A")
	before := len(f.gw.received("A"))

	cand, _ := domain.NewNegotiationMessage(domain.KindICECandidate, "A", []byte(`{"candidate":""}`))
	err := f.svc.HandleSignal(context.Background(), "A", cand)

	assert.ErrorIs(t, err, domain.ErrSelfAddressed)
	assert.Len(t, f.gw.received("A"), before)
}

func TestSignaling_RelayStaysInsideRoom(t *testing.T) {
	f := newRelayFixture(domain.ModeMesh)
	f.join("red", "A")
	f.join("blue", "B")

	offer, _ := domain.NewNegotiationMessage(domain.KindOffer, "B", []byte(`{}`))
	err := f.svc.HandleSignal(context.Background(), "A", offer)

	assert.ErrorIs(t, err, domain.ErrClientNotFound)
	for _, m := range f.gw.received("B") {
		assert.NotEqual(t, domain.KindOffer, m.Type)
	}
}

func TestSignaling_ServerKindsFromClientRejected(t *testing.T) {
	f := newRelayFixture(domain.ModeMesh)
	f.join(domain.DefaultRoom, "A")

	err := f.svc.HandleSignal(context.Background(), "A", domain.NewNewPeer("A"))
	assert.ErrorIs(t, err, domain.ErrUnknownKind)
}

func TestSignaling_RoomsAreDroppedWhenEmpty(t *testing.T) {
	f := newRelayFixture(domain.ModeMesh)
	f.join("r", "A")
	f.leave("A")

	f.svc.rooms.mu.Lock()
	_, ok := f.svc.rooms.rooms["r"]
	f.svc.rooms.mu.Unlock()
	assert.False(t, ok)

	_, joined := f.svc.rooms.RoomOf("A")
	assert.False(t, joined)
}

// Concurrent connects into one paired room never hand two clients the same
// partner.
func TestSignaling_ConcurrentReadyPairsEachClientOnce(t *testing.T) {
	f := newRelayFixture(domain.ModePaired)
	ids := make([]domain.ClientID, 40)
	for i := range ids {
		ids[i] = domain.NewClientID()
		f.join(domain.DefaultRoom, ids[i])
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id domain.ClientID) {
			defer wg.Done()
			_ = f.svc.HandleSignal(context.Background(), id, domain.NewReady())
		}(id)
	}
	wg.Wait()

	partner := map[domain.ClientID]domain.ClientID{}
	for _, id := range ids {
		for _, m := range f.gw.received(id) {
			if m.Type == domain.KindStartCall {
				_, dup := partner[id]
				require.False(t, dup, "client %s paired twice", id)
				partner[id] = m.RemoteID
			}
		}
	}
	assert.Len(t, partner, len(ids))
	for a, b := range partner {
		assert.Equal(t, a, partner[b])
	}
}
