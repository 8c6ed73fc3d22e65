package memory

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wyydra/meet/internal/core/domain"
)

func TestPaired_FirstReadyWaitsSecondPairs(t *testing.T) {
	r := NewPairedRegistry()
	a, b := domain.ClientID("A"), domain.ClientID("B")

	assert.Empty(t, r.Connect(a))
	assert.Empty(t, r.Connect(b))

	out := r.Ready(a)
	require.Len(t, out, 1)
	assert.Equal(t, a, out[0].To)
	assert.Equal(t, domain.KindWait, out[0].Msg.Type)

	out = r.Ready(b)
	require.Len(t, out, 2)

	assert.Equal(t, a, out[0].To)
	assert.Equal(t, domain.KindStartCall, out[0].Msg.Type)
	assert.Equal(t, b, out[0].Msg.RemoteID)
	assert.True(t, out[0].Msg.Caller())

	assert.Equal(t, b, out[1].To)
	assert.Equal(t, a, out[1].Msg.RemoteID)
	assert.False(t, out[1].Msg.Caller())

	_, waiting := r.Waiting()
	assert.False(t, waiting)
}

func TestPaired_WaitingClientDisconnectClearsSlot(t *testing.T) {
	r := NewPairedRegistry()
	a, b := domain.ClientID("A"), domain.ClientID("B")

	r.Connect(a)
	r.Ready(a)
	assert.Empty(t, r.Disconnect(a))

	_, waiting := r.Waiting()
	assert.False(t, waiting)

	r.Connect(b)
	out := r.Ready(b)
	require.Len(t, out, 1)
	assert.Equal(t, domain.KindWait, out[0].Msg.Type, "must not pair with a stale id")
}

func TestPaired_RepeatedReadyKeepsWaiting(t *testing.T) {
	r := NewPairedRegistry()
	a := domain.ClientID("A")
	r.Connect(a)
	r.Ready(a)

	out := r.Ready(a)
	require.Len(t, out, 1)
	assert.Equal(t, domain.KindWait, out[0].Msg.Type)
	w, _ := r.Waiting()
	assert.Equal(t, a, w)
}

func TestPaired_ReadyFromUnknownClientIgnored(t *testing.T) {
	r := NewPairedRegistry()
	assert.Nil(t, r.Ready("ghost"))
	_, waiting := r.Waiting()
	assert.False(t, waiting)
}

func TestPaired_PartnerNotifiedOnDisconnect(t *testing.T) {
	r := NewPairedRegistry()
	a, b := domain.ClientID("A"), domain.ClientID("B")
	r.Connect(a)
	r.Connect(b)
	r.Ready(a)
	r.Ready(b)

	out := r.Disconnect(b)
	require.Len(t, out, 1)
	assert.Equal(t, a, out[0].To)
	assert.Equal(t, domain.KindPeerDisconnected, out[0].Msg.Type)
	assert.Equal(t, b, out[0].Msg.SocketID)

	_, ok := r.Partner(a)
	assert.False(t, ok)
}

func TestPaired_RepairingNotifiesPreviousPartner(t *testing.T) {
	r := NewPairedRegistry()
	a, b, c := domain.ClientID("A"), domain.ClientID("B"), domain.ClientID("C")
	for _, id := range []domain.ClientID{a, b, c} {
		r.Connect(id)
	}
	r.Ready(a)
	r.Ready(b)

	out := r.Ready(a)
	require.Len(t, out, 1)
	assert.Equal(t, domain.KindWait, out[0].Msg.Type)

	out = r.Ready(c)
	require.Len(t, out, 3)
	assert.Equal(t, a, out[0].To)
	assert.Equal(t, c, out[0].Msg.RemoteID)
	assert.Equal(t, c, out[1].To)
	assert.Equal(t, b, out[2].To)
	assert.Equal(t, domain.KindPeerDisconnected, out[2].Msg.Type)
	assert.Equal(t, a, out[2].Msg.SocketID)

	_, ok := r.Partner(b)
	assert.False(t, ok)

	out = r.Disconnect(a)
	require.Len(t, out, 1)
	assert.Equal(t, c, out[0].To)
}

func TestPaired_SamePairAgainSendsNoDeparture(t *testing.T) {
	r := NewPairedRegistry()
	a, b := domain.ClientID("A"), domain.ClientID("B")
	r.Connect(a)
	r.Connect(b)
	r.Ready(a)
	r.Ready(b)

	r.Ready(b)
	out := r.Ready(a)
	require.Len(t, out, 2)
	assert.Equal(t, b, out[0].To)
	assert.True(t, out[0].Msg.Caller())
}

// Random connect/ready/disconnect sequences never leave more than one
// waiter, never a disconnected waiter, and every pairing is two distinct
// live clients with complementary roles.
func TestPaired_RandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		r := NewPairedRegistry()
		live := map[domain.ClientID]bool{}
		next := 0

		for step := 0; step < 200; step++ {
			switch op := rng.Intn(3); {
			case op == 0 || len(live) == 0:
				id := domain.ClientID(fmt.Sprintf("c%d", next))
				next++
				r.Connect(id)
				live[id] = true
			case op == 1:
				id := pick(rng, live)
				out := r.Ready(id)
				if len(out) >= 2 {
					caller, callee := out[0], out[1]
					for _, d := range out[2:] {
						assert.Equal(t, domain.KindPeerDisconnected, d.Msg.Type)
						assert.True(t, live[d.To])
						assert.NotEqual(t, caller.To, d.To)
						assert.NotEqual(t, callee.To, d.To)
					}
					assert.NotEqual(t, caller.To, callee.To)
					assert.True(t, live[caller.To])
					assert.True(t, live[callee.To])
					assert.Equal(t, callee.To, caller.Msg.RemoteID)
					assert.Equal(t, caller.To, callee.Msg.RemoteID)
					assert.True(t, caller.Msg.Caller())
					assert.False(t, callee.Msg.Caller())
				}
			default:
				id := pick(rng, live)
				for _, d := range r.Disconnect(id) {
					assert.NotEqual(t, id, d.To)
					assert.True(t, live[d.To])
				}
				delete(live, id)
			}

			if w, ok := r.Waiting(); ok {
				assert.True(t, live[w], "waiting slot holds disconnected client %s", w)
			}
			assert.Equal(t, len(live), r.Len())
		}
	}
}

func pick(rng *rand.Rand, set map[domain.ClientID]bool) domain.ClientID {
	ids := make([]domain.ClientID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids[rng.Intn(len(ids))]
}
