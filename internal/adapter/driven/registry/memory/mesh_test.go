package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wyydra/meet/internal/core/domain"
)

func TestMesh_NewcomerGetsSnapshotMembersGetNewPeer(t *testing.T) {
	r := NewMeshRegistry()
	x, y, c := domain.ClientID("X"), domain.ClientID("Y"), domain.ClientID("C")
	r.Connect(x)
	r.Connect(y)

	out := r.Connect(c)
	require.Len(t, out, 3)

	assert.Equal(t, c, out[0].To)
	assert.Equal(t, domain.KindAllClients, out[0].Msg.Type)
	assert.Equal(t, []domain.ClientID{x, y}, out[0].Msg.Clients)

	for i, want := range []domain.ClientID{x, y} {
		d := out[i+1]
		assert.Equal(t, want, d.To)
		assert.Equal(t, domain.KindNewPeer, d.Msg.Type)
		assert.Equal(t, c, d.Msg.SocketID)
	}
}

func TestMesh_FirstClientGetsEmptySnapshot(t *testing.T) {
	r := NewMeshRegistry()
	out := r.Connect("solo")
	require.Len(t, out, 1)
	assert.Equal(t, domain.KindAllClients, out[0].Msg.Type)
	assert.Empty(t, out[0].Msg.Clients)
}

func TestMesh_DisconnectBroadcastsDeparture(t *testing.T) {
	r := NewMeshRegistry()
	r.Connect("A")
	r.Connect("B")
	r.Connect("C")

	out := r.Disconnect("B")
	require.Len(t, out, 2)
	for _, d := range out {
		assert.NotEqual(t, domain.ClientID("B"), d.To)
		assert.Equal(t, domain.KindPeerDisconnected, d.Msg.Type)
		assert.Equal(t, domain.ClientID("B"), d.Msg.SocketID)
	}
	assert.Equal(t, []domain.ClientID{"A", "C"}, r.Members())
	assert.False(t, r.IsLive("B"))
}

func TestMesh_DuplicateEventsAreNoops(t *testing.T) {
	r := NewMeshRegistry()
	r.Connect("A")
	assert.Nil(t, r.Connect("A"))
	assert.Nil(t, r.Ready("A"))
	r.Disconnect("A")
	assert.Nil(t, r.Disconnect("A"))
	assert.Equal(t, 0, r.Len())
}

func TestNew_SelectsByMode(t *testing.T) {
	assert.Equal(t, domain.ModePaired, New(domain.ModePaired).Mode())
	assert.Equal(t, domain.ModeMesh, New(domain.ModeMesh).Mode())
}
