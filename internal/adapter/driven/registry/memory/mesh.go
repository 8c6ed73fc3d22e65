package memory

import (
	"sort"
	"sync"

	"github.com/Wyydra/meet/internal/core/domain"
)

// MeshRegistry connects every client with every other one. Membership is
// kept in join order so snapshots list older members first.
type MeshRegistry struct {
	mu      sync.Mutex
	members map[domain.ClientID]uint64
	seq     uint64
}

func NewMeshRegistry() *MeshRegistry {
	return &MeshRegistry{
		members: make(map[domain.ClientID]uint64),
	}
}

func (r *MeshRegistry) Mode() domain.Mode {
	return domain.ModeMesh
}

func (r *MeshRegistry) Connect(id domain.ClientID) []domain.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[id]; ok {
		return nil
	}

	existing := r.ordered()
	out := make([]domain.Delivery, 0, len(existing)+1)
	out = append(out, domain.Delivery{To: id, Msg: domain.NewAllClients(existing)})
	for _, m := range existing {
		out = append(out, domain.Delivery{To: m, Msg: domain.NewNewPeer(id)})
	}

	r.seq++
	r.members[id] = r.seq
	return out
}

// Ready has no meaning in a mesh; every member is matched on connect.
func (r *MeshRegistry) Ready(domain.ClientID) []domain.Delivery {
	return nil
}

func (r *MeshRegistry) Disconnect(id domain.ClientID) []domain.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[id]; !ok {
		return nil
	}
	delete(r.members, id)

	remaining := r.ordered()
	out := make([]domain.Delivery, 0, len(remaining))
	for _, m := range remaining {
		out = append(out, domain.Delivery{To: m, Msg: domain.NewPeerDisconnected(id)})
	}
	return out
}

func (r *MeshRegistry) IsLive(id domain.ClientID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.members[id]
	return ok
}

func (r *MeshRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.members)
}

// Members returns the current membership in join order.
func (r *MeshRegistry) Members() []domain.ClientID {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.ordered()
}

// ordered lists members by join sequence. Caller holds mu.
func (r *MeshRegistry) ordered() []domain.ClientID {
	ids := make([]domain.ClientID, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.members[ids[i]] < r.members[ids[j]]
	})
	return ids
}
