package memory

import (
	"sync"

	"github.com/Wyydra/meet/internal/core/domain"
)

// PairedRegistry matches clients two at a time. The first client to become
// ready waits; the next one is paired with it and the waiting client calls.
type PairedRegistry struct {
	mu       sync.Mutex
	live     map[domain.ClientID]struct{}
	waiting  domain.ClientID
	partners map[domain.ClientID]domain.ClientID
}

func NewPairedRegistry() *PairedRegistry {
	return &PairedRegistry{
		live:     make(map[domain.ClientID]struct{}),
		partners: make(map[domain.ClientID]domain.ClientID),
	}
}

func (r *PairedRegistry) Mode() domain.Mode {
	return domain.ModePaired
}

func (r *PairedRegistry) Connect(id domain.ClientID) []domain.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.live[id] = struct{}{}
	return nil
}

func (r *PairedRegistry) Ready(id domain.ClientID) []domain.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.live[id]; !ok {
		return nil
	}

	if r.waiting == "" || r.waiting == id {
		r.waiting = id
		return []domain.Delivery{{To: id, Msg: domain.NewWait()}}
	}

	caller := r.waiting
	r.waiting = ""

	out := []domain.Delivery{
		{To: caller, Msg: domain.NewStartCall(id, true)},
		{To: id, Msg: domain.NewStartCall(caller, false)},
	}
	// A client paired again leaves its previous partner behind.
	for _, c := range []domain.ClientID{caller, id} {
		old, ok := r.unlink(c)
		if !ok || old == caller || old == id {
			continue
		}
		if _, alive := r.live[old]; alive {
			out = append(out, domain.Delivery{To: old, Msg: domain.NewPeerDisconnected(c)})
		}
	}
	r.partners[caller] = id
	r.partners[id] = caller
	return out
}

func (r *PairedRegistry) Disconnect(id domain.ClientID) []domain.Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.live[id]; !ok {
		return nil
	}
	delete(r.live, id)

	if r.waiting == id {
		r.waiting = ""
	}

	partner, ok := r.partners[id]
	r.unlink(id)
	if !ok {
		return nil
	}
	if _, alive := r.live[partner]; !alive {
		return nil
	}
	return []domain.Delivery{{To: partner, Msg: domain.NewPeerDisconnected(id)}}
}

func (r *PairedRegistry) IsLive(id domain.ClientID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.live[id]
	return ok
}

func (r *PairedRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.live)
}

// Waiting returns the client holding the waiting slot, if any.
func (r *PairedRegistry) Waiting() (domain.ClientID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.waiting, r.waiting != ""
}

// Partner returns the client id was last paired with.
func (r *PairedRegistry) Partner(id domain.ClientID) (domain.ClientID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.partners[id]
	return p, ok
}

// unlink drops id's current pairing on both sides and returns the former
// partner. Caller holds mu.
func (r *PairedRegistry) unlink(id domain.ClientID) (domain.ClientID, bool) {
	p, ok := r.partners[id]
	if ok {
		delete(r.partners, p)
		delete(r.partners, id)
	}
	return p, ok
}
