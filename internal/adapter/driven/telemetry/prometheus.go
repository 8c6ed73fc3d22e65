package telemetry

import (
	"context"
	"sync"

	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/metrics"
)

// PrometheusSink keeps gauges for the peers of the latest cycle and drops
// the series of peers that are gone.
type PrometheusSink struct {
	gauges *metrics.Telemetry

	mu   sync.Mutex
	seen map[domain.ClientID]struct{}
}

func NewPrometheusSink(gauges *metrics.Telemetry) *PrometheusSink {
	return &PrometheusSink{gauges: gauges, seen: make(map[domain.ClientID]struct{})}
}

func (s *PrometheusSink) Publish(_ context.Context, reports []domain.PeerReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(map[domain.ClientID]struct{}, len(reports))
	for _, r := range reports {
		s.gauges.Observe(r)
		current[r.PeerID] = struct{}{}
	}
	for id := range s.seen {
		if _, ok := current[id]; !ok {
			s.gauges.Forget(id)
		}
	}
	s.seen = current
	return nil
}
