// Package memory holds in-process session registries. State lives only as
// long as the process; nothing is persisted.
package memory

import (
	"github.com/Wyydra/meet/internal/core/domain"
	"github.com/Wyydra/meet/internal/core/port"
)

// New returns an empty registry for mode.
func New(mode domain.Mode) port.SessionRegistry {
	if mode == domain.ModePaired {
		return NewPairedRegistry()
	}
	return NewMeshRegistry()
}
