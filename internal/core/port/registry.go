package port

import "github.com/Wyydra/meet/internal/core/domain"

// SessionRegistry tracks the live clients of one room and decides who must
// be told what on every membership event. Implementations are safe for
// concurrent use; callers that need the returned deliveries ordered with
// respect to other events must serialize the calls themselves.
type SessionRegistry interface {
	Mode() domain.Mode
	Connect(id domain.ClientID) []domain.Delivery
	Ready(id domain.ClientID) []domain.Delivery
	Disconnect(id domain.ClientID) []domain.Delivery
	IsLive(id domain.ClientID) bool
	Len() int
}
