package store

import (
	"github.com/eurostake/staking-sync-service/internal/types"
)

// Update announces that one cache slot was replaced. Account is zero
// for the account-independent stats slot.
type Update struct {
	Slot     SlotKind
	Account  types.AccountAddress
	Contract types.ContractAddress
}

const subscriptionBuffer = 16

// Subscribe registers a listener for cache slot replacements. The
// returned cancel func must be called to release the subscription.
// Notifications to a subscriber with a full buffer are dropped rather
// than blocking a refresh.
func (s *Store) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, subscriptionBuffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (s *Store) notify(update Update) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- update:
		default:
		}
	}
}
