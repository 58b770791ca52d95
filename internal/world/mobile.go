package world

import "github.com/sumpurns/uoproxy/internal/protocol"

// Mobile is one animate entity in the mobile store. Its equipped
// items live in the item store, linked by parent serial, not here.
type Mobile struct {
	Serial   uint32
	Incoming *protocol.MobileIncoming
	Status   *protocol.MobileStatus
}

// MobileStore is the keyed set of mobiles the world mirror owns.
type MobileStore struct {
	mobiles map[uint32]*Mobile
}

// NewMobileStore returns an empty mobile store.
func NewMobileStore() *MobileStore {
	return &MobileStore{mobiles: make(map[uint32]*Mobile)}
}

// Find returns the mobile with the given serial, if one exists.
func (s *MobileStore) Find(serial uint32) (*Mobile, bool) {
	m, ok := s.mobiles[serial]
	return m, ok
}

// Upsert returns the existing mobile with the given serial, or
// creates and inserts a fresh one.
func (s *MobileStore) Upsert(serial uint32) *Mobile {
	if m, ok := s.mobiles[serial]; ok {
		return m
	}
	m := &Mobile{Serial: serial}
	s.mobiles[serial] = m
	return m
}

// Remove discards a single mobile. Equipped items are the item
// store's responsibility (RemoveSubtree), not this store's.
func (s *MobileStore) Remove(m *Mobile) {
	delete(s.mobiles, m.Serial)
}

// Len reports how many mobiles the store currently holds.
func (s *MobileStore) Len() int { return len(s.mobiles) }

// Each calls fn once per stored mobile. Iteration order is
// unspecified.
func (s *MobileStore) Each(fn func(*Mobile)) {
	for _, m := range s.mobiles {
		fn(m)
	}
}
