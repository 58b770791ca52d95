package world

import "github.com/sumpurns/uoproxy/internal/protocol"

// Placement is the tagged union of where an item currently is. The
// derived parent serial depends on which variant is active; see
// Item.ParentSerial.
type Placement int

const (
	PlacementNone Placement = iota
	PlacementGround
	PlacementContainer
	PlacementEquipped
)

// Item is one entity in the item store. Its parent is never stored
// directly: it is always derived from the active Placement variant,
// per the data model's invariant that placement is the single source
// of truth for "where is this item".
type Item struct {
	Serial uint32

	Placement Placement
	Ground    protocol.GroundItem
	Container protocol.ContainerItem
	Equip     protocol.Equip

	ContainerOpen *protocol.ContainerOpen

	// SweepEpoch is stamped by the container-content handler and
	// compared against the store's current epoch to find stale
	// children of a container that was just re-synced.
	SweepEpoch uint64
}

// ParentSerial reports the item or mobile that owns this item, if
// any. Ground items and items with no placement yet have no parent.
func (i *Item) ParentSerial() (uint32, bool) {
	switch i.Placement {
	case PlacementContainer:
		return i.Container.ParentSerial, true
	case PlacementEquipped:
		return i.Equip.ParentSerial, true
	default:
		return 0, false
	}
}

// ItemStore is the keyed set of items the world mirror owns. A linear
// scan over the backing map is fine at the cardinalities a single UO
// session produces (tens to hundreds of items per container context);
// correctness, not ordering, is what matters here.
type ItemStore struct {
	items map[uint32]*Item
}

// NewItemStore returns an empty item store.
func NewItemStore() *ItemStore {
	return &ItemStore{items: make(map[uint32]*Item)}
}

// Find returns the item with the given serial, if one exists.
func (s *ItemStore) Find(serial uint32) (*Item, bool) {
	it, ok := s.items[serial]
	return it, ok
}

// Upsert returns the existing item with the given serial, or creates
// and inserts a fresh one with no placement yet. It never creates a
// second record for a serial that is already present.
func (s *ItemStore) Upsert(serial uint32) *Item {
	if it, ok := s.items[serial]; ok {
		return it
	}
	it := &Item{Serial: serial}
	s.items[serial] = it
	return it
}

// Remove unlinks and discards a single item. It does not cascade to
// children; see RemoveSubtree for that.
func (s *ItemStore) Remove(item *Item) {
	delete(s.items, item.Serial)
}

// removeByPred removes every item for which pred returns true. Keys
// are collected before any delete so the backing map is never mutated
// while being ranged over.
func (s *ItemStore) removeByPred(pred func(*Item) bool) []*Item {
	var matched []*Item
	for _, it := range s.items {
		if pred(it) {
			matched = append(matched, it)
		}
	}
	for _, it := range matched {
		s.Remove(it)
	}
	return matched
}

// RemoveSubtree removes every item whose derived parent is
// parentSerial, and recursively their own subtrees. Direct children
// are gathered first so that cascading deletes further down the tree
// never invalidate the iteration that found them.
func (s *ItemStore) RemoveSubtree(parentSerial uint32) {
	var children []*Item
	for _, it := range s.items {
		if p, ok := it.ParentSerial(); ok && p == parentSerial {
			children = append(children, it)
		}
	}
	for _, child := range children {
		s.RemoveSubtree(child.Serial)
		s.Remove(child)
	}
}

// SweepChildrenOf removes every item whose derived parent equals
// parentSerial and whose SweepEpoch differs from epoch. It does not
// cascade into the removed items' own children: a container-content
// batch is authoritative only for its direct contents, and any item
// that disappears this way was already being re-announced or dropped
// by the server in its own right.
func (s *ItemStore) SweepChildrenOf(parentSerial uint32, epoch uint64) {
	s.removeByPred(func(it *Item) bool {
		p, ok := it.ParentSerial()
		return ok && p == parentSerial && it.SweepEpoch != epoch
	})
}

// Len reports how many items the store currently holds.
func (s *ItemStore) Len() int { return len(s.items) }

// Each calls fn once per stored item. Iteration order is unspecified.
func (s *ItemStore) Each(fn func(*Item)) {
	for _, it := range s.items {
		fn(it)
	}
}

// ChildrenOf returns the items whose derived parent is parentSerial.
func (s *ItemStore) ChildrenOf(parentSerial uint32) []*Item {
	var out []*Item
	for _, it := range s.items {
		if p, ok := it.ParentSerial(); ok && p == parentSerial {
			out = append(out, it)
		}
	}
	return out
}
