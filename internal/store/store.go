package store

import (
	"cmp"
	"slices"

	"github.com/roach88/chr/internal/ir"
)

// ID is the physical identity of a constraint instance.
// IDs are allocated by the engine's clock and never reused within a run.
type ID uint64

// Entry pairs a constraint with its handle.
type Entry struct {
	ID         ID
	Constraint ir.Constraint
}

// String renders the constraint of the entry.
func (e Entry) String() string {
	return e.Constraint.String()
}

type slot struct {
	entry Entry
	order int64 // insertion sequence, strictly increasing
}

// Store is the live constraint set.
// Indexing by signature is a lookup convenience only; matching semantics
// do not depend on it.
type Store struct {
	slots map[ID]*slot
	byKey map[string]ID
	bySig map[ir.Signature]map[ID]struct{}
	order int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		slots: make(map[ID]*slot),
		byKey: make(map[string]ID),
		bySig: make(map[ir.Signature]map[ID]struct{}),
	}
}

// Insert adds an entry to the store.
//
// Returns false (and leaves the store unchanged) if a structurally identical
// constraint is already present, or if the ID is already in use.
func (s *Store) Insert(e Entry) bool {
	if _, exists := s.slots[e.ID]; exists {
		return false
	}
	key := e.Constraint.Key()
	if _, dup := s.byKey[key]; dup {
		return false
	}

	s.order++
	s.slots[e.ID] = &slot{entry: e, order: s.order}
	s.byKey[key] = e.ID

	sig := e.Constraint.Signature()
	ids := s.bySig[sig]
	if ids == nil {
		ids = make(map[ID]struct{})
		s.bySig[sig] = ids
	}
	ids[e.ID] = struct{}{}
	return true
}

// Remove deletes the entry with the given ID.
// Returns false if no such entry is present (already removed).
func (s *Store) Remove(id ID) bool {
	sl, ok := s.slots[id]
	if !ok {
		return false
	}
	delete(s.slots, id)
	delete(s.byKey, sl.entry.Constraint.Key())

	sig := sl.entry.Constraint.Signature()
	if ids := s.bySig[sig]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.bySig, sig)
		}
	}
	return true
}

// Has reports whether the entry with the given ID is alive.
func (s *Store) Has(id ID) bool {
	_, ok := s.slots[id]
	return ok
}

// Lookup returns the live entry structurally identical to c.
func (s *Store) Lookup(c ir.Constraint) (Entry, bool) {
	id, ok := s.byKey[c.Key()]
	if !ok {
		return Entry{}, false
	}
	return s.slots[id].entry, true
}

// Contains reports whether a constraint structurally identical to c is alive.
func (s *Store) Contains(c ir.Constraint) bool {
	_, ok := s.byKey[c.Key()]
	return ok
}

// Candidates returns the live entries with the given signature, oldest
// insertion first. The slice is a copy owned by the caller.
func (s *Store) Candidates(sig ir.Signature) []Entry {
	ids := s.bySig[sig]
	if len(ids) == 0 {
		return nil
	}
	slots := make([]*slot, 0, len(ids))
	for id := range ids {
		slots = append(slots, s.slots[id])
	}
	slices.SortFunc(slots, func(a, b *slot) int {
		return cmp.Compare(a.order, b.order)
	})
	out := make([]Entry, len(slots))
	for i, sl := range slots {
		out[i] = sl.entry
	}
	return out
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	return len(s.slots)
}

// Snapshot returns all live entries, most recently inserted first.
func (s *Store) Snapshot() []Entry {
	slots := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		slots = append(slots, sl)
	}
	slices.SortFunc(slots, func(a, b *slot) int {
		return cmp.Compare(b.order, a.order)
	})
	out := make([]Entry, len(slots))
	for i, sl := range slots {
		out[i] = sl.entry
	}
	return out
}

// Constraints returns all live constraints, most recently inserted first.
func (s *Store) Constraints() []ir.Constraint {
	snap := s.Snapshot()
	out := make([]ir.Constraint, len(snap))
	for i, e := range snap {
		out[i] = e.Constraint
	}
	return out
}
