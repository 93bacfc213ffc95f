// Package store provides the live constraint store of the CHR engine.
//
// The store is an in-memory SET of ground constraints:
//   - Inserting a constraint structurally identical to one already present
//     is a no-op (Insert returns false)
//   - Every entry carries a handle (ID) that is its physical identity;
//     two structurally equal constraints that were alive at different
//     times have different IDs
//   - Entries remember insertion order: Candidates enumerates oldest first,
//     Snapshot lists most recent first (the print order)
//
// # Ownership
//
// The store has exactly one writer, the engine. It is not safe for
// concurrent use and is never persisted: it lives for one run only.
//
// Candidates returns a copied slice, so a matching attempt iterating over it
// sees a consistent snapshot even if the engine later removes entries.
package store
