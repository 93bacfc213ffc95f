// Package journal persists engine runs to SQLite.
//
// A Journal observes a run and records one row per run and one row per
// firing: the rule, its bindings, the kept and removed store entries and the
// body products. Batch runs additionally record a store snapshot per round.
// The chr trace command reads the journal back.
//
// All constraint and binding columns hold the canonical JSON encoding from
// package ir, so journals written by different builds compare byte for byte.
//
// Reads are ordered by firing sequence, never by insertion time.
package journal
