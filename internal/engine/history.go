package engine

import (
	"github.com/roach88/chr/internal/ir"
	"github.com/roach88/chr/internal/store"
)

// PropagationHistory records which (rule, handle tuple) combinations a
// propagation rule has already fired on in the current run.
//
// A propagation rule keeps all of its heads, so without a history it would
// match the same tuple again on every pass (batch strategy) and on every
// re-match (exhaustive mode). Keys are built with ir.FiringKey from the rule
// name and the entry handles in head order, so a structurally equal
// constraint re-created later (new handle) can trigger the rule again.
//
// Only rules of kind ir.Propagation consult the history. Simplification and
// simpagation rules consume at least one head, which already prevents a
// repeat on the same tuple.
type PropagationHistory struct {
	seen map[string]struct{}
}

// NewPropagationHistory creates an empty history.
func NewPropagationHistory() *PropagationHistory {
	return &PropagationHistory{seen: make(map[string]struct{})}
}

// Seen reports whether the rule already fired on this handle tuple.
func (h *PropagationHistory) Seen(rule string, handles []store.ID) bool {
	_, ok := h.seen[historyKey(rule, handles)]
	return ok
}

// Record marks that the rule fired on this handle tuple.
func (h *PropagationHistory) Record(rule string, handles []store.ID) {
	h.seen[historyKey(rule, handles)] = struct{}{}
}

// Len returns the number of recorded firings.
func (h *PropagationHistory) Len() int {
	return len(h.seen)
}

func historyKey(rule string, handles []store.ID) string {
	raw := make([]uint64, len(handles))
	for i, id := range handles {
		raw[i] = uint64(id)
	}
	return ir.FiringKey(rule, raw)
}
