package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBindings_Empty(t *testing.T) {
	var b *Bindings

	_, ok := b.Lookup("X")
	assert.False(t, ok)
	assert.Zero(t, b.Len())
	assert.Empty(t, b.Names())
	assert.Equal(t, "{}", b.String())
}

func TestBindings_Persistent(t *testing.T) {
	base := (*Bindings)(nil).Bind("X", Int(1))
	left := base.Bind("Y", Int(2))
	right := base.Bind("Y", Int(3))

	// Sibling branches do not see each other.
	v, _ := left.Lookup("Y")
	assert.Equal(t, Int(2), v)
	v, _ = right.Lookup("Y")
	assert.Equal(t, Int(3), v)

	// The parent is unchanged.
	_, ok := base.Lookup("Y")
	assert.False(t, ok)
	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, left.Len())
}

func TestBindings_NamesAndString(t *testing.T) {
	b := (*Bindings)(nil).Bind("N", Int(5)).Bind("I", Int(0)).Bind("C", Atom("red"))

	assert.Equal(t, []string{"C", "I", "N"}, b.Names())
	assert.Equal(t, "{C=red, I=0, N=5}", b.String())
	assert.Equal(t, map[string]Value{"C": Atom("red"), "I": Int(0), "N": Int(5)}, b.Map())
}
