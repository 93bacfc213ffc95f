package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiringKey(t *testing.T) {
	k := FiringKey("trans", []uint64{1, 2})

	assert.Len(t, k, 64, "hex sha256")
	assert.Equal(t, k, FiringKey("trans", []uint64{1, 2}), "deterministic")
	assert.NotEqual(t, k, FiringKey("trans", []uint64{2, 1}), "order matters")
	assert.NotEqual(t, k, FiringKey("trans2", []uint64{1, 2}))
	assert.NotEqual(t, FiringKey("a", []uint64{1}), FiringKey("a\x00", []uint64{1}))
}

func TestBindingHash(t *testing.T) {
	a := (*Bindings)(nil).Bind("X", Int(1)).Bind("Y", Int(2))
	b := (*Bindings)(nil).Bind("Y", Int(2)).Bind("X", Int(1))

	ha, err := BindingHash(a)
	require.NoError(t, err)
	assert.Equal(t, ha, MustBindingHash(b), "binding order does not matter")
	assert.NotEqual(t, ha, MustBindingHash(a.Bind("Z", Int(3))))
}

func TestHashDomainsAreSeparated(t *testing.T) {
	data := []byte("same")
	assert.NotEqual(t,
		hashWithDomain(DomainFiring, data),
		hashWithDomain(DomainBinding, data))
}

func TestProgramHash(t *testing.T) {
	r1 := Rule{Name: "a", Removed: []Pattern{{Functor: "p", Args: []Term{Var{Name: "X"}}}}}
	r2 := Rule{Name: "b", Removed: []Pattern{{Functor: "q"}}}

	h := ProgramHash([]Rule{r1, r2})
	assert.Equal(t, h, ProgramHash([]Rule{r1, r2}))
	assert.NotEqual(t, h, ProgramHash([]Rule{r2, r1}), "rule order is part of the program")
}
