package ir

import "slices"

// Bindings is an immutable variable environment for one search branch.
//
// Bind never mutates the receiver; it returns a new environment sharing the
// parent. Sibling branches of the matcher therefore never observe each
// other's bindings, and dropping a branch is just dropping its pointer.
//
// The nil *Bindings is the empty environment and is ready to use.
type Bindings struct {
	parent *Bindings
	name   string
	value  Value
	size   int
}

// Bind returns an environment extending b with name -> v.
// Callers must check Lookup first: variables are bound exactly once per
// matching attempt and re-occurrence means equality, not rebinding.
func (b *Bindings) Bind(name string, v Value) *Bindings {
	return &Bindings{parent: b, name: name, value: v, size: b.Len() + 1}
}

// Lookup returns the value bound to name.
func (b *Bindings) Lookup(name string) (Value, bool) {
	for e := b; e != nil; e = e.parent {
		if e.name == name {
			return e.value, true
		}
	}
	return nil, false
}

// Len returns the number of bound variables.
func (b *Bindings) Len() int {
	if b == nil {
		return 0
	}
	return b.size
}

// Names returns the bound variable names sorted lexicographically.
func (b *Bindings) Names() []string {
	names := make([]string, 0, b.Len())
	for e := b; e != nil; e = e.parent {
		names = append(names, e.name)
	}
	slices.Sort(names)
	return names
}

// Map copies the environment into a plain map.
func (b *Bindings) Map() map[string]Value {
	m := make(map[string]Value, b.Len())
	for e := b; e != nil; e = e.parent {
		if _, ok := m[e.name]; !ok {
			m[e.name] = e.value
		}
	}
	return m
}

// String renders the environment as {A=1, B=x} in name order.
func (b *Bindings) String() string {
	out := "{"
	for i, name := range b.Names() {
		if i > 0 {
			out += ", "
		}
		v, _ := b.Lookup(name)
		out += name + "=" + v.String()
	}
	return out + "}"
}
