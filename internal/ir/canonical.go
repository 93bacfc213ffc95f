package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical JSON encoding of a constraint.
// CRITICAL: This is the ONLY serialization used for structural identity
// (store set semantics) and for content hashes.
//
// Encoding: ["functor", arg1, arg2, ...] where Int args are JSON numbers and
// Atom args are JSON strings.
//
// Key differences from standard json.Marshal:
// 1. Strings are NFC normalized (so visually identical atoms are identical)
// 2. No HTML escaping (< > & are NOT escaped)
// 3. Ints are written as base-10 integers, never floats
func MarshalCanonical(c Constraint) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	fb, err := marshalCanonicalString(c.Functor)
	if err != nil {
		return nil, fmt.Errorf("functor: %w", err)
	}
	buf.Write(fb)
	for i, a := range c.Args {
		buf.WriteByte(',')
		ab, err := marshalCanonicalValue(a)
		if err != nil {
			return nil, fmt.Errorf("arg[%d]: %w", i, err)
		}
		buf.Write(ab)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Key returns the canonical structural key of the constraint.
// Two constraints have the same key iff they are structurally identical
// after NFC normalization.
func (c Constraint) Key() string {
	b, err := MarshalCanonical(c)
	if err != nil {
		// Only unknown Value implementations can fail; Value is sealed.
		panic(fmt.Sprintf("canonical key for %s: %v", c.Functor, err))
	}
	return string(b)
}

// MarshalCanonicalBindings encodes an environment as a JSON object with
// keys in lexicographic order.
func MarshalCanonicalBindings(b *Bindings) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range b.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalCanonicalString(name)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", name, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		v, _ := b.Lookup(name)
		vb, err := marshalCanonicalValue(v)
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", name, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalCanonicalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Int:
		return []byte(strconv.FormatInt(int64(val), 10)), nil
	case Atom:
		return marshalCanonicalString(string(val))
	case nil:
		return nil, fmt.Errorf("null is forbidden in canonical JSON")
	default:
		return nil, fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// marshalCanonicalString produces a canonical JSON string with NFC normalization.
func marshalCanonicalString(s string) ([]byte, error) {
	// NFC normalize at serialization boundary
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // CRITICAL: <, >, & must NOT be escaped
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds trailing newline, remove it
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// UnmarshalCanonical parses the canonical encoding produced by
// MarshalCanonical. JSON numbers must be integers; they decode to Int.
// Strings decode to Atom.
func UnmarshalCanonical(data []byte) (Constraint, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Constraint{}, fmt.Errorf("unmarshal constraint: %w", err)
	}
	if len(raw) == 0 {
		return Constraint{}, fmt.Errorf("unmarshal constraint: empty array")
	}
	var functor string
	if err := json.Unmarshal(raw[0], &functor); err != nil {
		return Constraint{}, fmt.Errorf("unmarshal constraint: functor: %w", err)
	}
	args := make([]Value, len(raw)-1)
	for i, r := range raw[1:] {
		v, err := unmarshalCanonicalValue(r)
		if err != nil {
			return Constraint{}, fmt.Errorf("unmarshal constraint: arg[%d]: %w", i, err)
		}
		args[i] = v
	}
	return NewConstraint(functor, args...), nil
}

// UnmarshalCanonicalBindings parses the object produced by
// MarshalCanonicalBindings.
func UnmarshalCanonicalBindings(data []byte) (*Bindings, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal bindings: %w", err)
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	slices.Sort(names)

	var b *Bindings
	for _, name := range names {
		v, err := unmarshalCanonicalValue(raw[name])
		if err != nil {
			return nil, fmt.Errorf("unmarshal bindings: %s: %w", name, err)
		}
		b = b.Bind(name, v)
	}
	return b, nil
}

func unmarshalCanonicalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case string:
		return Atom(val), nil
	case json.Number:
		n, err := strconv.ParseInt(val.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer: %s", val)
		}
		return Int(n), nil
	default:
		return nil, fmt.Errorf("unsupported JSON value %T", v)
	}
}
