package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/chr/internal/ir"
	"github.com/roach88/chr/internal/store"
)

// marshalConstraints encodes constraints as a JSON array of canonical
// constraint encodings, preserving order.
func marshalConstraints(cs []ir.Constraint) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, c := range cs {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := ir.MarshalCanonical(c)
		if err != nil {
			return "", fmt.Errorf("marshal constraint %d: %w", i, err)
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.String(), nil
}

// marshalEntries encodes store entries as [{"constraint":[...],"id":N}, ...].
// Keys are written in lexicographic order to keep the encoding canonical.
func marshalEntries(es []store.Entry) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range es {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := ir.MarshalCanonical(e.Constraint)
		if err != nil {
			return "", fmt.Errorf("marshal entry %d: %w", e.ID, err)
		}
		buf.WriteString(`{"constraint":`)
		buf.Write(data)
		buf.WriteString(`,"id":`)
		buf.WriteString(strconv.FormatUint(uint64(e.ID), 10))
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.String(), nil
}

func marshalBindings(b *ir.Bindings) (string, error) {
	data, err := ir.MarshalCanonicalBindings(b)
	if err != nil {
		return "", fmt.Errorf("marshal bindings: %w", err)
	}
	return string(data), nil
}

func unmarshalConstraints(data string) ([]ir.Constraint, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal constraints: %w", err)
	}
	out := make([]ir.Constraint, len(raw))
	for i, r := range raw {
		c, err := ir.UnmarshalCanonical(r)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func unmarshalEntries(data string) ([]store.Entry, error) {
	var raw []struct {
		Constraint json.RawMessage `json:"constraint"`
		ID         uint64          `json:"id"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal entries: %w", err)
	}
	out := make([]store.Entry, len(raw))
	for i, r := range raw {
		c, err := ir.UnmarshalCanonical(r.Constraint)
		if err != nil {
			return nil, err
		}
		out[i] = store.Entry{ID: store.ID(r.ID), Constraint: c}
	}
	return out, nil
}
