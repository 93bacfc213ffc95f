package ir

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFiring  = "chr/firing/v1"
	DomainBinding = "chr/binding/v1"
	DomainProgram = "chr/program/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00}) // Null separator - CRITICAL
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FiringKey identifies one application of a rule to a tuple of store
// handles (in head order). Used by the propagation history so that a
// propagation rule never fires twice on the same tuple.
func FiringKey(rule string, handles []uint64) string {
	data := make([]byte, 0, len(rule)+1+8*len(handles))
	data = append(data, rule...)
	data = append(data, 0x00)
	for _, h := range handles {
		data = binary.BigEndian.AppendUint64(data, h)
	}
	return hashWithDomain(DomainFiring, data)
}

// BindingHash computes a content hash of a binding environment.
// Recorded in the firing journal so identical bindings are easy to spot.
func BindingHash(b *Bindings) (string, error) {
	canonical, err := MarshalCanonicalBindings(b)
	if err != nil {
		return "", fmt.Errorf("BindingHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBinding, canonical), nil
}

// ProgramHash identifies a rule set independent of formatting: it hashes
// the normalized rendering of every rule in declaration order.
func ProgramHash(rules []Rule) string {
	var data []byte
	for _, r := range rules {
		data = append(data, r.String()...)
		data = append(data, 0x00)
	}
	return hashWithDomain(DomainProgram, data)
}

// MustBindingHash is like BindingHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustBindingHash(b *Bindings) string {
	hash, err := BindingHash(b)
	if err != nil {
		panic(err)
	}
	return hash
}
