package event

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainInput prefixes the structural hash of input events.
// Version suffix enables future algorithm migration.
const DomainInput = "liftfop/input/v1"

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash computes the structural identity of an input event: its kind and
// fields. Origin is EXCLUDED, so the same action delivered twice by
// redundant sources hashes the same.
func Hash(in Input) (string, error) {
	if in == nil {
		return "", fmt.Errorf("Hash: nil input")
	}
	obj := map[string]any{
		"kind":   in.kind(),
		"fields": in.fields(),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("Hash %s: failed to marshal: %w", in.kind(), err)
	}
	return hashWithDomain(DomainInput, canonical), nil
}

// MustHash is like Hash but panics on error. For tests and fixtures.
func MustHash(in Input) string {
	h, err := Hash(in)
	if err != nil {
		panic(err)
	}
	return h
}
