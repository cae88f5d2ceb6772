package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for hashed trace content.
// Version suffix enables future algorithm migration.
const (
	DomainState  = "relay/state/v1"
	DomainAction = "relay/action/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StateHash returns the hash of a state's canonical JSON.
// Two states hash equal iff their canonical encodings are identical.
func StateHash(state any) (string, error) {
	canonical, err := Canonical(state)
	if err != nil {
		return "", fmt.Errorf("state hash: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// ActionHash returns the hash of an action's canonical JSON.
func ActionHash(action any) (string, error) {
	canonical, err := Canonical(action)
	if err != nil {
		return "", fmt.Errorf("action hash: %w", err)
	}
	return hashWithDomain(DomainAction, canonical), nil
}
