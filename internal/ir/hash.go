package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints. The version suffix allows the
// encoding to change without comparing old and new fingerprints.
const (
	DomainSchema = "relmap/schema/v1"
)

// Fingerprint returns the hex SHA-256 of domain, a zero byte and the
// canonical encoding of v.
func Fingerprint(domain string, v Value) (string, error) {
	data, err := Canonical(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}

	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
