package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

const fingerprintLen = 12

// Fingerprint returns a short, non-reversible tag for a secret value so it can
// appear in logs and audit records.
func Fingerprint(v string) string {
	if v == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}
