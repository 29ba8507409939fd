package session

import (
	"crypto/sha1"
	"encoding/hex"
)

// Digest is the change-detection hash of a payload.
type Digest [sha1.Size]byte

// String returns the lowercase hex form.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// Hash returns the SHA-1 of the canonical encoding of p. It is used only to
// detect mutation between request start and response finalize, never as a
// security boundary.
func Hash(p *Payload) (Digest, error) {
	data, err := Encode(p)
	if err != nil {
		return Digest{}, err
	}
	return sha1.Sum(data), nil
}
