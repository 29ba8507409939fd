package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrTooShort is returned by Hash for passwords under Config.MinLength bytes.
	ErrTooShort = errors.New("password too short")
	// ErrTooLong is returned for passwords over MaxLength bytes.
	ErrTooLong = errors.New("password too long")
	// ErrUnknownFormat is returned by Verify for hashes in no supported format.
	ErrUnknownFormat = errors.New("unsupported password hash format")
	// ErrLegacyDisabled is returned when a legacy digest is presented but no secret is configured.
	ErrLegacyDisabled = errors.New("legacy password hashes disabled")
)

// MaxLength bounds password input to keep Argon2 cost predictable.
const MaxLength = 1024

// Config holds Argon2id cost parameters and the legacy HMAC secret.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	// LegacySecret keys HMAC-SHA256 digests from earlier deployments. Empty
	// disables legacy verification.
	LegacySecret string
}

// DefaultConfig returns production Argon2id parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
		MinLength:   8,
	}
}

// Hasher hashes and verifies passwords. It is safe for concurrent use.
type Hasher struct {
	cfg Config
}

// New validates cfg and returns a Hasher.
func New(cfg Config) (*Hasher, error) {
	switch {
	case cfg.Memory < minMemoryKB:
		return nil, fmt.Errorf("password memory must be >= %d KB", minMemoryKB)
	case cfg.Time < 1:
		return nil, errors.New("password time must be >= 1")
	case cfg.Parallelism < 1:
		return nil, errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return nil, fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case cfg.KeyLength < minKeyLength:
		return nil, fmt.Errorf("password key length must be >= %d", minKeyLength)
	case cfg.MinLength < 1:
		return nil, errors.New("password min length must be >= 1")
	}
	return &Hasher{cfg: cfg}, nil
}

// Hash returns an Argon2id PHC string for password. Bytes are used exactly as
// given, without Unicode normalization.
func (h *Hasher) Hash(password string) (string, error) {
	if len(password) < h.cfg.MinLength {
		return "", ErrTooShort
	}
	if len(password) > MaxLength {
		return "", ErrTooLong
	}

	salt := make([]byte, h.cfg.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}
	p := phc{
		memory:      h.cfg.Memory,
		time:        h.cfg.Time,
		parallelism: h.cfg.Parallelism,
		salt:        salt,
	}
	p.key = argon2.IDKey([]byte(password), salt, p.time, p.memory, p.parallelism, h.cfg.KeyLength)
	return p.String(), nil
}

// Verify reports whether password matches encoded, which may be a PHC string
// or a legacy hex digest.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	if len(password) > MaxLength {
		return false, ErrTooLong
	}

	if isLegacyDigest(encoded) {
		if h.cfg.LegacySecret == "" {
			return false, ErrLegacyDisabled
		}
		want := legacyDigest(h.cfg.LegacySecret, password)
		return subtle.ConstantTimeCompare([]byte(want), []byte(encoded)) == 1, nil
	}

	p, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(got, p.key) == 1, nil
}

// NeedsUpgrade reports whether encoded should be replaced by a fresh Hash.
func (h *Hasher) NeedsUpgrade(encoded string) bool {
	if isLegacyDigest(encoded) {
		return true
	}
	p, err := parsePHC(encoded)
	if err != nil {
		return true
	}
	return p.memory < h.cfg.Memory ||
		p.time < h.cfg.Time ||
		p.parallelism < h.cfg.Parallelism ||
		uint32(len(p.key)) != h.cfg.KeyLength
}

func b64(b []byte) string {
	return base64.RawStdEncoding.EncodeToString(b)
}
