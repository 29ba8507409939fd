package password

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID          = "argon2id"
	minMemoryKB   uint32 = 8 * 1024
	minSaltLength uint32 = 16
	minKeyLength  uint32 = 16
)

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID, argon2.Version, p.memory, p.time, p.parallelism, b64(p.salt), b64(p.key))
}

func malformed(what string) error {
	return fmt.Errorf("%w: %s", ErrUnknownFormat, what)
}

// parsePHC accepts padded or unpadded base64 for salt and key.
func parsePHC(encoded string) (phc, error) {
	var p phc

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" {
		return p, malformed("field count")
	}
	if fields[1] != algorithmID {
		return p, malformed("algorithm " + fields[1])
	}
	if fields[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, malformed("version")
	}

	seen := 0
	for _, kv := range strings.Split(fields[3], ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return p, malformed("parameter " + kv)
		}
		switch name {
		case "m":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil || uint32(n) < minMemoryKB {
				return p, malformed("memory")
			}
			p.memory = uint32(n)
		case "t":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil || n < 1 {
				return p, malformed("time")
			}
			p.time = uint32(n)
		case "p":
			n, err := strconv.ParseUint(value, 10, 8)
			if err != nil || n < 1 {
				return p, malformed("parallelism")
			}
			p.parallelism = uint8(n)
		default:
			return p, malformed("parameter " + name)
		}
		seen++
	}
	if seen != 3 || p.memory == 0 || p.time == 0 || p.parallelism == 0 {
		return p, malformed("parameters")
	}

	var err error
	if p.salt, err = decodeB64(fields[4]); err != nil || uint32(len(p.salt)) < minSaltLength {
		return p, malformed("salt")
	}
	if p.key, err = decodeB64(fields[5]); err != nil || len(p.key) == 0 {
		return p, malformed("key")
	}
	return p, nil
}

func decodeB64(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
