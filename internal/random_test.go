package internal

import (
	"encoding/base64"
	"testing"
)

func TestNewSessionTokenShape(t *testing.T) {
	token, err := NewSessionToken()
	if err != nil {
		t.Fatalf("NewSessionToken: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		t.Fatalf("token is not raw url base64: %v", err)
	}
	if len(raw) != SessionTokenSize {
		t.Fatalf("expected %d random bytes, got %d", SessionTokenSize, len(raw))
	}
	if !ValidSessionToken(token) {
		t.Fatalf("expected token %q to validate", token)
	}
}

func TestNewSessionTokenUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		token, err := NewSessionToken()
		if err != nil {
			t.Fatalf("NewSessionToken: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[token] = struct{}{}
	}
}

func TestValidSessionTokenRejectsGarbage(t *testing.T) {
	for _, tok := range []string{"", "short", "!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!!", "aGVsbG8gd29ybGQ="} {
		if ValidSessionToken(tok) {
			t.Fatalf("expected %q to be rejected", tok)
		}
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("token-a")
	if a != Fingerprint("token-a") {
		t.Fatal("fingerprint must be deterministic")
	}
	if len(a) != fingerprintLen {
		t.Fatalf("expected %d chars, got %d", fingerprintLen, len(a))
	}
	if a == Fingerprint("token-b") {
		t.Fatal("distinct inputs should not share a fingerprint")
	}
	if Fingerprint("") != "" {
		t.Fatal("empty input should map to empty fingerprint")
	}
}
