package password

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

func legacyDigest(secret, password string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

func isLegacyDigest(encoded string) bool {
	if len(encoded) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(encoded)
	return err == nil
}
