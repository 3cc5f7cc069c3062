package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	mrand "math/rand/v2"
	"strings"
)

// TokenBytes is the entropy of verification and reset tokens.
const TokenBytes = 20

// RandomToken returns n random bytes hex encoded.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Sha256Hex is how single-use tokens are stored.
func Sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

const referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReferralCode returns REF-XXXX-XXXX. Codes are not secrets, so the
// non-crypto source is fine; uniqueness is enforced by the store.
func GenerateReferralCode() string {
	var b strings.Builder
	b.Grow(13)
	b.WriteString("REF-")
	for i := 0; i < 8; i++ {
		if i == 4 {
			b.WriteByte('-')
		}
		b.WriteByte(referralAlphabet[mrand.IntN(len(referralAlphabet))])
	}
	return b.String()
}
