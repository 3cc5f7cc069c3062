package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var referralPattern = regexp.MustCompile(`^REF-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

func TestGenerateReferralCode_Shape(t *testing.T) {
	for i := 0; i < 500; i++ {
		code := GenerateReferralCode()
		require.Regexp(t, referralPattern, code)
	}
}

func TestGenerateReferralCode_Varies(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		seen[GenerateReferralCode()] = struct{}{}
	}
	assert.Greater(t, len(seen), 90)
}

func TestRandomToken(t *testing.T) {
	a, err := RandomToken(TokenBytes)
	require.NoError(t, err)
	b, err := RandomToken(TokenBytes)
	require.NoError(t, err)

	assert.Len(t, a, 40)
	assert.Regexp(t, `^[0-9a-f]{40}$`, a)
	assert.NotEqual(t, a, b)
}

func TestSha256Hex(t *testing.T) {
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		Sha256Hex("hello"))
	assert.Len(t, Sha256Hex("x"), 64)
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "b***@example.com", MaskEmail("budi@example.com"))
	assert.Equal(t, "***", MaskEmail("nope"))
	assert.Equal(t, "***", MaskEmail("@example.com"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "Budi@Example.com", NormalizeEmail("  Budi@Example.com "))
}
