package utils

import (
	"strings"
)

// NormalizeEmail trims surrounding space. Case is preserved; emails compare
// exactly as stored.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// MaskEmail hides the local part for log output: "budi@x.id" -> "b***@x.id".
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
