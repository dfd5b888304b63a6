package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SHA256Hex returns the lowercase hex sha256 digest of s.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// IsSHA256Hex reports whether s looks like a digest produced by SHA256Hex.
func IsSHA256Hex(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return !((r >= 'a' && r <= 'f') || (r >= '0' && r <= '9'))
	}) == -1
}
