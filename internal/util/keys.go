package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// maxPlainKey bounds keys handed to stores with key-size limits (document ids,
// object names). Longer keys are hashed.
const maxPlainKey = 200

// Key joins non-empty parts with ':' (e.g. "fixtures", "39", "2024" -> "fixtures:39:2024").
func Key(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}

// Digest returns the first 16 hex chars of sha256(s).
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

// SafeID maps a storage key to an identifier without '/' and of bounded size.
// Short keys stay readable.
func SafeID(key string) string {
	if len(key) <= maxPlainKey && !strings.ContainsAny(key, "/.#[]*?") {
		return key
	}
	return "h_" + Digest(key)
}
