// Package hash provides shared hashing utilities for generating truncated IDs.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// IDLength is the number of hex characters used for truncated hash IDs.
// 16 hex chars = 8 bytes = 64 bits of entropy, enough to keep tag IDs
// and blob filenames collision-free at this scale.
const IDLength = 16

// TruncatedSHA256 returns a truncated SHA256 hash of the input string.
// Used for tag row IDs (derived from the tag name) and for mapping
// archive IDs to filesystem-safe blob names.
func TruncatedSHA256(data string) string {
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])[:IDLength]
}
