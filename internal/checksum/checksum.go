// Package checksum provides the hashing primitives behind note identity
// and change detection.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// NoteID derives the stable note identity from its vault-relative path.
// Renaming a note therefore changes its identity; editing it does not.
func NoteID(path string) string {
	h := sha256.Sum256([]byte(path))
	return hex.EncodeToString(h[:8])
}

// ContentHash returns a short digest of note content, used to detect
// edits without comparing full bodies.
func ContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:16])
}
