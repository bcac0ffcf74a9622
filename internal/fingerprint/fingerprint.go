// Package fingerprint computes content-derived document identifiers.
//
// The fingerprint is a pure function of the file bytes: two uploads with
// identical content resolve to the same identifier regardless of file name
// or modification time. It is the sole key into the history store.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// FromReader digests r without buffering it in memory.
func FromReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("fingerprint: read: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
