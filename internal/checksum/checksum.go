// Package checksum fingerprints stored blobs so unchanged writes can be
// skipped and external edits told apart from our own.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Sum returns the hex-encoded SHA-256 digest of blob.
func Sum(blob string) string {
	h := sha256.Sum256([]byte(blob))
	return hex.EncodeToString(h[:])
}

// Tracker remembers the digest of the last blob read or written for one key.
// The zero value has seen nothing and is ready to use.
type Tracker struct {
	mu   sync.Mutex
	sum  string
	seen bool
}

// Remember records blob as the current content.
func (t *Tracker) Remember(blob string) {
	sum := Sum(blob)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sum = sum
	t.seen = true
}

// Changed reports whether blob differs from the remembered content.
// Anything is a change before the first Remember.
func (t *Tracker) Changed(blob string) bool {
	sum := Sum(blob)
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.seen || t.sum != sum
}
