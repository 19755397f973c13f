// Package identity computes content fingerprints and derives artifact
// identifiers. Both functions are pure so that retries within a job are
// idempotent.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the hex-encoded SHA-256 digest of the raw bytes.
// This is the dedup key: collision resistance matters here because equal
// digests suppress the raw object upload.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ElementID derives the stable artifact identifier for a (url, job) pair:
// hex(sha256(url)) + "_" + jobID. Re-fetching the same URL within the same
// job yields the same ID.
func ElementID(rawURL, jobID string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:]) + "_" + jobID
}
