// Package md5 provides MD5 hashing utilities.
//
// MD5 is used here as a content fingerprint, not a security boundary:
// the digest must match the content-MD5/ETag scheme used by the object
// store so that local and stored fingerprints are directly comparable.
package md5

import (
	"crypto/md5" //nolint:gosec // fingerprint scheme must match store ETags
	"encoding/hex"
)

// Hasher implements pipeline.Hasher using MD5.
type Hasher struct{}

// New returns an MD5 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := md5.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:]), nil
}
