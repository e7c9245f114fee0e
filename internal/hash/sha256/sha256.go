// Package sha256 computes the SHA-256 digest recorded for saved exports.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Hasher implements crawler.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Tee returns a reader that yields r's bytes and a func reporting the hex
// digest of everything read through it so far.
func (*Hasher) Tee(r io.Reader) (io.Reader, func() string) {
	h := sha256.New()
	return io.TeeReader(r, h), func() string {
		return hex.EncodeToString(h.Sum(nil))
	}
}

// Sum returns the hex digest of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
