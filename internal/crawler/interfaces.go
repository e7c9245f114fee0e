package crawler

import (
	"io"
	"time"
)

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique identifiers for client-local records such as
// notifications.
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher digests a payload while it streams to its destination. The returned
// func reports the hex digest of the bytes read so far.
type Hasher interface {
	Tee(r io.Reader) (io.Reader, func() string)
}
