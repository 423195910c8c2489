// Package ids generates ULIDs for request ids and generated registration
// codes.
package ids

import (
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable 26-character identifier.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Short returns the last n characters of a fresh ULID, upper-cased. The tail
// holds the random component, so short ids stay distinct within a millisecond.
func Short(n int) string {
	id := New()
	if n <= 0 || n >= len(id) {
		return id
	}
	return strings.ToUpper(id[len(id)-n:])
}
