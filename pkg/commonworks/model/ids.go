package model

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"
)

// IDGen hands out monotonic ULIDs. An entity keeps the ID it was built
// with from the pending table through to the store.
type IDGen struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDGen creates a new generator
func NewIDGen() *IDGen {
	return &IDGen{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// New returns the next identifier.
func (g *IDGen) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Now(), g.entropy).String()
}
