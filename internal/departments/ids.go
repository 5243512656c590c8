package departments

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces ids for new departments.
type IDGenerator interface {
	NewID() uuid.UUID
}

// UUIDv7Generator generates time-sortable UUIDv7 ids. It is stateless and
// safe for concurrent use.
type UUIDv7Generator struct{}

// NewID returns a fresh UUIDv7.
func (UUIDv7Generator) NewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// FixedGenerator returns predetermined ids in order, for tests that compare
// responses byte for byte.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []uuid.UUID
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
//	gen := NewFixedGenerator(a, b)
//	gen.NewID() // a
//	gen.NewID() // b
//	gen.NewID() // panic: all ids exhausted
func NewFixedGenerator(ids ...uuid.UUID) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// NewID returns the next predetermined id. It panics when all ids have been
// used, which catches a test creating more departments than it planned.
func (g *FixedGenerator) NewID() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
