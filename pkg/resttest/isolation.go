package resttest

import "context"

// Savepoint identifies an open savepoint. Its value is meaningful only to
// the Isolator that created it.
type Savepoint string

// Isolator opens savepoints within an ambient transaction and rolls back to
// them, discarding everything written since.
type Isolator interface {
	Savepoint(ctx context.Context) (Savepoint, error)
	RollbackTo(ctx context.Context, sp Savepoint) error
}

// NoIsolation is an Isolator that does nothing. Use it against targets that
// do not share a transaction with the test, such as a live server.
type NoIsolation struct{}

// Savepoint returns an empty savepoint.
func (NoIsolation) Savepoint(context.Context) (Savepoint, error) { return "", nil }

// RollbackTo does nothing.
func (NoIsolation) RollbackTo(context.Context, Savepoint) error { return nil }
