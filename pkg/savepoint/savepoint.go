// Package savepoint provides resttest.Isolator implementations over database
// transactions.
//
// Each scenario gets a uniquely named savepoint inside the test's ambient
// transaction. Rolling back to it discards everything the scenario wrote
// while leaving the transaction, and any fixtures created before the
// savepoint, in place.
package savepoint

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	"github.com/roach88/resttest/pkg/resttest"
)

// validName matches the savepoint names this package generates. Savepoint
// names are identifiers and cannot be bound as query parameters, so anything
// else is rejected before it reaches SQL.
var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Execer is satisfied by *sql.Tx, *sql.Conn and *sql.DB.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// counter hands out savepoint names.
type counter struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func (c *counter) name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	return fmt.Sprintf("%s_%d", c.prefix, c.next)
}

// SQL isolates scenarios with SAVEPOINT / ROLLBACK TO SAVEPOINT statements
// issued on a database/sql transaction. Use a *sql.Tx (or a *sql.Conn inside
// BEGIN) so all statements run on one connection.
type SQL struct {
	exec  Execer
	names counter
}

// NewSQL returns an isolator issuing savepoint statements on exec.
func NewSQL(exec Execer) *SQL {
	return &SQL{exec: exec, names: counter{prefix: "resttest_sp"}}
}

// Savepoint opens a new savepoint.
func (s *SQL) Savepoint(ctx context.Context) (resttest.Savepoint, error) {
	name := s.names.name()
	if _, err := s.exec.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return "", fmt.Errorf("savepoint %s: %w", name, err)
	}
	return resttest.Savepoint(name), nil
}

// RollbackTo discards all changes made since sp and releases it.
func (s *SQL) RollbackTo(ctx context.Context, sp resttest.Savepoint) error {
	name := string(sp)
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := s.exec.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		return fmt.Errorf("rollback to savepoint %s: %w", name, err)
	}
	if _, err := s.exec.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}
