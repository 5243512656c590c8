package savepoint

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/roach88/resttest/pkg/resttest"
)

// Gorm isolates scenarios with GORM's SavePoint and RollbackTo. The *gorm.DB
// must be a transaction started with Begin so that every statement shares
// one connection.
type Gorm struct {
	tx    *gorm.DB
	names counter
}

// NewGorm returns an isolator over the GORM transaction tx.
func NewGorm(tx *gorm.DB) *Gorm {
	return &Gorm{tx: tx, names: counter{prefix: "resttest_gorm_sp"}}
}

// Savepoint opens a new savepoint.
func (g *Gorm) Savepoint(ctx context.Context) (resttest.Savepoint, error) {
	name := g.names.name()
	if err := g.tx.WithContext(ctx).SavePoint(name).Error; err != nil {
		return "", fmt.Errorf("savepoint %s: %w", name, err)
	}
	return resttest.Savepoint(name), nil
}

// RollbackTo discards all changes made since sp and releases it. GORM has no
// release call, so the RELEASE statement is issued on the transaction.
func (g *Gorm) RollbackTo(ctx context.Context, sp resttest.Savepoint) error {
	name := string(sp)
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid savepoint name %q", name)
	}
	tx := g.tx.WithContext(ctx)
	if err := tx.RollbackTo(name).Error; err != nil {
		return fmt.Errorf("rollback to savepoint %s: %w", name, err)
	}
	if err := tx.Exec("RELEASE SAVEPOINT " + name).Error; err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}
