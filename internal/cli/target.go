package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/roach88/resttest/internal/departments"
	"github.com/roach88/resttest/internal/store"
	"github.com/roach88/resttest/pkg/resttest"
	"github.com/roach88/resttest/pkg/savepoint"
)

// Isolation modes for the in-process target.
const (
	IsolationSQL  = "sql"
	IsolationGorm = "gorm"
)

// TargetOptions selects where scenarios are sent.
type TargetOptions struct {
	// BaseURL sends scenarios to a running server. Scenarios are not
	// isolated; whatever they change stays changed.
	BaseURL string
	Timeout time.Duration

	// Without BaseURL the bundled departments service is served in-process
	// on DB (":memory:" when empty), seeded from Fixtures, inside one
	// transaction that is rolled back when the run ends.
	DB        string
	Fixtures  string
	Isolation string
}

// target is a prepared Runner together with whatever must be released when
// the run ends.
type target struct {
	runner  *resttest.Runner
	cleanup []func() error
}

func (t *target) Close() error {
	var first error
	for i := len(t.cleanup) - 1; i >= 0; i-- {
		if err := t.cleanup[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func openTarget(ctx context.Context, opts TargetOptions, logger *slog.Logger) (*target, error) {
	if opts.BaseURL != "" {
		logger.Debug("using remote target", "base_url", opts.BaseURL)
		return &target{runner: &resttest.Runner{
			Sender: &resttest.ClientSender{
				Client:  &http.Client{Timeout: opts.Timeout},
				BaseURL: opts.BaseURL,
			},
			Isolator: resttest.NoIsolation{},
			Logger:   logger,
		}}, nil
	}

	var fixtures []store.Department
	if opts.Fixtures != "" {
		var err error
		if fixtures, err = departments.LoadFixtures(opts.Fixtures); err != nil {
			return nil, err
		}
	}

	path := opts.DB
	if path == "" {
		path = ":memory:"
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	t := &target{cleanup: []func() error{st.Close}}

	var (
		tx  *sql.Tx
		iso resttest.Isolator
	)
	switch opts.Isolation {
	case "", IsolationSQL:
		if tx, err = st.BeginTx(ctx); err != nil {
			t.Close()
			return nil, err
		}
		t.cleanup = append(t.cleanup, tx.Rollback)
		iso = savepoint.NewSQL(tx)
	case IsolationGorm:
		gtx, err := beginGorm(ctx, st.DB())
		if err != nil {
			t.Close()
			return nil, err
		}
		t.cleanup = append(t.cleanup, func() error { return gtx.Rollback().Error })
		var ok bool
		if tx, ok = gtx.Statement.ConnPool.(*sql.Tx); !ok {
			t.Close()
			return nil, fmt.Errorf("gorm transaction is a %T, not *sql.Tx", gtx.Statement.ConnPool)
		}
		iso = savepoint.NewGorm(gtx)
	default:
		t.Close()
		return nil, fmt.Errorf("unknown isolation %q: must be %q or %q", opts.Isolation, IsolationSQL, IsolationGorm)
	}

	if err := departments.Seed(ctx, tx, fixtures); err != nil {
		t.Close()
		return nil, err
	}
	logger.Debug("using in-process target", "db", path, "fixtures", len(fixtures), "isolation", opts.Isolation)

	t.runner = &resttest.Runner{
		Sender:   &resttest.HandlerSender{Handler: departments.NewHandler(tx, nil, logger).Router()},
		Isolator: iso,
		Logger:   logger,
	}
	return t, nil
}

// beginGorm opens GORM over db and starts a transaction. The store limits
// db to one connection, so GORM and the handler share it.
func beginGorm(ctx context.Context, db *sql.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Dialector{Conn: db}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	gtx := gdb.WithContext(ctx).Begin()
	if gtx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", gtx.Error)
	}
	return gtx, nil
}
