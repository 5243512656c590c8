package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/resttest/internal/departments"
	"github.com/roach88/resttest/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr     string
	DB       string
	Fixtures string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the departments API",
		Long: `Serve the bundled departments API over HTTP, for running suites with
--base-url or trying requests by hand. Fixtures are seeded only into an
empty database.

Examples:
  resttest serve --addr :8080
  resttest serve --db departments.db --fixtures fixtures.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.DB, "db", ":memory:", "SQLite database path")
	cmd.Flags().StringVar(&opts.Fixtures, "fixtures", "", "YAML file of departments to seed")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := out.loggerAt(slog.LevelInfo)

	st, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open database", err)
	}
	defer st.Close()

	if err := seedIfEmpty(ctx, st, opts.Fixtures, logger); err != nil {
		return WrapExitError(ExitCommandError, "cannot seed fixtures", err)
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot listen", err)
	}

	handler := departments.NewHandler(st.DB(), nil, logger).Router()
	return serve(ctx, ln, handler, logger)
}

func seedIfEmpty(ctx context.Context, st *store.Store, fixtures string, logger *slog.Logger) error {
	if fixtures == "" {
		return nil
	}
	deps, err := departments.LoadFixtures(fixtures)
	if err != nil {
		return err
	}
	n, err := st.Departments().Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("database not empty, fixtures skipped", "departments", n)
		return nil
	}
	if err := departments.Seed(ctx, st.DB(), deps); err != nil {
		return err
	}
	logger.Info("fixtures seeded", "departments", len(deps))
	return nil
}

// serve runs an HTTP server on ln until ctx is done, then shuts it down
// gracefully.
func serve(ctx context.Context, ln net.Listener, h http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
