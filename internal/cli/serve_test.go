package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/resttest/internal/departments"
	"github.com/roach88/resttest/internal/store"
)

func TestServe_ServesUntilCanceled(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, seedIfEmpty(context.Background(), st, exampleFixtures, slog.New(slog.NewTextHandler(io.Discard, nil))))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, departments.NewHandler(st.DB(), nil, nil).Router(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/departments/00000000-0000-7000-8000-000000000001")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"00000000-0000-7000-8000-000000000001","title":"department-1"}`, string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	require.NoError(t, seedIfEmpty(ctx, st, exampleFixtures, logger))
	require.NoError(t, seedIfEmpty(ctx, st, exampleFixtures, logger))

	n, err := st.Departments().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, logs.String(), "fixtures skipped")
}

func TestServe_CommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad database path", []string{"--db", "/nonexistent/dir/test.db"}},
		{"missing fixtures", []string{"--fixtures", "/nonexistent/fixtures.yaml"}},
		{"bad address", []string{"--addr", "256.0.0.1:bad"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewServeCommand(&RootOptions{Format: "text"})
			buf := &bytes.Buffer{}
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}
