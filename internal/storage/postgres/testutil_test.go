package postgres

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testImage = "postgres:15-alpine"

// newTestPool starts a throwaway Postgres, applies the ledger schema and
// registers teardown with t.Cleanup. Skipped under -short.
func newTestPool(t *testing.T) *Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres store tests need docker; skipped with -short")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, testImage,
		postgres.WithDatabase("sniper"),
		postgres.WithUsername("sniper"),
		postgres.WithPassword("sniper"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "start %s", testImage)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applySchema(t, ctx, pool)
	return pool
}

// applySchema runs the ledger and opportunity migrations in one transaction.
// The store package cannot import the migrations package in tests, so the
// .sql files are read from disk next to this file.
func applySchema(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	_, self, _, ok := runtime.Caller(0)
	require.True(t, ok, "locate test source")
	schema := os.DirFS(filepath.Join(filepath.Dir(self), "..", "migrations", "postgres"))

	files, err := fs.Glob(schema, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files, "no schema files found")

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	// fs.Glob returns names in lexical order
	for _, name := range files {
		body, err := fs.ReadFile(schema, name)
		require.NoError(t, err, name)
		_, err = tx.Exec(ctx, string(body))
		require.NoError(t, err, "apply %s", name)
	}
	require.NoError(t, tx.Commit(ctx))
}

func ptr[T any](v T) *T {
	return &v
}
