package badger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lshvec/kvstore"
	"github.com/hupe1980/lshvec/kvstore/storetest"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func openInMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Options{InMemory: true, Logger: quiet})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) kvstore.Store {
		s, err := openInMemory(t).Store("test")
		require.NoError(t, err)
		return s
	})
}

func TestProviderConformance(t *testing.T) {
	storetest.RunProvider(t, func(t *testing.T) kvstore.Provider {
		return openInMemory(t)
	})
}

func TestOpenRequiresDir(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

func TestOnDiskReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(Options{Dir: dir, Logger: quiet})
	require.NoError(t, err)
	s, err := db.Store("buckets")
	require.NoError(t, err)
	require.NoError(t, s.UnionColumn(ctx, "0:ff", "ids", []string{"a", "b"}))
	require.NoError(t, db.Close())

	db, err = Open(Options{Dir: dir, Logger: quiet})
	require.NoError(t, err)
	defer db.Close()
	s, err = db.Store("buckets")
	require.NoError(t, err)

	got, err := s.Get(ctx, "0:ff")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Set("ids"))
}
