package integration_test

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lshvec"
	"github.com/hupe1980/lshvec/catalog"
	"github.com/hupe1980/lshvec/kvstore"
	"github.com/hupe1980/lshvec/kvstore/badger"
	"github.com/hupe1980/lshvec/kvstore/pebble"
	"github.com/hupe1980/lshvec/kvstore/sqlite"
)

const catalogTable = "lshvec_catalog"

// backend opens a table provider rooted at dir. Persistent backends return
// the same data when opened again on the same dir after close.
type backend struct {
	name       string
	persistent bool
	open       func(t *testing.T, dir string) (kvstore.Provider, func())
}

// closeOnce closes c at most once, either through the returned func or on
// test cleanup.
func closeOnce(t *testing.T, c io.Closer) func() {
	var once sync.Once
	fn := func() {
		once.Do(func() { require.NoError(t, c.Close()) })
	}
	t.Cleanup(fn)
	return fn
}

var backends = []backend{
	{
		name: "memory",
		open: func(*testing.T, string) (kvstore.Provider, func()) {
			return kvstore.NewMemoryProvider(), func() {}
		},
	},
	{
		name:       "pebble",
		persistent: true,
		open: func(t *testing.T, dir string) (kvstore.Provider, func()) {
			db, err := pebble.Open(filepath.Join(dir, "pebble"), pebble.Options{NoSync: true})
			require.NoError(t, err)
			return db, closeOnce(t, db)
		},
	},
	{
		name:       "badger",
		persistent: true,
		open: func(t *testing.T, dir string) (kvstore.Provider, func()) {
			db, err := badger.Open(badger.Options{Dir: filepath.Join(dir, "badger")})
			require.NoError(t, err)
			return db, closeOnce(t, db)
		},
	},
	{
		name:       "sqlite",
		persistent: true,
		open: func(t *testing.T, dir string) (kvstore.Provider, func()) {
			db, err := sqlite.Open(filepath.Join(dir, "lshvec.db"))
			require.NoError(t, err)
			return db, closeOnce(t, db)
		},
	},
}

// openDB opens a DB whose catalog lives in the provider itself.
func openDB(t *testing.T, tables kvstore.Provider, opts ...lshvec.Option) *lshvec.DB {
	t.Helper()
	table, err := tables.Table(context.Background(), catalogTable)
	require.NoError(t, err)
	db, err := lshvec.Open(tables, catalog.NewKVStore(table), opts...)
	require.NoError(t, err)
	return db
}

func vectors(ids []string, data [][]float32) []lshvec.Vector {
	out := make([]lshvec.Vector, len(ids))
	for i := range ids {
		out[i] = lshvec.Vector{ID: ids[i], Values: data[i]}
	}
	return out
}
