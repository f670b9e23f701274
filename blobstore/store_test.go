package blobstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lshvec/blobstore"
	"github.com/hupe1980/lshvec/blobstore/blobtest"
)

func TestMemoryStore(t *testing.T) {
	blobtest.Run(t, func(t *testing.T) blobstore.Store {
		return blobstore.NewMemoryStore()
	})
}

func TestMemoryStoreAtomicCreate(t *testing.T) {
	blobtest.RunAtomicCreate(t, func(t *testing.T) blobstore.Store {
		return blobstore.NewMemoryStore()
	})
}

func TestLocalStore(t *testing.T) {
	blobtest.Run(t, func(t *testing.T) blobstore.Store {
		return blobstore.NewLocalStore(t.TempDir())
	})
}

func TestLocalStoreAtomicCreate(t *testing.T) {
	blobtest.RunAtomicCreate(t, func(t *testing.T) blobstore.Store {
		return blobstore.NewLocalStore(t.TempDir())
	})
}

func TestLocalStoreLayout(t *testing.T) {
	root := t.TempDir()
	s := blobstore.NewLocalStore(root)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "configs/idx.lshc", []byte("x")))
	data, err := os.ReadFile(filepath.Join(root, "configs", "idx.lshc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Join(root, "configs"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStoreRejectsEscapingNames(t *testing.T) {
	s := blobstore.NewLocalStore(t.TempDir())
	ctx := context.Background()

	assert.Error(t, s.Put(ctx, "../evil", []byte("x")))
	_, err := s.Get(ctx, "/etc/passwd")
	assert.Error(t, err)
}

func TestLocalStoreListMissingRoot(t *testing.T) {
	s := blobstore.NewLocalStore(filepath.Join(t.TempDir(), "missing"))
	names, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}
