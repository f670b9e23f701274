// Package blobtest provides a conformance suite for blobstore.Store
// implementations.
package blobtest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lshvec/blobstore"
)

// Run executes the suite against a fresh store per case.
func Run(t *testing.T, newStore func(t *testing.T) blobstore.Store) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		_, err := newStore(t).Get(context.Background(), "nope")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("PutGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		data := []byte("hello world")
		require.NoError(t, s.Put(ctx, "configs/a.lshc", data))
		data[0] = 'H'

		got, err := s.Get(ctx, "configs/a.lshc")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello world"), got)

		require.NoError(t, s.Put(ctx, "configs/a.lshc", []byte("v2")))
		got, err = s.Get(ctx, "configs/a.lshc")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("PutIfNotExists", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.PutIfNotExists(ctx, "x", []byte("first")))
		assert.ErrorIs(t, s.PutIfNotExists(ctx, "x", []byte("second")), blobstore.ErrExists)

		got, err := s.Get(ctx, "x")
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), got)
	})

	t.Run("DeleteList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, name := range []string{"configs/b", "configs/a", "other/c"} {
			require.NoError(t, s.Put(ctx, name, []byte(name)))
		}

		names, err := s.List(ctx, "configs/")
		require.NoError(t, err)
		assert.Equal(t, []string{"configs/a", "configs/b"}, names)

		require.NoError(t, s.Delete(ctx, "configs/a"))
		require.NoError(t, s.Delete(ctx, "configs/a"))
		_, err = s.Get(ctx, "configs/a")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)

		names, err = s.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"configs/b", "other/c"}, names)
	})
}

// RunAtomicCreate checks that concurrent PutIfNotExists calls for one name
// have exactly one winner.
func RunAtomicCreate(t *testing.T, newStore func(t *testing.T) blobstore.Store) {
	t.Helper()
	s := newStore(t)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.PutIfNotExists(ctx, "race", []byte("x"))
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, blobstore.ErrExists), "unexpected error: %v", err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
