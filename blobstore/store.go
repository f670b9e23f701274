package blobstore

import (
	"context"
	"errors"
	"os"
)

var (
	// ErrNotFound is returned when a blob does not exist.
	//
	// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
	// The default maps to `os.ErrNotExist`.
	ErrNotFound = os.ErrNotExist

	// ErrExists is returned by PutIfNotExists when the blob is already present.
	ErrExists = errors.New("blobstore: blob already exists")
)

// Store is an abstraction over whole-object blob storage.
type Store interface {
	// Get reads a blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error
	// PutIfNotExists writes a blob only if name is unused.
	PutIfNotExists(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
