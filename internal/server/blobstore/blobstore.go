// Package blobstore is the gateway's view of the object store: atomic
// per-key writes, reads, and prefix listing.
package blobstore

import (
	"context"
	"io"
)

// Store is implemented by S3Store and MemoryStore.
//
// Put either makes the whole object visible under key or nothing at all.
// Get returns common.ErrorNotFound when key is absent; the caller closes the
// returned reader. List returns every key starting with prefix, never nil.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
}
