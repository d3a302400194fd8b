package storage

import (
	"context"
	"io"
)

// Store is the document blob store consumed by the attachment workflow.
// Keys are opaque strings within type-scoped namespaces ("informes/...",
// "cadenas/..."). Put overwrites an existing key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
