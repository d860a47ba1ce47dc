// Package storage provides the blob store holding profile imagery.
package storage

import (
	"context"
	"io"
)

// BlobStore stores uploaded objects and serves them by public URL.
type BlobStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}
