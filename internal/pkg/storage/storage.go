// Package storage keeps FILE channel deliveries in an object store.
// Objects are written once, read back by key, and removed in bulk by prefix
// when their owner goes away.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when the object does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// Storage defines object storage operations.
type Storage interface {
	io.Closer

	// PutObject stores data and returns object metadata.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error)
	// GetObject retrieves data and metadata for the object.
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	// ListObjects lists every object under prefix in key order.
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	// DeletePrefix removes every object under prefix and reports how many
	// were removed, including on a partial failure.
	DeletePrefix(ctx context.Context, bucket, prefix string) (int, error)
}

// PutOptions configures upload behavior.
type PutOptions struct {
	// Size is the expected content length; zero lets the backend find out.
	Size        int64
	ContentType string
}

// ObjectInfo describes object metadata.
type ObjectInfo struct {
	Bucket      string
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
}
