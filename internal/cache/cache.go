// Package cache keeps downloaded release archives so repeated builds can skip
// the release download. Backends: a local directory, S3, or GCS.
package cache

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

// Cache stores release archives by key.
type Cache interface {
	// Fetch copies the object stored under key into w. It reports false,
	// with a nil error, when the key is absent.
	Fetch(ctx context.Context, key string, w io.Writer) (bool, error)
	Store(ctx context.Context, key string, r io.Reader) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Backend is one of "", "none", "local", "s3", "gcs".
	Backend string
	// Dir is the root directory of the local backend.
	Dir string
	// Bucket and Prefix locate objects for the s3 and gcs backends.
	Bucket string
	Prefix string
	// Region and Endpoint configure the s3 backend; Endpoint also
	// overrides the gcs API host.
	Region   string
	Endpoint string
}

var Backends = []string{"none", "local", "s3", "gcs"}

// Open returns the configured backend, or nil when caching is disabled.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "none":
		return nil, nil
	case "local":
		return NewLocal(opts.Dir)
	case "s3":
		return NewS3(ctx, opts)
	case "gcs":
		return NewGCS(ctx, opts)
	default:
		return nil, fmt.Errorf("cache backend %q not supported. Supported only '%v'", opts.Backend, Backends)
	}
}

// Key builds the object key of a release asset.
func Key(owner, project, tag, asset string) string {
	return path.Join(owner, project, tag, asset)
}

func objectKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}
