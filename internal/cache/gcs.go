package cache

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores archives in a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCS(ctx context.Context, opts Options) (*GCS, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("gcs cache: bucket is empty")
	}

	var clientOpts []option.ClientOption
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
		clientOpts = append(clientOpts, option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gcs cache: %w", err)
	}
	return &GCS{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (g *GCS) Fetch(ctx context.Context, key string, w io.Writer) (bool, error) {
	rc, err := g.client.Bucket(g.bucket).Object(objectKey(g.prefix, key)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer rc.Close()

	if _, err := io.Copy(w, rc); err != nil {
		return false, fmt.Errorf("read gcs object %s: %w", key, err)
	}
	return true, nil
}

func (g *GCS) Store(ctx context.Context, key string, r io.Reader) error {
	wc := g.client.Bucket(g.bucket).Object(objectKey(g.prefix, key)).NewWriter(ctx)
	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return err
	}
	return wc.Close()
}

func (g *GCS) Close() error {
	return g.client.Close()
}
