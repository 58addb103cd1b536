package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"bookfetch/internal/ghrel"
)

// Local stores archives under a directory, one file per key.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, fmt.Errorf("local cache: dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local cache: mkdir %s: %w", dir, err)
	}
	return &Local{dir: dir}, nil
}

func (l *Local) path(key string) string {
	return filepath.Join(l.dir, filepath.FromSlash(key))
}

func (l *Local) Fetch(ctx context.Context, key string, w io.Writer) (bool, error) {
	f, err := os.Open(l.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return false, fmt.Errorf("read cached %s: %w", key, err)
	}
	return true, nil
}

func (l *Local) Store(ctx context.Context, key string, r io.Reader) error {
	return ghrel.WriteFileAtomically(l.path(key), func(f *os.File) error {
		_, err := io.Copy(f, r)
		return err
	})
}

func (l *Local) Close() error { return nil }
