// Package ledger records which release populated each target directory, so
// unchanged books can be skipped on the next build.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/google/uuid"
)

const bucketFetches = "fetches"

// Record describes one completed fetch.
type Record struct {
	RunID     string    `json:"run_id"`
	Book      string    `json:"book,omitempty"`
	Owner     string    `json:"owner"`
	Project   string    `json:"project"`
	Tag       string    `json:"tag"`
	Asset     string    `json:"asset"`
	TargetDir string    `json:"target_dir"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Ledger is a bolt-backed store of Records keyed by absolute target dir.
type Ledger struct {
	db *bolt.DB
}

// Open opens (creating if needed) the ledger file at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create the ledger folder for '%s': %w", path, err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open the ledger '%s': %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketFetches))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create the bucket '%s': %w", bucketFetches, err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func key(targetDir string) ([]byte, error) {
	abs, err := filepath.Abs(targetDir)
	if err != nil {
		return nil, err
	}
	return []byte(abs), nil
}

// Put stores rec under its target dir, assigning a RunID and FetchedAt when
// they are unset. It returns the stored record.
func (l *Ledger) Put(rec Record) (Record, error) {
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = time.Now().UTC()
	}
	k, err := key(rec.TargetDir)
	if err != nil {
		return rec, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return rec, err
	}
	err = l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketFetches)).Put(k, data)
	})
	return rec, err
}

// Get returns the record for targetDir. ok is false when none exists.
func (l *Ledger) Get(targetDir string) (rec Record, ok bool, err error) {
	k, err := key(targetDir)
	if err != nil {
		return rec, false, err
	}
	err = l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketFetches)).Get(k)
		if v == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(v, &rec)
	})
	return rec, ok, err
}

// Delete drops the record for targetDir, if any.
func (l *Ledger) Delete(targetDir string) error {
	k, err := key(targetDir)
	if err != nil {
		return err
	}
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketFetches)).Delete(k)
	})
}

// List returns every record ordered by target dir.
func (l *Ledger) List() ([]Record, error) {
	var out []Record
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketFetches)).ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}
