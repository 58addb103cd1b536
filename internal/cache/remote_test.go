package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// objectStore is an in-memory bucket shared by the fake S3 and GCS servers.
type objectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newObjectStore() *objectStore {
	return &objectStore{objects: map[string][]byte{}}
}

func (s *objectStore) get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[name]
	return b, ok
}

func (s *objectStore) put(name string, b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[name] = b
}

// newS3Server serves path-style GetObject and PutObject for one bucket.
func newS3Server(t *testing.T, bucket string, store *objectStore) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := strings.CutPrefix(r.URL.Path, "/"+bucket+"/")
		if !ok {
			http.Error(w, "unknown bucket", http.StatusBadRequest)
			return
		}
		switch r.Method {
		case http.MethodGet:
			body, found := store.get(name)
			if !found {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>%s</Key></Error>`, name)
				return
			}
			w.Header().Set("Content-Length", fmt.Sprint(len(body)))
			_, _ = w.Write(body)
		case http.MethodPut:
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			store.put(name, body)
			w.Header().Set("ETag", `"etag"`)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newGCSServer serves XML API reads and JSON API multipart uploads for one
// bucket, the two calls the storage client makes through an emulator host.
func newGCSServer(t *testing.T, bucket string, store *objectStore) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/"+bucket+"/"):
			name := strings.TrimPrefix(r.URL.Path, "/"+bucket+"/")
			body, found := store.get(name)
			if !found {
				http.Error(w, "No such object", http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Length", fmt.Sprint(len(body)))
			w.Header().Set("X-Goog-Generation", "1")
			w.Header().Set("X-Goog-Metageneration", "1")
			_, _ = w.Write(body)

		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/upload/storage/v1/b/"+bucket+"/o"):
			name, body, err := readMultipartUpload(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			store.put(name, body)
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"bucket":     bucket,
				"name":       name,
				"size":       fmt.Sprint(len(body)),
				"generation": "1",
			})

		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func readMultipartUpload(r *http.Request) (string, []byte, error) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return "", nil, err
	}
	mr := multipart.NewReader(r.Body, params["boundary"])

	meta, err := mr.NextPart()
	if err != nil {
		return "", nil, err
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(meta).Decode(&obj); err != nil {
		return "", nil, err
	}

	media, err := mr.NextPart()
	if err != nil {
		return "", nil, err
	}
	body, err := io.ReadAll(media)
	return obj.Name, body, err
}

func isolateAWS(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_SESSION_TOKEN", "")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
}

func exerciseRemote(t *testing.T, c Cache, store *objectStore, prefix string) {
	t.Helper()
	ctx := context.Background()
	key := Key("acme", "book", "v1.0.0", "book.tar.gz")

	var buf bytes.Buffer
	ok, err := c.Fetch(ctx, key, &buf)
	if err != nil || ok {
		t.Fatalf("Fetch() on empty bucket = %v, %v; want false, nil", ok, err)
	}

	if err := c.Store(ctx, key, bytes.NewReader([]byte("archive bytes"))); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if got, found := store.get(objectKey(prefix, key)); !found || string(got) != "archive bytes" {
		t.Fatalf("stored object = %q, %v; want archive bytes under %s", got, found, objectKey(prefix, key))
	}

	buf.Reset()
	ok, err = c.Fetch(ctx, key, &buf)
	if err != nil || !ok {
		t.Fatalf("Fetch() = %v, %v; want true, nil", ok, err)
	}
	if buf.String() != "archive bytes" {
		t.Errorf("Fetch() content = %q", buf.String())
	}
}

func TestS3StoreFetch(t *testing.T) {
	isolateAWS(t)
	store := newObjectStore()
	srv := newS3Server(t, "books", store)

	c, err := Open(context.Background(), Options{
		Backend:  "s3",
		Bucket:   "books",
		Prefix:   "ci",
		Region:   "us-east-1",
		Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("Open(s3) error = %v", err)
	}
	defer c.Close()

	exerciseRemote(t, c, store, "ci")
}

func TestS3FetchServerErrorIsNotMiss(t *testing.T) {
	isolateAWS(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `<Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
	}))
	defer srv.Close()

	c, err := NewS3(context.Background(), Options{Bucket: "books", Region: "us-east-1", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewS3() error = %v", err)
	}
	ok, err := c.Fetch(context.Background(), "acme/book/v1/book.tar.gz", io.Discard)
	if err == nil || ok {
		t.Fatalf("Fetch() = %v, %v; want false, error", ok, err)
	}
}

func TestGCSStoreFetch(t *testing.T) {
	store := newObjectStore()
	srv := newGCSServer(t, "books", store)
	t.Setenv("STORAGE_EMULATOR_HOST", srv.Listener.Addr().String())

	c, err := Open(context.Background(), Options{Backend: "gcs", Bucket: "books", Prefix: "ci"})
	if err != nil {
		t.Fatalf("Open(gcs) error = %v", err)
	}
	defer c.Close()

	exerciseRemote(t, c, store, "ci")
}
