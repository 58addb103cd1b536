package cmd

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func bookArchive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	body := "<h1>kinode book</h1>"
	if err := tw.WriteHeader(&tar.Header{Name: "index.html", Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	tw.Close()
	gz.Close()
	return buf.Bytes()
}

func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	archive := bookArchive(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/kinode-dao/kinode-book/releases", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"tag_name":"v0.3.0","assets":[{"name":"book.tar.gz"}]}]`))
	})
	mux.HandleFunc("/kinode-dao/kinode-book/releases/download/v0.3.0/book.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	_, err := rootCmd.ExecuteC()
	return out.String(), err
}

func TestRootFetchesConfiguredBooks(t *testing.T) {
	srv := fakeGitHub(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "docs", "pkg", "ui")
	ledgerPath := filepath.Join(dir, "state", "ledger.db")

	cfgPath := filepath.Join(dir, "bookfetch.yaml")
	body := fmt.Sprintf(`
github:
  api_url: %[1]s
  download_url: %[1]s
books:
  - name: docs
    owner: kinode-dao
    project: kinode-book
    target_dir: %[2]s
    expected_asset: book.tar.gz
    clean: true
ledger:
  path: %[3]s
`, srv.URL, target, ledgerPath)
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "--config", cfgPath, "--no-tui"); err != nil {
		t.Fatalf("root command error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(target, "index.html"))
	if err != nil || !strings.Contains(string(data), "kinode book") {
		t.Fatalf("index.html = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(target, "book.tar.gz")); !os.IsNotExist(err) {
		t.Errorf("archive left in target: %v", err)
	}

	out, err := run(t, "history", "--config", cfgPath)
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "v0.3.0") || !strings.Contains(out, "kinode-dao/kinode-book") {
		t.Errorf("history output = %q", out)
	}
}

func TestListReleases(t *testing.T) {
	srv := fakeGitHub(t)
	out, err := run(t, "releases", "--owner", "kinode-dao", "--project", "kinode-book", "--api-url", srv.URL,
		"--config", filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("releases error = %v", err)
	}
	if strings.TrimSpace(out) != "v0.3.0\tbook.tar.gz" {
		t.Errorf("releases output = %q", out)
	}
}
