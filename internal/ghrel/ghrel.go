package ghrel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
)

const (
	// DefaultAPIBaseURL is the GitHub REST API root.
	DefaultAPIBaseURL = "https://api.github.com/"

	// DefaultDownloadBaseURL is the host serving release asset downloads.
	DefaultDownloadBaseURL = "https://github.com"
)

// Options configures a Client. Zero values fall back to the public GitHub
// endpoints and a one minute request timeout.
type Options struct {
	APIBaseURL      string
	DownloadBaseURL string
	Token           string
	Timeout         time.Duration
	PerPage         int
}

// Client talks to the GitHub Releases API and the release download host.
type Client struct {
	gh           *github.Client
	http         *http.Client
	downloadBase string
	token        string
	perPage      int
}

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	gh := github.NewClient(httpClient)
	if opts.Token != "" {
		gh = gh.WithAuthToken(opts.Token)
	}

	apiBase := opts.APIBaseURL
	if apiBase == "" {
		apiBase = DefaultAPIBaseURL
	}
	if !strings.HasSuffix(apiBase, "/") {
		apiBase += "/"
	}
	u, err := url.Parse(apiBase)
	if err != nil {
		return nil, fmt.Errorf("parse api base url %q: %w", apiBase, err)
	}
	gh.BaseURL = u

	downloadBase := opts.DownloadBaseURL
	if downloadBase == "" {
		downloadBase = DefaultDownloadBaseURL
	}

	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 30
	}

	return &Client{
		gh:           gh,
		http:         httpClient,
		downloadBase: strings.TrimRight(downloadBase, "/"),
		token:        opts.Token,
		perPage:      perPage,
	}, nil
}

// ListReleases fetches the first page of published releases for owner/project.
// GitHub orders releases newest first; drafts are dropped.
func (c *Client) ListReleases(ctx context.Context, owner, project string) ([]*github.RepositoryRelease, error) {
	rels, _, err := c.gh.Repositories.ListReleases(ctx, owner, project, &github.ListOptions{PerPage: c.perPage})
	if err != nil {
		return nil, fmt.Errorf("list releases for %s/%s: %w", owner, project, err)
	}

	out := rels[:0]
	for _, r := range rels {
		if r.GetDraft() {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// DownloadURL builds the public download URL of a release asset:
//
//	<base>/<owner>/<project>/releases/download/<tag>/<asset>
func DownloadURL(base, owner, project, tag, assetName string) string {
	return fmt.Sprintf("%s/%s/%s/releases/download/%s/%s",
		strings.TrimRight(base, "/"),
		url.PathEscape(owner),
		url.PathEscape(project),
		url.PathEscape(tag),
		url.PathEscape(assetName),
	)
}

// ErrLocalWrite marks failures writing a download to disk, as opposed to
// failures fetching it.
var ErrLocalWrite = errors.New("ghrel: local write failed")

// DownloadReleaseAsset downloads a release asset and writes it to outPath.
//
// If outPath is empty, assetName is used as the destination filename.
func (c *Client) DownloadReleaseAsset(ctx context.Context, owner, project, tag, assetName, outPath string) error {
	if outPath == "" && assetName == "" {
		return fmt.Errorf("outPath is empty")
	}
	if outPath == "" {
		outPath = assetName
	}

	downloadURL := DownloadURL(c.downloadBase, owner, project, tag, assetName)
	return WriteFileAtomically(outPath, func(f *os.File) error {
		return c.stream(ctx, downloadURL, f)
	})
}

// stream copies the body at rawURL into w. Errors from w carry ErrLocalWrite.
func (c *Client) stream(ctx context.Context, rawURL string, w io.Writer) error {
	req, err := c.newDownloadRequest(ctx, rawURL)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("download asset: status=%s body=%s", resp.Status, string(b))
	}

	if _, err := io.Copy(localWriter{w}, resp.Body); err != nil {
		return fmt.Errorf("stream asset: %w", err)
	}
	return nil
}

// newDownloadRequest builds the asset GET. The token rides on the first
// request only; GitHub redirects to a storage host that would reject it.
func (c *Client) newDownloadRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/octet-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

type localWriter struct {
	w io.Writer
}

func (lw localWriter) Write(p []byte) (int, error) {
	n, err := lw.w.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrLocalWrite, err)
	}
	return n, nil
}

// WriteFileAtomically writes outPath through a temp file in the same
// directory that is renamed into place once write succeeds. Filesystem
// failures wrap ErrLocalWrite; errors from write are returned unchanged.
func WriteFileAtomically(outPath string, write func(f *os.File) error) error {
	if outPath == "" {
		return fmt.Errorf("%w: outPath is empty", ErrLocalWrite)
	}

	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %w", ErrLocalWrite, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrLocalWrite, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync temp file: %w", ErrLocalWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %w", ErrLocalWrite, err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return fmt.Errorf("%w: rename temp file: %w", ErrLocalWrite, err)
	}
	return nil
}
