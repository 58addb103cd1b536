package cmd

import (
	"context"
	"fmt"

	"bookfetch/config"
	"bookfetch/internal/cache"
	"bookfetch/internal/fetcher"
	"bookfetch/internal/ghrel"
	"bookfetch/internal/ledger"
	"bookfetch/internal/logger"
	"bookfetch/internal/releases"
)

func newSource(c *config.Config) (releases.Source, error) {
	client, err := ghrel.NewClient(ghrel.Options{
		APIBaseURL:      c.GitHub.APIURL,
		DownloadBaseURL: c.GitHub.DownloadURL,
		Token:           c.GitHub.Token,
		Timeout:         c.GitHub.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return releases.NewGitHubSource(client), nil
}

// newFetcher assembles a Fetcher from config. The returned func releases the
// cache and ledger and must be called once the fetcher is done.
func newFetcher(ctx context.Context, c *config.Config) (*fetcher.Fetcher, func(), error) {
	policy, err := fetcher.ParsePolicy(c.Policy)
	if err != nil {
		return nil, nil, err
	}

	src, err := newSource(c)
	if err != nil {
		return nil, nil, err
	}

	f := &fetcher.Fetcher{
		Source:        src,
		Policy:        policy,
		SkipUnchanged: c.Ledger.SkipUnchanged,
	}

	var closers []func() error

	ac, err := cache.Open(ctx, cache.Options{
		Backend:  c.Cache.Backend,
		Dir:      c.Cache.Dir,
		Bucket:   c.Cache.Bucket,
		Prefix:   c.Cache.Prefix,
		Region:   c.Cache.Region,
		Endpoint: c.Cache.Endpoint,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open archive cache: %w", err)
	}
	if ac != nil {
		f.Cache = ac
		closers = append(closers, ac.Close)
	}

	if c.Ledger.Path != "" {
		l, err := ledger.Open(c.Ledger.Path)
		if err != nil {
			for _, fn := range closers {
				_ = fn()
			}
			return nil, nil, err
		}
		f.Ledger = l
		closers = append(closers, l.Close)
	}

	closeFn := func() {
		for _, fn := range closers {
			if err := fn(); err != nil {
				logger.Log.Warn("close", "err", err)
			}
		}
	}
	return f, closeFn, nil
}

func requestFor(b config.Book) fetcher.Request {
	return fetcher.Request{
		Book:          b.Name,
		Owner:         b.Owner,
		Project:       b.Project,
		TargetDir:     b.TargetDir,
		ExpectedAsset: b.ExpectedAsset,
		Clean:         b.Clean,
	}
}
