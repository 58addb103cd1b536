// Package fetcher downloads the newest release archive of a project and
// unpacks it into a target directory.
//
// A fetch is a straight line: list releases, pick the newest release and the
// expected asset (falling back to the first asset), optionally wipe the
// target directory, download the archive into it, extract, and delete the
// archive. Nothing is written to disk before a release and asset are chosen.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bookfetch/internal/archive"
	"bookfetch/internal/cache"
	"bookfetch/internal/ghrel"
	"bookfetch/internal/ledger"
	"bookfetch/internal/logger"
	"bookfetch/internal/releases"

	"github.com/charmbracelet/log"
)

// Request names one book to fetch.
type Request struct {
	// Book is a display name used in logs and the ledger.
	Book          string
	Owner         string
	Project       string
	TargetDir     string
	ExpectedAsset string
	// Clean removes TargetDir before the archive is downloaded into it.
	Clean bool
}

func (r Request) label() string {
	if r.Book != "" {
		return r.Book
	}
	return r.Owner + "/" + r.Project
}

// Result describes a finished fetch.
type Result struct {
	Book      string
	Tag       string
	Asset     string
	TargetDir string
	// FellBack is set when the expected asset was missing and the first
	// asset was used instead.
	FellBack bool
	// FromCache is set when the archive came from the archive cache.
	FromCache bool
	// Skipped is set when the ledger showed TargetDir already holds this
	// tag and asset.
	Skipped bool
}

// Fetcher runs fetches. Source is required; everything else is optional.
type Fetcher struct {
	Source releases.Source
	Policy Policy

	// Cache, when set, is consulted before downloading and filled after.
	Cache cache.Cache

	// Ledger, when set, records every completed fetch. With SkipUnchanged
	// it also short-circuits fetches of an already populated release.
	Ledger        *ledger.Ledger
	SkipUnchanged bool

	// Logger defaults to logger.Log.
	Logger *log.Logger

	// OnStage, when set, is called as the fetch advances.
	OnStage func(Event)
}

func (f *Fetcher) lg() *log.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return logger.Log
}

func (f *Fetcher) emit(req Request, stage Stage, detail string) {
	if f.OnStage != nil {
		f.OnStage(Event{Book: req.label(), Stage: stage, Detail: detail})
	}
}

// Fetch runs the full sequence for req.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (Result, error) {
	res := Result{Book: req.label(), TargetDir: req.TargetDir}
	l := f.lg().With("book", req.label())

	if req.TargetDir == "" {
		return res, fmt.Errorf("%w: target directory is empty", ErrFilesystem)
	}
	if req.Clean {
		if err := checkCleanTarget(req.TargetDir); err != nil {
			return res, fmt.Errorf("%w: refusing to clean: %w", ErrFilesystem, err)
		}
	}

	f.emit(req, StageListing, req.Owner+"/"+req.Project)
	rels, err := f.Source.ListReleases(ctx, req.Owner, req.Project)
	if err != nil {
		return res, fmt.Errorf("%w: list releases: %w", ErrNetwork, err)
	}

	rel, err := SelectRelease(rels, f.Policy)
	if err != nil {
		return res, fmt.Errorf("%w for %s/%s", err, req.Owner, req.Project)
	}
	if len(rel.Assets) == 0 {
		return res, fmt.Errorf("%w: %s/%s %s", ErrNoAssetsInRelease, req.Owner, req.Project, rel.Tag)
	}

	asset, fellBack := SelectAsset(rel, req.ExpectedAsset)
	if fellBack {
		l.Warn("expected asset not in release; falling back to first asset",
			"expected", req.ExpectedAsset, "using", asset.Name, "tag", rel.Tag)
	}
	res.Tag, res.Asset, res.FellBack = rel.Tag, asset.Name, fellBack
	f.emit(req, StageSelected, rel.Tag+" "+asset.Name)

	archiveName := filepath.Base(asset.Name)
	if archiveName == "." || archiveName == ".." || archiveName == string(filepath.Separator) {
		return res, fmt.Errorf("%w: unusable asset name %q", ErrFilesystem, asset.Name)
	}

	if f.unchanged(req, rel.Tag, asset.Name) {
		l.Info("target already holds this release; skipping", "tag", rel.Tag, "dir", req.TargetDir)
		res.Skipped = true
		f.emit(req, StageDone, "unchanged")
		return res, nil
	}

	if req.Clean {
		f.emit(req, StageCleaning, req.TargetDir)
		if err := os.RemoveAll(req.TargetDir); err != nil {
			return res, fmt.Errorf("%w: clean %s: %w", ErrFilesystem, req.TargetDir, err)
		}
	}
	if err := os.MkdirAll(req.TargetDir, 0o755); err != nil {
		return res, fmt.Errorf("%w: create %s: %w", ErrFilesystem, req.TargetDir, err)
	}

	archivePath := filepath.Join(req.TargetDir, archiveName)
	key := cache.Key(req.Owner, req.Project, rel.Tag, asset.Name)

	f.emit(req, StageDownloading, archiveName)
	res.FromCache = f.fromCache(ctx, l, key, archivePath)
	if !res.FromCache {
		l.Debug("downloading", "tag", rel.Tag, "asset", asset.Name)
		if err := f.Source.DownloadAsset(ctx, req.Owner, req.Project, rel.Tag, asset.Name, archivePath); err != nil {
			if errors.Is(err, ghrel.ErrLocalWrite) {
				return res, fmt.Errorf("%w: write %s: %w", ErrFilesystem, archivePath, err)
			}
			return res, fmt.Errorf("%w: download %s: %w", ErrNetwork, asset.Name, err)
		}
		f.toCache(ctx, l, key, archivePath)
	}

	f.emit(req, StageExtracting, req.TargetDir)
	if err := archive.ExtractTarGz(archivePath, req.TargetDir); err != nil {
		_ = os.Remove(archivePath)
		return res, fmt.Errorf("%w: extract %s: %w", ErrExtraction, archiveName, err)
	}

	if err := os.Remove(archivePath); err != nil {
		return res, fmt.Errorf("%w: remove %s: %w", ErrFilesystem, archivePath, err)
	}

	f.record(l, req, res)
	f.emit(req, StageDone, rel.Tag)
	l.Info("fetched", "tag", rel.Tag, "asset", asset.Name, "dir", req.TargetDir, "cached", res.FromCache)
	return res, nil
}

// FetchAll runs reqs one after another and stops at the first failure.
func (f *Fetcher) FetchAll(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, 0, len(reqs))
	for _, req := range reqs {
		res, err := f.Fetch(ctx, req)
		if err != nil {
			return results, fmt.Errorf("%s: %w", req.label(), err)
		}
		results = append(results, res)
	}
	return results, nil
}

// checkCleanTarget rejects a clean of the filesystem root or of any
// directory holding the working directory or the home directory.
func checkCleanTarget(dir string) error {
	target, err := realAbs(dir)
	if err != nil {
		return err
	}
	if target == filepath.VolumeName(target)+string(filepath.Separator) {
		return fmt.Errorf("%s is the filesystem root", dir)
	}

	var protected []string
	if wd, err := os.Getwd(); err == nil {
		protected = append(protected, wd)
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		protected = append(protected, home)
	}
	for _, p := range protected {
		rp, err := realAbs(p)
		if err != nil {
			continue
		}
		if contains(target, rp) {
			return fmt.Errorf("%s contains %s", dir, p)
		}
	}
	return nil
}

func realAbs(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// contains reports whether p is dir or lies below it.
func contains(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (f *Fetcher) unchanged(req Request, tag, asset string) bool {
	if f.Ledger == nil || !f.SkipUnchanged {
		return false
	}
	rec, ok, err := f.Ledger.Get(req.TargetDir)
	if err != nil || !ok {
		return false
	}
	if rec.Tag != tag || rec.Asset != asset {
		return false
	}
	entries, err := os.ReadDir(req.TargetDir)
	return err == nil && len(entries) > 0
}

// fromCache copies a cached archive to archivePath. Cache failures are
// logged and treated as a miss.
func (f *Fetcher) fromCache(ctx context.Context, l *log.Logger, key, archivePath string) bool {
	if f.Cache == nil {
		return false
	}
	hit := false
	err := ghrel.WriteFileAtomically(archivePath, func(out *os.File) error {
		ok, err := f.Cache.Fetch(ctx, key, out)
		if err != nil {
			return err
		}
		if !ok {
			return errCacheMiss
		}
		hit = true
		return nil
	})
	switch {
	case err == nil:
		l.Debug("archive cache hit", "key", key)
		return hit
	case errors.Is(err, errCacheMiss):
		l.Debug("archive cache miss", "key", key)
	default:
		l.Warn("archive cache read failed; downloading", "key", key, "err", err)
	}
	return false
}

var errCacheMiss = errors.New("cache miss")

func (f *Fetcher) toCache(ctx context.Context, l *log.Logger, key, archivePath string) {
	if f.Cache == nil {
		return
	}
	file, err := os.Open(archivePath)
	if err != nil {
		l.Warn("archive cache store failed", "key", key, "err", err)
		return
	}
	defer file.Close()

	if err := f.Cache.Store(ctx, key, file); err != nil {
		l.Warn("archive cache store failed", "key", key, "err", err)
	}
}

func (f *Fetcher) record(l *log.Logger, req Request, res Result) {
	if f.Ledger == nil {
		return
	}
	_, err := f.Ledger.Put(ledger.Record{
		Book:      req.Book,
		Owner:     req.Owner,
		Project:   req.Project,
		Tag:       res.Tag,
		Asset:     res.Asset,
		TargetDir: req.TargetDir,
	})
	if err != nil {
		l.Warn("ledger write failed", "dir", req.TargetDir, "err", err)
	}
}
