package releases

import "context"

// Asset is a single named file attached to a release.
type Asset struct {
	Name string
}

// Release is a published version of a project: a tag plus its assets in the
// order the host lists them.
type Release struct {
	Tag        string
	Prerelease bool
	Assets     []Asset
}

// Source abstracts release listing and release asset downloads.
type Source interface {
	// ListReleases returns releases newest first, as the host orders them.
	ListReleases(ctx context.Context, owner, project string) ([]Release, error)
	DownloadAsset(ctx context.Context, owner, project, tag, assetName, outPath string) error
}
