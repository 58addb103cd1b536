package fetcher

import "errors"

// Sentinel errors for fetch operations. Every error returned by Fetch wraps
// exactly one of these; use errors.Is to tell them apart.
var (
	// ErrNoReleasesFound indicates the release listing was empty.
	ErrNoReleasesFound = errors.New("fetcher: no releases found")

	// ErrNoAssetsInRelease indicates the selected release has no assets.
	ErrNoAssetsInRelease = errors.New("fetcher: release has no assets")

	// ErrNetwork indicates listing releases or downloading the asset failed.
	ErrNetwork = errors.New("fetcher: network error")

	// ErrExtraction indicates the archive could not be decompressed or unpacked.
	ErrExtraction = errors.New("fetcher: extraction error")

	// ErrFilesystem indicates creating, cleaning, or removing files failed.
	ErrFilesystem = errors.New("fetcher: filesystem error")
)
