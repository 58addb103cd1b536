package releases

import (
	"context"

	"bookfetch/internal/ghrel"
)

type gitHubSource struct {
	client *ghrel.Client
}

// NewGitHubSource returns a releases.Source backed by internal/ghrel.
func NewGitHubSource(client *ghrel.Client) Source {
	return gitHubSource{client: client}
}

func (s gitHubSource) ListReleases(ctx context.Context, owner, project string) ([]Release, error) {
	rels, err := s.client.ListReleases(ctx, owner, project)
	if err != nil {
		return nil, err
	}

	out := make([]Release, 0, len(rels))
	for _, r := range rels {
		rel := Release{
			Tag:        r.GetTagName(),
			Prerelease: r.GetPrerelease(),
			Assets:     make([]Asset, 0, len(r.Assets)),
		}
		for _, a := range r.Assets {
			rel.Assets = append(rel.Assets, Asset{Name: a.GetName()})
		}
		out = append(out, rel)
	}
	return out, nil
}

func (s gitHubSource) DownloadAsset(
	ctx context.Context,
	owner, project, tag, assetName, outPath string,
) error {
	return s.client.DownloadReleaseAsset(ctx, owner, project, tag, assetName, outPath)
}
