package fetcher

import (
	"fmt"
	"strings"

	"bookfetch/internal/releases"
	"bookfetch/internal/version"
)

// Policy decides which release counts as the newest.
type Policy string

const (
	// PolicyListing takes the first release the host lists.
	PolicyListing Policy = "listing"
	// PolicySemver takes the release with the highest semantic version tag.
	PolicySemver Policy = "semver"
)

// ParsePolicy maps a config value to a Policy. Empty means PolicyListing.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyListing:
		return PolicyListing, nil
	case PolicySemver:
		return PolicySemver, nil
	default:
		return "", fmt.Errorf("unknown release policy %q (want %q or %q)", s, PolicyListing, PolicySemver)
	}
}

// SelectRelease picks the newest release under policy.
func SelectRelease(rels []releases.Release, policy Policy) (releases.Release, error) {
	if len(rels) == 0 {
		return releases.Release{}, ErrNoReleasesFound
	}
	if policy != PolicySemver {
		return rels[0], nil
	}

	tags := make([]string, len(rels))
	for i, r := range rels {
		tags[i] = r.Tag
	}
	return rels[version.Newest(tags)], nil
}

// SelectAsset returns the asset named expected, or the first asset when
// expected is empty or absent. fellBack reports the second case for a
// non-empty expected name. rel must have at least one asset.
func SelectAsset(rel releases.Release, expected string) (asset releases.Asset, fellBack bool) {
	for _, a := range rel.Assets {
		if a.Name == expected {
			return a, false
		}
	}
	return rel.Assets[0], expected != ""
}
