package version

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// NormalizeTag strips a single leading "v" or "V" from a git tag for display.
//
// Examples:
//   - "v0.6.5" -> "0.6.5"
//   - "V1.2"   -> "1.2"
//   - "1.2"    -> "1.2"
func NormalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	if len(tag) > 1 && (tag[0] == 'v' || tag[0] == 'V') {
		return tag[1:]
	}
	return tag
}

// Greater reports whether tag a should sort ahead of tag b in descending order.
//
// Semantic versions beat anything unparseable; two unparseable tags fall back
// to lexical descending order.
func Greater(a, b string) bool {
	va, errA := semver.NewVersion(strings.TrimSpace(a))
	vb, errB := semver.NewVersion(strings.TrimSpace(b))

	switch {
	case errA == nil && errB != nil:
		return true
	case errA != nil && errB == nil:
		return false
	case errA != nil && errB != nil:
		return NormalizeTag(a) > NormalizeTag(b)
	}
	return va.GreaterThan(vb)
}

// Newest returns the index of the highest tag in tags, or -1 when tags is
// empty. Ties keep the earliest index.
func Newest(tags []string) int {
	if len(tags) == 0 {
		return -1
	}
	idx := make([]int, len(tags))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return Greater(tags[idx[i]], tags[idx[j]])
	})
	return idx[0]
}
