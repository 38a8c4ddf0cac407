package git

import (
	"strings"

	"github.com/hashicorp/go-version"
)

// Release is a selected release tag.
type Release struct {
	// Tag as stored in git, e.g. "release/2.0". This is what further remote
	// operations must use.
	Tag string

	// Name as communicated to the user, e.g. "2.0".
	Name string
}

// LatestRelease takes raw tag names and picks the latest matching release.
//
// When prefix is set, only tags sharing it are eligible and the prefix is
// stripped before any version comparison. Tags that do not parse as a lenient
// semantic version are dropped silently, since not every tag is a release.
// The upper bound is exclusive. The second return value is false when no tag
// survives the filters.
//
// When two distinct tags parse to versions the comparator treats as equal,
// some tag with the maximum version is returned; which one is unspecified.
func LatestRelease(tags []string, preReleases bool, upperBound *version.Version, prefix string) (Release, bool) {
	var (
		best     *version.Version
		bestName string
		found    bool
	)

	for _, tag := range tags {
		name := tag
		if prefix != "" {
			var ok bool
			name, ok = strings.CutPrefix(tag, prefix)
			if !ok {
				continue
			}
		}

		v, err := version.NewVersion(name)
		if err != nil {
			continue
		}
		if !preReleases && v.Prerelease() != "" {
			continue
		}
		if upperBound != nil && !v.LessThan(upperBound) {
			continue
		}

		if !found || v.GreaterThanOrEqual(best) {
			best = v
			bestName = name
			found = true
		}
	}

	if !found {
		return Release{}, false
	}

	return Release{
		Tag:  prefix + bestName,
		Name: bestName,
	}, true
}
