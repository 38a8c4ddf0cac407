package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-version"

	errs "github.com/repin-dev/repin/internal/errors"
	"github.com/repin-dev/repin/internal/pin"
	"github.com/repin-dev/repin/internal/prefetch"
)

// Env carries the collaborators a pin needs to resolve itself. Every
// resolution is a self-contained computation over immutable inputs; the Env
// holds no state beyond the collaborators themselves.
type Env struct {
	Logger hclog.Logger
	Client *Client
	Hasher prefetch.Hasher
}

// NewEnv wires up a resolution environment. A nil lister defaults to the
// subprocess-backed one, a nil hasher to the Nix prefetch tools.
func NewEnv(logger hclog.Logger, lister Lister, hasher prefetch.Hasher) *Env {
	if hasher == nil {
		hasher = prefetch.NewExec(logger)
	}

	return &Env{
		Logger: logger,
		Client: NewClient(logger, lister),
		Hasher: hasher,
	}
}

// OptionalURLHashes is the fetch result for a branch pin. The URL is empty
// exactly when the hash had to be computed from a full repository checkout
// instead of a tarball.
type OptionalURLHashes struct {
	URL  string `toml:"url,omitempty" json:"url,omitempty" yaml:"url,omitempty"`
	Hash string `toml:"hash" json:"hash" yaml:"hash"`
}

// Properties implements pin.Differ.
func (h OptionalURLHashes) Properties() []pin.Property {
	u := h.URL
	if u == "" {
		u = pin.AbsentValue
	}

	return []pin.Property{
		{Label: "url", Value: u},
		{Label: "hash", Value: h.Hash},
	}
}

// ReleaseHashes is the fetch result for a release pin: the exact revision
// behind the tag plus the hash, with the same optional-URL semantics as
// OptionalURLHashes.
type ReleaseHashes struct {
	Revision string `toml:"revision" json:"revision" yaml:"revision"`
	URL      string `toml:"url,omitempty" json:"url,omitempty" yaml:"url,omitempty"`
	Hash     string `toml:"hash" json:"hash" yaml:"hash"`
}

// Properties implements pin.Differ.
func (h ReleaseHashes) Properties() []pin.Property {
	u := h.URL
	if u == "" {
		u = pin.AbsentValue
	}

	return []pin.Property{
		{Label: "revision", Value: h.Revision},
		{Label: "url", Value: u},
		{Label: "hash", Value: h.Hash},
	}
}

// Ensure the pin kinds implement the lifecycle contract.
var (
	_ pin.Updatable[Revision, OptionalURLHashes]      = (*BranchPin)(nil)
	_ pin.Updatable[GenericVersion, ReleaseHashes]    = (*ReleasePin)(nil)
	_ pin.Differ                                      = (*BranchPin)(nil)
	_ pin.Differ                                      = (*ReleasePin)(nil)
)

// BranchPin tracks a branch of a repository and always uses its latest
// commit.
type BranchPin struct {
	Repository Repository
	Branch     string

	// Submodules requests that submodule content be part of the hash. This
	// forces a full-clone hash, since tarballs cannot carry submodules.
	Submodules bool

	env *Env
}

// NewBranchPin creates a branch pin bound to a resolution environment.
func NewBranchPin(env *Env, repository Repository, branch string, submodules bool) *BranchPin {
	return &BranchPin{
		Repository: repository,
		Branch:     branch,
		Submodules: submodules,
		env:        env,
	}
}

// Update resolves the branch head. The previously resolved revision is
// irrelevant for branches and is ignored.
func (p *BranchPin) Update(ctx context.Context, _ *Revision) (Revision, error) {
	repoURL, err := p.Repository.CloneURL()
	if err != nil {
		return Revision{}, err
	}

	head, err := p.env.Client.BranchHead(ctx, repoURL, p.Branch)
	if err != nil {
		return Revision{}, fmt.Errorf("couldn't fetch the latest commit: %w", err)
	}

	revision, err := NewRevision(head.Revision)
	if err != nil {
		return Revision{}, err
	}

	// Host-dependent; an absent timestamp is not an error, a failed lookup is.
	timestamp, err := p.Repository.CommitTimestamp(ctx, revision.Revision)
	if err != nil {
		return Revision{}, err
	}
	revision.Timestamp = timestamp

	return revision, nil
}

// Fetch materializes the content hash for a resolved revision. A tarball is
// preferred when the host offers one, as it is faster than a full clone.
func (p *BranchPin) Fetch(ctx context.Context, version Revision) (OptionalURLHashes, error) {
	repoURL, err := p.Repository.CloneURL()
	if err != nil {
		return OptionalURLHashes{}, err
	}

	if p.Submodules {
		hash, err := p.env.Hasher.GitCheckoutHash(ctx, repoURL, version.Revision, true)
		if err != nil {
			return OptionalURLHashes{}, err
		}
		return OptionalURLHashes{Hash: hash}, nil
	}

	tarballURL, err := p.Repository.ArchiveURL(version.Revision)
	if err != nil {
		return OptionalURLHashes{}, err
	}

	if tarballURL == "" {
		hash, err := p.env.Hasher.GitCheckoutHash(ctx, repoURL, version.Revision, false)
		if err != nil {
			return OptionalURLHashes{}, err
		}
		return OptionalURLHashes{Hash: hash}, nil
	}

	hash, err := p.env.Hasher.TarballHash(ctx, tarballURL)
	if err != nil {
		return OptionalURLHashes{}, err
	}

	return OptionalURLHashes{URL: tarballURL, Hash: hash}, nil
}

// Properties implements pin.Differ.
func (p *BranchPin) Properties() []pin.Property {
	return []pin.Property{
		{Label: "repository", Value: p.Repository.DisplayURL()},
		{Label: "branch", Value: p.Branch},
		{Label: "submodules", Value: strconv.FormatBool(p.Submodules)},
	}
}

// ReleasePin follows the latest release of a repository, found as git tags
// that more or less follow SemVer.
type ReleasePin struct {
	Repository Repository

	// PreReleases also considers releases flagged as pre-release.
	PreReleases bool

	// VersionUpperBound optionally restricts to older releases: only versions
	// strictly below the bound are pinned. The bound is exclusive; in
	// mathematical terms it is an infimum, not a maximum, because the set of
	// compatible releases is not closed at the boundary. It is parsed as
	// leniently as the tags themselves.
	VersionUpperBound string

	// ReleasePrefix optionally filters tags to those sharing a prefix such as
	// "release/", which is stripped before any version comparison.
	ReleasePrefix string

	// Submodules requests that submodule content be part of the hash.
	Submodules bool

	env *Env
}

// NewReleasePin creates a release pin bound to a resolution environment.
func NewReleasePin(
	env *Env,
	repository Repository,
	preReleases bool,
	versionUpperBound string,
	releasePrefix string,
	submodules bool,
) *ReleasePin {
	return &ReleasePin{
		Repository:        repository,
		PreReleases:       preReleases,
		VersionUpperBound: versionUpperBound,
		ReleasePrefix:     releasePrefix,
		Submodules:        submodules,
		env:               env,
	}
}

// Update lists the repository's tags and selects the latest matching release.
// The returned version is the storage tag (prefix included) so that Fetch can
// resolve it as a ref; monotonicity against the old version is enforced on
// the stripped form.
func (p *ReleasePin) Update(ctx context.Context, old *GenericVersion) (GenericVersion, error) {
	repoURL, err := p.Repository.CloneURL()
	if err != nil {
		return GenericVersion{}, err
	}

	var upperBound *version.Version
	if p.VersionUpperBound != "" {
		upperBound, err = version.NewVersion(p.VersionUpperBound)
		if err != nil {
			return GenericVersion{}, fmt.Errorf("field version_upper_bound (%q) is invalid: %w", p.VersionUpperBound, err)
		}
	}

	entries, err := p.env.Client.ListTags(ctx, repoURL)
	if err != nil {
		return GenericVersion{}, fmt.Errorf("couldn't fetch the release tags: %w", err)
	}

	// Strip the protocol prefix; tags without it should never occur and are
	// skipped.
	tags := make([]string, 0, len(entries))
	for _, entry := range entries {
		if tag, ok := strings.CutPrefix(entry.Ref, refsTagsPrefix); ok {
			tags = append(tags, tag)
		}
	}

	latest, ok := LatestRelease(tags, p.PreReleases, upperBound, p.ReleasePrefix)
	if !ok {
		return GenericVersion{}, fmt.Errorf("%w: repository has no matching release tags", errs.ErrNoRelease)
	}

	if old != nil {
		if err := p.ensureMonotonic(old.Version, latest.Name); err != nil {
			return GenericVersion{}, err
		}
	}

	return GenericVersion{Version: latest.Tag}, nil
}

// ensureMonotonic fails when the newly selected release is older than the
// previously recorded one. The old value is normalized by stripping the
// release prefix; a value that predates prefix adoption is used as-is. An old
// value that does not parse as a version only degrades to a warning, to
// support pre-existing manually-set pins.
func (p *ReleasePin) ensureMonotonic(oldVersion string, latestName string) error {
	if p.ReleasePrefix != "" {
		if stripped, ok := strings.CutPrefix(oldVersion, p.ReleasePrefix); ok {
			oldVersion = stripped
		}
	}

	// The selected release parsed during selection, so this must succeed.
	latest, err := version.NewVersion(latestName)
	if err != nil {
		return fmt.Errorf("selected release %q does not parse as a version: %w", latestName, err)
	}

	old, err := version.NewVersion(oldVersion)
	if err != nil {
		p.env.Logger.Warn(
			"Old version failed to parse, cannot ensure monotonicity",
			"version", oldVersion,
		)
		return nil
	}

	if latest.LessThan(old) {
		return fmt.Errorf(
			"%w: latest found version is %s but the current version is %s",
			errs.ErrVersionRegression,
			latestName,
			oldVersion,
		)
	}

	return nil
}

// Fetch resolves the exact revision behind the release tag, then materializes
// the content hash with the same tarball-first rules as branch pins.
func (p *ReleasePin) Fetch(ctx context.Context, v GenericVersion) (ReleaseHashes, error) {
	repoURL, err := p.Repository.CloneURL()
	if err != nil {
		return ReleaseHashes{}, err
	}

	entry, err := p.env.Client.ListRef(ctx, repoURL, refsTagsPrefix+v.Version)
	if err != nil {
		return ReleaseHashes{}, err
	}

	revision, err := NewRevision(entry.Revision)
	if err != nil {
		return ReleaseHashes{}, err
	}

	if p.Submodules {
		hash, err := p.env.Hasher.GitCheckoutHash(ctx, repoURL, revision.Revision, true)
		if err != nil {
			return ReleaseHashes{}, err
		}
		return ReleaseHashes{Revision: revision.Revision, Hash: hash}, nil
	}

	tarballURL, err := p.Repository.ReleaseArchiveURL(v.Version)
	if err != nil {
		return ReleaseHashes{}, err
	}

	if tarballURL == "" {
		hash, err := p.env.Hasher.GitCheckoutHash(ctx, repoURL, revision.Revision, false)
		if err != nil {
			return ReleaseHashes{}, err
		}
		return ReleaseHashes{Revision: revision.Revision, Hash: hash}, nil
	}

	hash, err := p.env.Hasher.TarballHash(ctx, tarballURL)
	if err != nil {
		return ReleaseHashes{}, err
	}

	return ReleaseHashes{
		Revision: revision.Revision,
		URL:      tarballURL,
		Hash:     hash,
	}, nil
}

// Properties implements pin.Differ. Optional fields are listed with an
// explicit placeholder so that diffs line up across configurations.
func (p *ReleasePin) Properties() []pin.Property {
	upperBound := p.VersionUpperBound
	if upperBound == "" {
		upperBound = pin.AbsentValue
	}
	prefix := p.ReleasePrefix
	if prefix == "" {
		prefix = pin.AbsentValue
	}

	return []pin.Property{
		{Label: "repository", Value: p.Repository.DisplayURL()},
		{Label: "pre_releases", Value: strconv.FormatBool(p.PreReleases)},
		{Label: "version_upper_bound", Value: upperBound},
		{Label: "release_prefix", Value: prefix},
		{Label: "submodules", Value: strconv.FormatBool(p.Submodules)},
	}
}
