package git

import (
	"context"
	"fmt"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/repin-dev/repin/internal/errors"
	"github.com/repin-dev/repin/internal/pin"
)

const (
	branchRevision = "1edb0a9cebe046cc915a218c57dbf7f40739aeee"
	tagRevision    = "35be5b2b2c3431de1100996487d53134f658b866"
)

// routedLister replays ls-remote output keyed by the requested ref pattern
// (the last argument of the invocation).
type routedLister struct {
	routes map[string][]RefEntry
}

func (f *routedLister) LsRemote(_ context.Context, _ string, args ...string) ([]RefEntry, error) {
	pattern := args[len(args)-1]
	entries, ok := f.routes[pattern]
	if !ok {
		return nil, fmt.Errorf("unexpected ls-remote pattern %q", pattern)
	}
	return entries, nil
}

// fakeHasher returns deterministic hashes and records what was hashed.
type fakeHasher struct {
	tarballs  []string
	checkouts []string
}

func (f *fakeHasher) TarballHash(_ context.Context, url string) (string, error) {
	f.tarballs = append(f.tarballs, url)
	return "sha256-tarball", nil
}

func (f *fakeHasher) GitCheckoutHash(_ context.Context, repoURL string, revision string, submodules bool) (string, error) {
	f.checkouts = append(f.checkouts, fmt.Sprintf("%s@%s submodules=%t", repoURL, revision, submodules))
	return "sha256-checkout", nil
}

func newTestEnv(lister Lister, hasher *fakeHasher) *Env {
	return NewEnv(hclog.NewNullLogger(), lister, hasher)
}

func TestBranchPinUpdate(t *testing.T) {
	t.Parallel()

	lister := &routedLister{routes: map[string][]RefEntry{
		"refs/heads/master": {{Revision: branchRevision, Ref: "refs/heads/master"}},
	}}
	env := newTestEnv(lister, &fakeHasher{})

	p := NewBranchPin(env, NewGit("https://example.com/repo.git"), "master", false)

	rev, err := p.Update(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, Revision{Revision: branchRevision}, rev)
}

func TestBranchPinUpdateRejectsMalformedRevision(t *testing.T) {
	t.Parallel()

	lister := &routedLister{routes: map[string][]RefEntry{
		"refs/heads/master": {{Revision: "not-a-sha", Ref: "refs/heads/master"}},
	}}
	env := newTestEnv(lister, &fakeHasher{})

	p := NewBranchPin(env, NewGit("https://example.com/repo.git"), "master", false)

	_, err := p.Update(context.Background(), nil)
	require.ErrorIs(t, err, errs.ErrInvalidRevision)
}

func TestBranchPinFetch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		repo         Repository
		submodules   bool
		expectedURL  string
		expectedHash string
		checkouts    int
	}{
		{
			name:         "plain git falls back to a checkout hash",
			repo:         NewGit("https://example.com/repo.git"),
			expectedURL:  "",
			expectedHash: "sha256-checkout",
			checkouts:    1,
		},
		{
			name:         "github hashes the archive tarball",
			repo:         NewGitHub("oliverwatkins", "swing_library"),
			expectedURL:  "https://github.com/oliverwatkins/swing_library/archive/" + branchRevision + ".tar.gz",
			expectedHash: "sha256-tarball",
		},
		{
			name:         "submodules force a full-clone hash even on github",
			repo:         NewGitHub("oliverwatkins", "swing_library"),
			submodules:   true,
			expectedURL:  "",
			expectedHash: "sha256-checkout",
			checkouts:    1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			hasher := &fakeHasher{}
			env := newTestEnv(&routedLister{}, hasher)
			p := NewBranchPin(env, tc.repo, "master", tc.submodules)

			hashes, err := p.Fetch(context.Background(), Revision{Revision: branchRevision})
			require.NoError(t, err)
			require.Equal(t, OptionalURLHashes{URL: tc.expectedURL, Hash: tc.expectedHash}, hashes)
			assert.Len(t, hasher.checkouts, tc.checkouts)
		})
	}
}

func tagEntries(tags ...string) []RefEntry {
	entries := make([]RefEntry, 0, len(tags))
	for _, tag := range tags {
		entries = append(entries, RefEntry{Revision: tagRevision, Ref: "refs/tags/" + tag})
	}
	return entries
}

func TestReleasePinUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		tags            []string
		pre             bool
		upperBound      string
		prefix          string
		old             *GenericVersion
		expected        string
		isErrorExpected bool
		expectedErr     error
	}{
		{
			name:     "latest release without previous version",
			tags:     []string{"v1.0", "v1.1", "garbage"},
			expected: "v1.1",
		},
		{
			name:       "upper bound excludes the boundary",
			tags:       []string{"1.0", "2.0", "2.0-pre"},
			upperBound: "2",
			expected:   "1.0",
		},
		{
			name:       "pre-release surfaces below the bound",
			tags:       []string{"1.0", "2.0", "2.0-pre"},
			pre:        true,
			upperBound: "2",
			expected:   "2.0-pre",
		},
		{
			name:     "prefix produces a storage tag",
			tags:     []string{"foo/1.0", "zes/1.0", "zes/2.0"},
			prefix:   "zes/",
			expected: "zes/2.0",
		},
		{
			name:     "monotonic move forward succeeds",
			tags:     []string{"v1.0", "v1.1"},
			old:      &GenericVersion{Version: "v1.0"},
			expected: "v1.1",
		},
		{
			name:     "equal version is not a regression",
			tags:     []string{"v1.1"},
			old:      &GenericVersion{Version: "v1.1"},
			expected: "v1.1",
		},
		{
			name:            "regression fails hard",
			tags:            []string{"v1.0"},
			old:             &GenericVersion{Version: "v2.0"},
			isErrorExpected: true,
			expectedErr:     errs.ErrVersionRegression,
		},
		{
			name:     "unparsable old version degrades to a warning",
			tags:     []string{"v1.0"},
			old:      &GenericVersion{Version: "not-a-version"},
			expected: "v1.0",
		},
		{
			name:     "old version predating prefix adoption is used as-is",
			tags:     []string{"zes/1.0", "zes/2.0"},
			prefix:   "zes/",
			old:      &GenericVersion{Version: "1.5"},
			expected: "zes/2.0",
		},
		{
			name:     "prefixed old version is stripped before comparison",
			tags:     []string{"zes/1.0", "zes/2.0"},
			prefix:   "zes/",
			old:      &GenericVersion{Version: "zes/1.0"},
			expected: "zes/2.0",
		},
		{
			name:            "prefixed regression fails hard",
			tags:            []string{"zes/1.0"},
			prefix:          "zes/",
			old:             &GenericVersion{Version: "zes/2.0"},
			isErrorExpected: true,
			expectedErr:     errs.ErrVersionRegression,
		},
		{
			name:            "no matching release",
			tags:            []string{"garbage", "also-garbage"},
			isErrorExpected: true,
			expectedErr:     errs.ErrNoRelease,
		},
		{
			name:            "unparsable upper bound is a configuration error",
			tags:            []string{"v1.0"},
			upperBound:      "not@a@version",
			isErrorExpected: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			lister := &routedLister{routes: map[string][]RefEntry{
				"refs/tags/*": tagEntries(tc.tags...),
			}}
			env := newTestEnv(lister, &fakeHasher{})

			p := NewReleasePin(env, NewGit("https://example.com/repo.git"), tc.pre, tc.upperBound, tc.prefix, false)

			v, err := p.Update(context.Background(), tc.old)
			if tc.isErrorExpected {
				require.Error(t, err)
				if tc.expectedErr != nil {
					require.ErrorIs(t, err, tc.expectedErr)
				}
				return
			}

			require.NoError(t, err)
			require.Equal(t, GenericVersion{Version: tc.expected}, v)
		})
	}
}

func TestReleasePinFetch(t *testing.T) {
	t.Parallel()

	lister := &routedLister{routes: map[string][]RefEntry{
		"refs/tags/v1.1": {{Revision: tagRevision, Ref: "refs/tags/v1.1"}},
	}}

	t.Run("tarball preferred when the host offers one", func(t *testing.T) {
		t.Parallel()

		hasher := &fakeHasher{}
		env := newTestEnv(lister, hasher)
		p := NewReleasePin(env, NewGitHub("jstutters", "MidiOSC"), false, "", "", false)

		hashes, err := p.Fetch(context.Background(), GenericVersion{Version: "v1.1"})
		require.NoError(t, err)
		require.Equal(t, ReleaseHashes{
			Revision: tagRevision,
			URL:      "https://api.github.com/repos/jstutters/MidiOSC/tarball/refs/tags/v1.1",
			Hash:     "sha256-tarball",
		}, hashes)
	})

	t.Run("plain git resolves the tag but hashes a checkout", func(t *testing.T) {
		t.Parallel()

		hasher := &fakeHasher{}
		env := newTestEnv(lister, hasher)
		p := NewReleasePin(env, NewGit("https://example.com/repo.git"), false, "", "", false)

		hashes, err := p.Fetch(context.Background(), GenericVersion{Version: "v1.1"})
		require.NoError(t, err)
		require.Equal(t, ReleaseHashes{Revision: tagRevision, Hash: "sha256-checkout"}, hashes)
	})

	t.Run("submodules force a full-clone hash", func(t *testing.T) {
		t.Parallel()

		hasher := &fakeHasher{}
		env := newTestEnv(lister, hasher)
		p := NewReleasePin(env, NewGitHub("jstutters", "MidiOSC"), false, "", "", true)

		hashes, err := p.Fetch(context.Background(), GenericVersion{Version: "v1.1"})
		require.NoError(t, err)
		require.Equal(t, ReleaseHashes{Revision: tagRevision, Hash: "sha256-checkout"}, hashes)
		require.Len(t, hasher.checkouts, 1)
		assert.Contains(t, hasher.checkouts[0], "submodules=true")
	})
}

func TestPinProperties(t *testing.T) {
	t.Parallel()

	env := newTestEnv(&routedLister{}, &fakeHasher{})

	branch := NewBranchPin(env, NewGitHub("owner", "repo"), "main", true)
	require.Equal(t, []pin.Property{
		{Label: "repository", Value: "https://github.com/owner/repo.git"},
		{Label: "branch", Value: "main"},
		{Label: "submodules", Value: "true"},
	}, branch.Properties())

	release := NewReleasePin(env, NewGitHub("owner", "repo"), false, "", "", false)
	require.Equal(t, []pin.Property{
		{Label: "repository", Value: "https://github.com/owner/repo.git"},
		{Label: "pre_releases", Value: "false"},
		{Label: "version_upper_bound", Value: pin.AbsentValue},
		{Label: "release_prefix", Value: pin.AbsentValue},
		{Label: "submodules", Value: "false"},
	}, release.Properties())
}

func TestHashProperties(t *testing.T) {
	t.Parallel()

	require.Equal(t, []pin.Property{
		{Label: "url", Value: pin.AbsentValue},
		{Label: "hash", Value: "sha256-abc"},
	}, OptionalURLHashes{Hash: "sha256-abc"}.Properties())

	require.Equal(t, []pin.Property{
		{Label: "revision", Value: tagRevision},
		{Label: "url", Value: "https://example.com/a.tar.gz"},
		{Label: "hash", Value: "sha256-abc"},
	}, ReleaseHashes{Revision: tagRevision, URL: "https://example.com/a.tar.gz", Hash: "sha256-abc"}.Properties())
}
