package cmd

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/repin-dev/repin/internal/git"
	"github.com/repin-dev/repin/internal/lock"
)

func seedShowLockFile(t *testing.T, path string) {
	t.Helper()

	seedLockFile(t, path, map[string]*lock.Pin{
		"nixpkgs": {
			Type:       lock.KindRelease,
			Repository: git.NewGitHub("NixOS", "nixpkgs"),
			Pinned: &lock.Pinned{
				Version:  "23.11",
				Revision: testRevisionA,
				Hash:     "sha256-abc",
			},
		},
		"unresolved": {
			Type:       lock.KindBranch,
			Repository: git.NewGit(testRepoURL),
			Branch:     "main",
		},
	})
}

func TestShowText(t *testing.T) {
	path := useTempLockFile(t)
	seedShowLockFile(t, path)

	out, err := executeCommand(t, nil, "show")
	require.NoError(t, err)
	require.Contains(t, out, "nixpkgs (release)")
	require.Contains(t, out, "repository: https://github.com/NixOS/nixpkgs")
	require.Contains(t, out, "version: 23.11")
	require.Contains(t, out, "revision: "+testRevisionA)
	require.Contains(t, out, "unresolved (branch)")
	require.Contains(t, out, "(not resolved yet)")
}

func TestShowNamedPinJSON(t *testing.T) {
	path := useTempLockFile(t)
	seedShowLockFile(t, path)

	out, err := executeCommand(t, nil, "show", "nixpkgs", "--format", "json")
	require.NoError(t, err)

	expected := fmt.Sprintf(`{
		"results": [
			{
				"name": "nixpkgs",
				"type": "release",
				"repository": "https://github.com/NixOS/nixpkgs.git",
				"pinned": {
					"version": "23.11",
					"revision": %q,
					"hash": "sha256-abc"
				}
			}
		]
	}`, testRevisionA)
	require.JSONEq(t, expected, out)
}

func TestShowUnknownPin(t *testing.T) {
	path := useTempLockFile(t)
	seedLockFile(t, path, nil)

	_, err := executeCommand(t, nil, "show", "nope")
	require.Error(t, err)
}

func TestShowEmptyLockFile(t *testing.T) {
	path := useTempLockFile(t)
	seedLockFile(t, path, nil)

	out, err := executeCommand(t, nil, "show")
	require.NoError(t, err)
	require.Contains(t, out, "No pins found")
}

func TestShowRejectsInvalidFormat(t *testing.T) {
	path := useTempLockFile(t)
	seedLockFile(t, path, nil)

	_, err := executeCommand(t, nil, "show", "--format", "xml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid format")
}
