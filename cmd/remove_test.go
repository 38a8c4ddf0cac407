package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"

	errs "github.com/repin-dev/repin/internal/errors"
	"github.com/repin-dev/repin/internal/git"
	"github.com/repin-dev/repin/internal/lock"
)

func TestRemovePin(t *testing.T) {
	path := useTempLockFile(t)
	seedLockFile(t, path, map[string]*lock.Pin{
		"foo": {
			Type:       lock.KindBranch,
			Repository: git.NewGit(testRepoURL),
			Branch:     "main",
		},
	})

	out, err := executeCommand(t, nil, "remove", "foo")
	require.NoError(t, err)
	require.Contains(t, out, "✓ Removed pin 'foo'")

	f, err := lock.Load(path)
	require.NoError(t, err)
	require.Empty(t, f.Names())
}

func TestRemoveUnknownPin(t *testing.T) {
	path := useTempLockFile(t)
	seedLockFile(t, path, nil)

	_, err := executeCommand(t, nil, "remove", "nope")
	require.ErrorIs(t, err, errs.ErrPinNotFound)
}
