package cmd

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	cmdopts "github.com/repin-dev/repin/internal/cmd/options"
	"github.com/repin-dev/repin/internal/flags"
	"github.com/repin-dev/repin/internal/git"
	"github.com/repin-dev/repin/internal/lock"
)

// routedLister replays canned ls-remote responses keyed by the joined
// argument list.
type routedLister struct {
	routes map[string][]git.RefEntry
}

func (l *routedLister) LsRemote(_ context.Context, url string, args ...string) ([]git.RefEntry, error) {
	key := strings.Join(args, " ")
	entries, ok := l.routes[key]
	if !ok {
		return nil, fmt.Errorf("unexpected ls-remote call for %s: %q", url, key)
	}
	return entries, nil
}

type fakeHasher struct{}

func (fakeHasher) TarballHash(_ context.Context, _ string) (string, error) {
	return "sha256-tarball", nil
}

func (fakeHasher) GitCheckoutHash(_ context.Context, _ string, _ string, _ bool) (string, error) {
	return "sha256-checkout", nil
}

// newTestEnv builds a resolution environment backed entirely by fakes.
func newTestEnv(routes map[string][]git.RefEntry) *git.Env {
	return git.NewEnv(hclog.NewNullLogger(), &routedLister{routes: routes}, fakeHasher{})
}

// useTempLockFile points the global --lock-file default into a temp directory
// for the duration of the test. Tests sharing this helper must not run in
// parallel.
func useTempLockFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "repin.toml")

	previous := flags.LockFile
	flags.LockFile = path
	t.Cleanup(func() {
		flags.LockFile = previous
	})

	return path
}

// seedLockFile creates a lockfile containing the given pins.
func seedLockFile(t *testing.T, path string, pins map[string]*lock.Pin) {
	t.Helper()

	require.NoError(t, lock.Init(path))

	f, err := lock.Load(path)
	require.NoError(t, err)

	for name, p := range pins {
		require.NoError(t, f.AddPin(name, p))
	}
	require.NoError(t, f.Save())
}

// executeCommand runs the CLI with the given args and returns captured output.
func executeCommand(t *testing.T, env *git.Env, args ...string) (string, error) {
	t.Helper()

	var opts []cmdopts.CmdOption
	if env != nil {
		opts = append(opts, cmdopts.WithEnv(env))
	}

	rootCmd, err := NewRootCmd(hclog.NewNullLogger(), opts...)
	require.NoError(t, err)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)

	err = rootCmd.Execute()

	return buf.String(), err
}
