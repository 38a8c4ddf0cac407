package flags

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func resetFlagVars(t *testing.T) {
	t.Helper()

	prevLockFile, prevLogPath, prevLogLevel := LockFile, LogPath, LogLevel
	LockFile, LogPath, LogLevel = "", "", ""
	t.Cleanup(func() {
		LockFile, LogPath, LogLevel = prevLockFile, prevLogPath, prevLogLevel
	})
}

func TestInitFlagsDefaults(t *testing.T) {
	resetFlagVars(t)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitFlags(fs)

	require.NoError(t, fs.Parse(nil))
	require.Equal(t, DefaultLockFile, LockFile)
	require.Equal(t, DefaultLogPath, LogPath)
	require.Equal(t, DefaultLogLevel, LogLevel)
}

func TestInitFlagsEnvFallback(t *testing.T) {
	resetFlagVars(t)
	t.Setenv(EnvVarLockFile, "custom.toml")
	t.Setenv(EnvVarLogLevel, "debug")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitFlags(fs)

	require.NoError(t, fs.Parse(nil))
	require.Equal(t, "custom.toml", LockFile)
	require.Equal(t, "debug", LogLevel)
}

func TestInitFlagsExplicitFlagWins(t *testing.T) {
	resetFlagVars(t)
	t.Setenv(EnvVarLockFile, "from-env.toml")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitFlags(fs)

	require.NoError(t, fs.Parse([]string{"--lock-file", "from-flag.toml"}))
	require.Equal(t, "from-flag.toml", LockFile)
}
