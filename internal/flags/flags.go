package flags

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
)

const (
	// Env vars
	EnvVarLockFile = "REPIN_LOCK_FILE"
	EnvVarLogPath  = "REPIN_LOG_PATH"
	EnvVarLogLevel = "REPIN_LOG_LEVEL"

	// Defaults
	DefaultLockFile = "repin.toml"
	DefaultLogPath  = ""
	DefaultLogLevel = "info"

	// Flag names
	FlagNameLockFile = "lock-file"
	FlagNameLogPath  = "log-path"
	FlagNameLogLevel = "log-level"
)

var (
	LockFile string
	LogPath  string
	LogLevel string
)

func InitFlags(fs *pflag.FlagSet) {
	initLockFile(fs)
	initLogger(fs)
}

func initLockFile(fs *pflag.FlagSet) {
	if LockFile == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLockFile)); env != "" {
			LockFile = env
		} else {
			LockFile = DefaultLockFile
		}
	}
	fs.StringVar(&LockFile, FlagNameLockFile, LockFile, "path to the pin lockfile")
}

func initLogger(fs *pflag.FlagSet) {
	if LogPath == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLogPath)); env != "" {
			LogPath = env
		} else {
			LogPath = DefaultLogPath
		}
	}
	fs.StringVar(&LogPath, FlagNameLogPath, LogPath, "path to generated log file")

	if LogLevel == "" {
		if env := strings.TrimSpace(os.Getenv(EnvVarLogLevel)); env != "" {
			LogLevel = env
		} else {
			LogLevel = DefaultLogLevel
		}
	}
	fs.StringVar(&LogLevel, FlagNameLogLevel, LogLevel, "log level (trace, debug, info, warn, error)")
}
