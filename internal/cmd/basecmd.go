package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/repin-dev/repin/internal/flags"
	"github.com/repin-dev/repin/internal/git"
	"github.com/repin-dev/repin/internal/perms"
)

// BaseCmd carries the logger shared by every command.
type BaseCmd struct {
	logger hclog.Logger
}

// NewBaseCmd creates a BaseCmd around the given logger.
func NewBaseCmd(logger hclog.Logger) *BaseCmd {
	return &BaseCmd{logger: logger}
}

// Logger returns the command's logger, lazily configuring a fallback from
// flags and environment when none was injected.
func (c *BaseCmd) Logger() hclog.Logger {
	if c.logger != nil {
		return c.logger
	}

	// Get log level from flags first, then environment, then default.
	logLevel := flags.LogLevel
	if logLevel == "" {
		logLevel = strings.ToLower(os.Getenv(flags.EnvVarLogLevel))
		if logLevel == "" {
			logLevel = flags.DefaultLogLevel
		}
	}

	logPath := flags.LogPath
	if logPath == "" {
		logPath = strings.TrimSpace(os.Getenv(flags.EnvVarLogPath))
	}

	// If no log path is set, don't log anywhere.
	var output io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, perms.RegularFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file (%s): %v, using stderr\n", logPath, err)
			output = os.Stderr
		} else {
			output = f
		}
	}

	c.logger = hclog.New(&hclog.LoggerOptions{
		Name:   "repin",
		Level:  hclog.LevelFromString(logLevel),
		Output: output,
	})

	return c.logger
}

// CreateEnv wires up the resolution environment (remote lister + hasher)
// used by every pin operation.
func (c *BaseCmd) CreateEnv() *git.Env {
	return git.NewEnv(c.Logger(), nil, nil)
}
