package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/repin-dev/repin/internal/cmd"
	cmdopts "github.com/repin-dev/repin/internal/cmd/options"
	"github.com/repin-dev/repin/internal/flags"
)

var version = "dev" // Set at build time using -ldflags

// RootCmd should be used to represent the root 'repin' command.
type RootCmd struct {
	*cmd.BaseCmd
}

// Execute configures the root command and runs it against os.Args.
func Execute() error {
	logger, err := configureLogger()
	if err != nil {
		return err
	}

	rootCmd, err := NewRootCmd(logger)
	if err != nil {
		return err
	}

	return rootCmd.Execute()
}

// NewRootCmd creates a newly configured (Cobra) command.
func NewRootCmd(logger hclog.Logger, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	c := &RootCmd{
		BaseCmd: cmd.NewBaseCmd(logger),
	}

	rootCmd := &cobra.Command{
		Use:          "repin <command> [args]",
		Short:        "'repin' pins git repositories to reproducible revisions and hashes.",
		Long:         c.longDescription(),
		SilenceUsage: true,
		Version:      version,
	}

	// Global flags
	flags.InitFlags(rootCmd.PersistentFlags())

	for _, fn := range []func(*cmd.BaseCmd, ...cmdopts.CmdOption) (*cobra.Command, error){
		NewInitCmd,
		NewAddCmd,
		NewUpdateCmd,
		NewShowCmd,
		NewRemoveCmd,
	} {
		sub, err := fn(c.BaseCmd, opt...)
		if err != nil {
			return nil, err
		}
		rootCmd.AddCommand(sub)
	}

	return rootCmd, nil
}

// longDescription returns the long version of the command description.
func (c *RootCmd) longDescription() string {
	return `'repin' tracks git branches and release tags across hosting providers,
resolving each pin to an exact revision and content hash so that builds stay
reproducible. Pins are stored in a TOML lockfile alongside your project.`
}

func configureLogger() (hclog.Logger, error) {
	logPath := strings.TrimSpace(os.Getenv(flags.EnvVarLogPath))

	// If REPIN_LOG_PATH is not set, don't log anywhere.
	logOutput := io.Discard

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file (%s): %w", logPath, err)
		}
		logOutput = f
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "repin",
		Level:  hclog.LevelFromString(getLogLevel()),
		Output: logOutput,
	})

	return logger, nil
}

func getLogLevel() string {
	lvl := strings.ToLower(os.Getenv(flags.EnvVarLogLevel))
	switch lvl {
	case "trace", "debug", "info", "warn", "error", "off":
		return lvl
	default:
		return "info"
	}
}
