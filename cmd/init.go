package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repin-dev/repin/internal/cmd"
	cmdopts "github.com/repin-dev/repin/internal/cmd/options"
	"github.com/repin-dev/repin/internal/flags"
	"github.com/repin-dev/repin/internal/lock"
)

// InitCmd should be used to represent the 'init' command.
type InitCmd struct {
	*cmd.BaseCmd
}

// NewInitCmd creates a newly configured (Cobra) command.
func NewInitCmd(baseCmd *cmd.BaseCmd, _ ...cmdopts.CmdOption) (*cobra.Command, error) {
	c := &InitCmd{
		BaseCmd: baseCmd,
	}

	cobraCommand := &cobra.Command{
		Use:   "init",
		Short: "Creates an empty pin lockfile",
		Long:  "Creates an empty pin lockfile in the current directory (or at --lock-file). Refuses to overwrite an existing one.",
		RunE:  c.run,
	}

	return cobraCommand, nil
}

// run is configured (via NewInitCmd) to be called by the Cobra framework when the command is executed.
func (c *InitCmd) run(cmd *cobra.Command, _ []string) error {
	if err := lock.Init(flags.LockFile); err != nil {
		return err
	}

	c.Logger().Debug("Lockfile created", "path", flags.LockFile)
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "✓ Created '%s'\n", flags.LockFile); err != nil {
		return err
	}

	return nil
}
