package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repin-dev/repin/internal/cmd"
	cmdopts "github.com/repin-dev/repin/internal/cmd/options"
	"github.com/repin-dev/repin/internal/flags"
	"github.com/repin-dev/repin/internal/lock"
)

// RemoveCmd should be used to represent the 'remove' command.
type RemoveCmd struct {
	*cmd.BaseCmd
}

// NewRemoveCmd creates a newly configured (Cobra) command.
func NewRemoveCmd(baseCmd *cmd.BaseCmd, _ ...cmdopts.CmdOption) (*cobra.Command, error) {
	c := &RemoveCmd{
		BaseCmd: baseCmd,
	}

	cobraCommand := &cobra.Command{
		Use:   "remove <pin-name>",
		Short: "Removes a pin from the lockfile",
		Long:  "Removes a pin from the lockfile",
		RunE:  c.run,
	}

	return cobraCommand, nil
}

// run is configured (via NewRemoveCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *RemoveCmd) run(cobraCommand *cobra.Command, args []string) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return fmt.Errorf("pin name is required and cannot be empty")
	}

	name := strings.TrimSpace(args[0])

	f, err := lock.Load(flags.LockFile)
	if err != nil {
		return err
	}

	if err := f.RemovePin(name); err != nil {
		return err
	}

	if err := f.Save(); err != nil {
		return err
	}

	c.Logger().Debug("Pin removed", "name", name)
	if _, err := fmt.Fprintf(cobraCommand.OutOrStdout(), "✓ Removed pin '%s'\n", name); err != nil {
		return err
	}

	return nil
}
