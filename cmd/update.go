package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/repin-dev/repin/internal/cmd"
	cmdopts "github.com/repin-dev/repin/internal/cmd/options"
	"github.com/repin-dev/repin/internal/flags"
	"github.com/repin-dev/repin/internal/git"
	"github.com/repin-dev/repin/internal/lock"
	"github.com/repin-dev/repin/internal/pin"
)

// maxConcurrentUpdates caps the number of pins resolving at once, since each
// resolution may spawn git and prefetch subprocesses.
const maxConcurrentUpdates = 4

// UpdateCmd should be used to represent the 'update' command.
type UpdateCmd struct {
	*cmd.BaseCmd
	env *git.Env
}

// NewUpdateCmd creates a newly configured (Cobra) command.
func NewUpdateCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	c := &UpdateCmd{
		BaseCmd: baseCmd,
		env:     opts.Env,
	}

	cobraCommand := &cobra.Command{
		Use:   "update [pin-name ...]",
		Short: "Re-resolves pins and records what changed",
		Long: `Re-resolves pins against their remotes and records the new revisions and
hashes in the lockfile. With no arguments every pin is updated; otherwise only
the named pins are. The lockfile is only written when every requested pin
resolved successfully.`,
		RunE: c.run,
	}

	return cobraCommand, nil
}

// run is configured (via NewUpdateCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *UpdateCmd) run(cobraCommand *cobra.Command, args []string) error {
	logger := c.Logger()

	env := c.env
	if env == nil {
		env = c.CreateEnv()
	}

	f, err := lock.Load(flags.LockFile)
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = f.Names()
	}

	pins := make([]*lock.Pin, len(names))
	for i, name := range names {
		p, err := f.Get(name)
		if err != nil {
			return err
		}
		pins[i] = p
	}

	if len(pins) == 0 {
		_, err := fmt.Fprintln(cobraCommand.OutOrStdout(), "No pins to update")
		return err
	}

	resolved := make([]*lock.Pinned, len(pins))

	g, ctx := errgroup.WithContext(cobraCommand.Context())
	g.SetLimit(maxConcurrentUpdates)

	for i, p := range pins {
		g.Go(func() error {
			pinned, err := p.Resolve(ctx, env)
			if err != nil {
				return fmt.Errorf("failed to update pin '%s': %w", names[i], err)
			}
			resolved[i] = pinned
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for i, p := range pins {
		var before pin.Differ
		if p.Pinned != nil {
			before = pin.PropertyList(p.ResolvedProperties())
		}

		p.Pinned = resolved[i]
		after := pin.PropertyList(p.ResolvedProperties())

		changes := pin.Changes(before, after)
		if len(changes) == 0 {
			logger.Debug("Pin unchanged", "name", names[i])
			if _, err := fmt.Fprintf(cobraCommand.OutOrStdout(), "• '%s' is up to date\n", names[i]); err != nil {
				return err
			}
			continue
		}

		logger.Debug("Pin updated", "name", names[i], "changes", len(changes))
		if _, err := fmt.Fprintf(cobraCommand.OutOrStdout(), "✓ Updated pin '%s'\n", names[i]); err != nil {
			return err
		}
		for _, line := range changes {
			if _, err := fmt.Fprintf(cobraCommand.OutOrStdout(), "    %s\n", line); err != nil {
				return err
			}
		}
	}

	return f.Save()
}
