package cmd

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/repin-dev/repin/internal/cmd"
	cmdopts "github.com/repin-dev/repin/internal/cmd/options"
	"github.com/repin-dev/repin/internal/flags"
	"github.com/repin-dev/repin/internal/git"
	"github.com/repin-dev/repin/internal/lock"
)

// AddCmd should be used to represent the 'add' command.
// Each hosting provider is a subcommand; the tracking flags are shared.
type AddCmd struct {
	*cmd.BaseCmd
	Name          string
	Branch        string
	Releases      bool
	PreReleases   bool
	UpperBound    string
	ReleasePrefix string
	Submodules    bool
	Server        string
	Token         string

	env *git.Env

	// repository builds the provider-specific repository from the positional
	// args and returns it along with a default pin name.
	repository func(c *AddCmd, args []string) (git.Repository, string)
}

// NewAddCmd creates a newly configured (Cobra) command.
func NewAddCmd(baseCmd *cmd.BaseCmd, opt ...cmdopts.CmdOption) (*cobra.Command, error) {
	opts, err := cmdopts.NewOptions(opt...)
	if err != nil {
		return nil, err
	}

	cobraCommand := &cobra.Command{
		Use:   "add <provider> [args]",
		Short: "Adds a pin to the lockfile and resolves it",
		Long: `Adds a pin to the lockfile and resolves it immediately.
By default the pin tracks a branch (the repository's default branch unless
--branch is given); pass --releases to follow release tags instead.`,
	}

	github := newAddSubCmd(baseCmd, opts, func(c *AddCmd, args []string) (git.Repository, string) {
		return git.NewGitHub(args[0], args[1]), args[1]
	})
	githubCmd := &cobra.Command{
		Use:   "github <owner> <repository>",
		Short: "Pins a repository hosted on GitHub",
		Args:  cobra.ExactArgs(2),
		RunE:  github.run,
	}
	github.addTrackingFlags(githubCmd)

	forgejo := newAddSubCmd(baseCmd, opts, func(c *AddCmd, args []string) (git.Repository, string) {
		return git.NewForgejo(args[0], args[1], args[2]), args[2]
	})
	forgejoCmd := &cobra.Command{
		Use:   "forgejo <server> <owner> <repository>",
		Short: "Pins a repository hosted on a Forgejo (or Gitea) instance",
		Args:  cobra.ExactArgs(3),
		RunE:  forgejo.run,
	}
	forgejo.addTrackingFlags(forgejoCmd)

	gitlab := newAddSubCmd(baseCmd, opts, func(c *AddCmd, args []string) (git.Repository, string) {
		return git.NewGitLab(args[0], c.Server, c.Token), path.Base(args[0])
	})
	gitlabCmd := &cobra.Command{
		Use:   "gitlab <repo-path>",
		Short: "Pins a repository hosted on a GitLab instance",
		Long: `Pins a repository hosted on a GitLab instance. The repo path may contain
subgroups (e.g. 'group/subgroup/project'). A private token given via --token
(or the GITLAB_TOKEN environment variable) is used for clone and archive
access but never shown in output.`,
		Args: cobra.ExactArgs(1),
		RunE: gitlab.run,
	}
	gitlab.addTrackingFlags(gitlabCmd)
	gitlabCmd.Flags().StringVar(
		&gitlab.Server,
		"server",
		"",
		"Base URL of the GitLab instance (defaults to https://gitlab.com)",
	)
	gitlabCmd.Flags().StringVar(
		&gitlab.Token,
		"token",
		"",
		"Private token for repository access",
	)

	plain := newAddSubCmd(baseCmd, opts, func(c *AddCmd, args []string) (git.Repository, string) {
		return git.NewGit(args[0]), strings.TrimSuffix(path.Base(args[0]), ".git")
	})
	plainCmd := &cobra.Command{
		Use:   "git <url>",
		Short: "Pins a plain git repository by URL",
		Args:  cobra.ExactArgs(1),
		RunE:  plain.run,
	}
	plain.addTrackingFlags(plainCmd)

	cobraCommand.AddCommand(githubCmd, forgejoCmd, gitlabCmd, plainCmd)

	return cobraCommand, nil
}

func newAddSubCmd(
	baseCmd *cmd.BaseCmd,
	opts cmdopts.Options,
	repository func(c *AddCmd, args []string) (git.Repository, string),
) *AddCmd {
	return &AddCmd{
		BaseCmd:    baseCmd,
		env:        opts.Env,
		repository: repository,
	}
}

// addTrackingFlags registers the flags shared by every provider subcommand.
func (c *AddCmd) addTrackingFlags(cobraCommand *cobra.Command) {
	fs := cobraCommand.Flags()

	fs.StringVar(
		&c.Name,
		"name",
		"",
		"Optional, name for the pin (defaults to the repository name)",
	)
	fs.StringVar(
		&c.Branch,
		"branch",
		"",
		"Optional, branch to track (defaults to the repository's default branch)",
	)
	fs.BoolVar(
		&c.Releases,
		"releases",
		false,
		"Track release tags instead of a branch",
	)
	fs.BoolVar(
		&c.PreReleases,
		"pre-releases",
		false,
		"Optional, include pre-release versions (requires --releases)",
	)
	fs.StringVar(
		&c.UpperBound,
		"upper-bound",
		"",
		"Optional, exclusive version upper bound (requires --releases)",
	)
	fs.StringVar(
		&c.ReleasePrefix,
		"release-prefix",
		"",
		"Optional, only consider tags with this prefix (requires --releases)",
	)
	fs.BoolVar(
		&c.Submodules,
		"submodules",
		false,
		"Optional, include submodules in the content hash",
	)
}

// run is configured (via NewAddCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *AddCmd) run(cobraCommand *cobra.Command, args []string) error {
	ctx := cobraCommand.Context()
	logger := c.Logger()

	env := c.env
	if env == nil {
		env = c.CreateEnv()
	}

	repo, defaultName := c.repository(c, args)

	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = defaultName
	}
	if name == "" {
		return fmt.Errorf("pin name cannot be empty, use --name")
	}

	p := &lock.Pin{
		Repository: repo,
		Submodules: c.Submodules,
	}

	if c.Releases {
		if c.Branch != "" {
			return fmt.Errorf("--branch cannot be combined with --releases")
		}
		p.Type = lock.KindRelease
		p.PreReleases = c.PreReleases
		p.VersionUpperBound = c.UpperBound
		p.ReleasePrefix = c.ReleasePrefix
	} else {
		if c.PreReleases || c.UpperBound != "" || c.ReleasePrefix != "" {
			return fmt.Errorf("release filters require --releases")
		}

		branch := strings.TrimSpace(c.Branch)
		if branch == "" {
			cloneURL, err := repo.CloneURL()
			if err != nil {
				return err
			}
			branch, err = env.Client.DefaultBranch(ctx, cloneURL)
			if err != nil {
				return fmt.Errorf("couldn't determine the default branch: %w", err)
			}
			logger.Debug("Using default branch", "name", name, "branch", branch)
		}
		p.Type = lock.KindBranch
		p.Branch = branch
	}

	f, err := lock.Load(flags.LockFile)
	if err != nil {
		return err
	}

	if err := f.AddPin(name, p); err != nil {
		return err
	}

	pinned, err := p.Resolve(ctx, env)
	if err != nil {
		return fmt.Errorf("failed to resolve pin '%s': %w", name, err)
	}
	p.Pinned = pinned

	if err := f.Save(); err != nil {
		return err
	}

	logger.Debug("Pin added", "name", name, "type", p.Type)
	if _, err := fmt.Fprintf(cobraCommand.OutOrStdout(), "✓ Added pin '%s'\n", name); err != nil {
		return err
	}
	for _, prop := range append(p.Properties(), p.ResolvedProperties()...) {
		if _, err := fmt.Fprintf(cobraCommand.OutOrStdout(), "    %s: %s\n", prop.Label, prop.Value); err != nil {
			return err
		}
	}

	return nil
}
