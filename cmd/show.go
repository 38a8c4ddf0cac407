package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/repin-dev/repin/internal/cmd"
	cmdopts "github.com/repin-dev/repin/internal/cmd/options"
	"github.com/repin-dev/repin/internal/cmd/output"
	"github.com/repin-dev/repin/internal/flags"
	"github.com/repin-dev/repin/internal/lock"
)

// ShowCmd should be used to represent the 'show' command.
type ShowCmd struct {
	*cmd.BaseCmd
	Format cmd.OutputFormat
}

// pinView is the serializable representation of a pin for structured output.
// Repository credentials are stripped before rendering.
type pinView struct {
	Name              string         `json:"name"                          yaml:"name"`
	Type              string         `json:"type"                          yaml:"type"`
	Repository        string         `json:"repository"                    yaml:"repository"`
	Branch            string         `json:"branch,omitempty"              yaml:"branch,omitempty"`
	PreReleases       bool           `json:"pre_releases,omitempty"        yaml:"pre_releases,omitempty"`
	VersionUpperBound string         `json:"version_upper_bound,omitempty" yaml:"version_upper_bound,omitempty"`
	ReleasePrefix     string         `json:"release_prefix,omitempty"      yaml:"release_prefix,omitempty"`
	Submodules        bool           `json:"submodules,omitempty"          yaml:"submodules,omitempty"`
	Pinned            *pinPinnedView `json:"pinned,omitempty"              yaml:"pinned,omitempty"`
}

type pinPinnedView struct {
	Version   string `json:"version,omitempty"   yaml:"version,omitempty"`
	Revision  string `json:"revision,omitempty"  yaml:"revision,omitempty"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	URL       string `json:"url,omitempty"       yaml:"url,omitempty"`
	Hash      string `json:"hash,omitempty"      yaml:"hash,omitempty"`
}

// NewShowCmd creates a newly configured (Cobra) command.
func NewShowCmd(baseCmd *cmd.BaseCmd, _ ...cmdopts.CmdOption) (*cobra.Command, error) {
	c := &ShowCmd{
		BaseCmd: baseCmd,
		Format:  cmd.FormatText,
	}

	cobraCommand := &cobra.Command{
		Use:   "show [pin-name ...]",
		Short: "Shows pins and their resolved state",
		Long:  "Shows pins and their resolved state. With no arguments every pin is shown; otherwise only the named pins are.",
		RunE:  c.run,
	}

	allowedFormats := cmd.AllowedOutputFormats()
	cobraCommand.Flags().Var(
		&c.Format,
		"format",
		fmt.Sprintf("Specify the output format (must be one of: %s)", allowedFormats.String()),
	)

	return cobraCommand, nil
}

// run is configured (via NewShowCmd) to be called by the Cobra framework when the command is executed.
// It may return an error (or nil, when there is no error).
func (c *ShowCmd) run(cobraCommand *cobra.Command, args []string) error {
	handler, err := c.formatHandler(cobraCommand.OutOrStdout())
	if err != nil {
		return err
	}

	f, err := lock.Load(flags.LockFile)
	if err != nil {
		return handler.HandleError(err)
	}

	names := args
	if len(names) == 0 {
		names = f.Names()
	}

	views := make([]pinView, 0, len(names))
	for _, name := range names {
		p, err := f.Get(name)
		if err != nil {
			return handler.HandleError(err)
		}
		views = append(views, newPinView(name, p))
	}

	return handler.HandleResults(views...)
}

func (c *ShowCmd) formatHandler(w io.Writer) (output.Handler[pinView], error) {
	switch c.Format {
	case cmd.FormatJSON:
		return output.NewJSONHandler[pinView](w, 2), nil
	case cmd.FormatYAML:
		return output.NewYAMLHandler[pinView](w, 2), nil
	case cmd.FormatText, "":
		return output.NewTextHandler[pinView](w, printPin), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", c.Format)
	}
}

func newPinView(name string, p *lock.Pin) pinView {
	v := pinView{
		Name:              name,
		Type:              string(p.Type),
		Repository:        p.Repository.DisplayURL(),
		Branch:            p.Branch,
		PreReleases:       p.PreReleases,
		VersionUpperBound: p.VersionUpperBound,
		ReleasePrefix:     p.ReleasePrefix,
		Submodules:        p.Submodules,
	}

	if p.Pinned != nil {
		v.Pinned = &pinPinnedView{
			Version:   p.Pinned.Version,
			Revision:  p.Pinned.Revision,
			Timestamp: p.Pinned.Timestamp,
			URL:       p.Pinned.URL,
			Hash:      p.Pinned.Hash,
		}
	}

	return v
}

func printPin(w io.Writer, v pinView) error {
	if _, err := fmt.Fprintf(w, "%s (%s)\n", v.Name, v.Type); err != nil {
		return err
	}

	lines := []struct {
		label string
		value string
	}{
		{"repository", v.Repository},
		{"branch", v.Branch},
		{"release prefix", v.ReleasePrefix},
		{"version upper bound", v.VersionUpperBound},
	}
	for _, l := range lines {
		if l.value == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "    %s: %s\n", l.label, l.value); err != nil {
			return err
		}
	}

	if v.Pinned == nil {
		_, err := fmt.Fprintln(w, "    (not resolved yet)")
		return err
	}

	pinned := []struct {
		label string
		value string
	}{
		{"version", v.Pinned.Version},
		{"revision", v.Pinned.Revision},
		{"timestamp", v.Pinned.Timestamp},
		{"url", v.Pinned.URL},
		{"hash", v.Pinned.Hash},
	}
	for _, l := range pinned {
		if l.value == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "    %s: %s\n", l.label, l.value); err != nil {
			return err
		}
	}

	return nil
}
