package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"

	errs "github.com/repin-dev/repin/internal/errors"
)

// RefEntry is one parsed line of git ls-remote output. Entries are only ever
// constructed by parsing that output.
type RefEntry struct {
	Revision string
	Ref      string
}

// Lister abstracts the git ls-remote subprocess so tests can substitute a
// fake implementation without spawning real processes.
type Lister interface {
	// LsRemote runs `git ls-remote <args...>` and returns the parsed entries.
	// The url is used only to annotate failures with their origin.
	LsRemote(ctx context.Context, url string, args ...string) ([]RefEntry, error)
}

// Ensure ExecLister implements Lister.
var _ Lister = (*ExecLister)(nil)

// ExecLister invokes git ls-remote as a subprocess. The environment is
// hardened so that credential prompts fail instead of hanging and unknown
// host keys fail instead of being trusted.
type ExecLister struct {
	logger hclog.Logger
}

// NewExecLister creates a subprocess-backed Lister.
func NewExecLister(logger hclog.Logger) *ExecLister {
	return &ExecLister{
		logger: logger.Named("ls-remote"),
	}
}

// LsRemote implements Lister.
func (l *ExecLister) LsRemote(ctx context.Context, url string, args ...string) ([]RefEntry, error) {
	l.logger.Debug("Executing git ls-remote", "args", strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", append([]string{"ls-remote"}, args...)...)
	cmd.Env = append(os.Environ(),
		// Disable any interactive login attempts, failing gracefully instead.
		"GIT_TERMINAL_PROMPT=0",
		"GIT_SSH_COMMAND=ssh -o StrictHostKeyChecking=yes",
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cmd.ProcessState == nil {
			return nil, fmt.Errorf("failed to run git ls-remote for %s: %w", url, err)
		}
		return nil, fmt.Errorf(
			"git ls-remote for %s failed with exit code %d\n%s",
			url,
			cmd.ProcessState.ExitCode(),
			stderr.String(),
		)
	}

	entries, err := parseLsRemoteOutput(stdout.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse git ls-remote output for %s: %w", url, err)
	}

	for _, entry := range entries {
		l.logger.Debug("Found remote", "revision", entry.Revision, "ref", entry.Ref)
	}

	return entries, nil
}

// parseLsRemoteOutput parses `<revision>\t<ref>` lines. A single trailing
// empty line is tolerated; any other line must contain exactly one tab.
func parseLsRemoteOutput(out string) ([]RefEntry, error) {
	var entries []RefEntry
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 2 {
			return nil, fmt.Errorf("output line %q does not contain exactly one tab", line)
		}

		entries = append(entries, RefEntry{
			Revision: fields[0],
			Ref:      fields[1],
		})
	}

	return entries, nil
}

const (
	refsHeadsPrefix = "refs/heads/"
	refsTagsPrefix  = "refs/tags/"
)

// Client performs remote ref discovery for repositories.
type Client struct {
	lister Lister
	logger hclog.Logger
}

// NewClient creates a Client. A nil lister defaults to the subprocess-backed
// implementation.
func NewClient(logger hclog.Logger, lister Lister) *Client {
	if lister == nil {
		lister = NewExecLister(logger)
	}

	return &Client{
		lister: lister,
		logger: logger.Named("git"),
	}
}

// ListRef resolves a single ref to its revision. git ls-remote matches the
// requested ref like a suffix glob, so the result is re-filtered for an exact
// match; an unrelated ref that merely ends with the requested name must never
// be returned.
func (c *Client) ListRef(ctx context.Context, repoURL string, ref string) (RefEntry, error) {
	entries, err := c.lister.LsRemote(ctx, repoURL, "--refs", repoURL, ref)
	if err != nil {
		return RefEntry{}, fmt.Errorf("failed to get revision from remote for %s %s: %w", repoURL, ref, err)
	}

	if len(entries) == 0 {
		return RefEntry{}, fmt.Errorf("%w: git ls-remote output is empty, are you sure %q exists?", errs.ErrRefNotFound, ref)
	}

	for _, entry := range entries {
		if entry.Ref == ref {
			return entry, nil
		}
	}

	return RefEntry{}, fmt.Errorf(
		"%w: git ls-remote output does not contain the requested ref %q, this should not have happened",
		errs.ErrRefMismatch,
		ref,
	)
}

// BranchHead resolves the current head revision of a branch.
func (c *Client) BranchHead(ctx context.Context, repoURL string, branch string) (RefEntry, error) {
	return c.ListRef(ctx, repoURL, refsHeadsPrefix+branch)
}

// ListTags lists every tag ref of a repository. Annotated-tag dereference
// duplicates are not deduplicated here.
func (c *Client) ListTags(ctx context.Context, repoURL string) ([]RefEntry, error) {
	entries, err := c.lister.LsRemote(ctx, repoURL, "--refs", repoURL, refsTagsPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to list tags for %s: %w", repoURL, err)
	}

	return entries, nil
}

// DefaultBranch resolves the branch that HEAD symbolically points at.
func (c *Client) DefaultBranch(ctx context.Context, repoURL string) (string, error) {
	entries, err := c.lister.LsRemote(ctx, repoURL, "--symref", repoURL, "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve the default branch for %s: %w", repoURL, err)
	}

	for _, entry := range entries {
		if entry.Ref == "HEAD" && strings.HasPrefix(entry.Revision, "ref: "+refsHeadsPrefix) {
			return strings.TrimPrefix(entry.Revision, "ref: "+refsHeadsPrefix), nil
		}
	}

	return "", fmt.Errorf("%w: failed to resolve HEAD to a ref for %s", errs.ErrRefNotFound, repoURL)
}
