package prefetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Ensure Exec implements Hasher.
var _ Hasher = (*Exec)(nil)

// Exec shells out to the Nix prefetch tools. There is no retry or timeout
// logic here; a failed subprocess propagates immediately with its captured
// stderr, and cancellation comes from the context.
type Exec struct {
	logger hclog.Logger
}

// NewExec creates a subprocess-backed Hasher.
func NewExec(logger hclog.Logger) *Exec {
	return &Exec{
		logger: logger.Named("prefetch"),
	}
}

// TarballHash implements Hasher using `nix-prefetch-url --unpack`.
func (e *Exec) TarballHash(ctx context.Context, url string) (string, error) {
	stdout, err := e.run(ctx, "nix-prefetch-url", "--unpack", url)
	if err != nil {
		return "", fmt.Errorf("failed to prefetch tarball %s: %w", url, err)
	}

	// The hash is the last non-empty line; earlier lines are progress output.
	lines := strings.Fields(strings.TrimSpace(string(stdout)))
	if len(lines) == 0 {
		return "", fmt.Errorf("nix-prefetch-url produced no hash for %s", url)
	}

	return lines[len(lines)-1], nil
}

// GitCheckoutHash implements Hasher using `nix-prefetch-git`.
func (e *Exec) GitCheckoutHash(ctx context.Context, repoURL string, revision string, submodules bool) (string, error) {
	args := []string{"--url", repoURL, "--rev", revision}
	if submodules {
		args = append(args, "--fetch-submodules")
	}

	stdout, err := e.run(ctx, "nix-prefetch-git", args...)
	if err != nil {
		return "", fmt.Errorf("failed to prefetch checkout of %s at %s: %w", repoURL, revision, err)
	}

	hash, err := parseGitPrefetchOutput(stdout)
	if err != nil {
		return "", fmt.Errorf("failed to parse nix-prefetch-git output for %s: %w", repoURL, err)
	}

	return hash, nil
}

func (e *Exec) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	e.logger.Debug("Executing prefetch command", "command", name, "args", args)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cmd.ProcessState == nil {
			return nil, fmt.Errorf("failed to run %s: %w", name, err)
		}
		return nil, fmt.Errorf("%s failed with exit code %d\n%s", name, cmd.ProcessState.ExitCode(), stderr.String())
	}

	return stdout.Bytes(), nil
}

// parseGitPrefetchOutput extracts the hash from the JSON document that
// nix-prefetch-git writes to stdout.
func parseGitPrefetchOutput(stdout []byte) (string, error) {
	var payload struct {
		SHA256 string `json:"sha256"`
	}
	if err := json.Unmarshal(stdout, &payload); err != nil {
		return "", fmt.Errorf("failed to decode JSON output: %w", err)
	}
	if payload.SHA256 == "" {
		return "", fmt.Errorf("output contains no sha256 field")
	}

	return payload.SHA256, nil
}
