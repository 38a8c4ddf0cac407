// Package git implements the version-resolution engine for git-hosted pins:
// the repository host abstraction, remote ref discovery via git ls-remote,
// release selection over loosely semver-ish tags, and the branch/release pin
// lifecycle.
//
// Either a branch or a release can be tracked. Releases are found as git tags
// that more or less follow SemVer. There is special support for repositories
// hosted on GitHub, GitLab or Forgejo; those can provide tarball URLs for
// direct downloads, which plain git repositories cannot.
package git

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/repin-dev/repin/internal/pin"
)

const (
	// EnvVarGitHubHost overrides the GitHub web host, e.g. for GitHub
	// Enterprise installations.
	EnvVarGitHubHost = "REPIN_GITHUB_HOST"

	// EnvVarGitHubAPIHost overrides the GitHub API host.
	EnvVarGitHubAPIHost = "REPIN_GITHUB_API_HOST"

	// EnvVarGitLabToken is the fallback GitLab access token, consulted only
	// when a repository has no explicit token configured.
	EnvVarGitLabToken = "GITLAB_TOKEN"
)

const (
	defaultGitHubHost    = "https://github.com"
	defaultGitHubAPIHost = "https://api.github.com"
	defaultGitLabServer  = "https://gitlab.com"
)

func githubHost() string {
	if host := strings.TrimSpace(os.Getenv(EnvVarGitHubHost)); host != "" {
		return host
	}
	return defaultGitHubHost
}

func githubAPIHost() string {
	if host := strings.TrimSpace(os.Getenv(EnvVarGitHubAPIHost)); host != "" {
		return host
	}
	return defaultGitHubAPIHost
}

// HostKind identifies one of the supported repository hosting variants.
// The set is closed; adding a variant means touching every switch below.
type HostKind string

const (
	// HostGit is a plain repository reachable by URL. It has limited support:
	// it cannot provide tarball URLs for downloading revisions or releases.
	HostGit HostKind = "git"

	// HostGitHub is a repository on github.com (or a host override).
	HostGitHub HostKind = "github"

	// HostGitLab is a repository on gitlab.com or a self-hosted GitLab.
	HostGitLab HostKind = "gitlab"

	// HostForgejo is a repository on a self-hosted Forgejo (or Gitea) server.
	HostForgejo HostKind = "forgejo"
)

// Repository is an immutable description of where a repository is hosted.
// Which fields are meaningful depends on Kind.
type Repository struct {
	Kind HostKind `toml:"type" json:"type" yaml:"type"`

	// URL of the repository, for plain git hosting.
	URL string `toml:"url,omitempty" json:"url,omitempty" yaml:"url,omitempty"`

	// Owner and Repo, for GitHub and Forgejo.
	Owner string `toml:"owner,omitempty" json:"owner,omitempty" yaml:"owner,omitempty"`
	Repo  string `toml:"repo,omitempty" json:"repo,omitempty" yaml:"repo,omitempty"`

	// Server base URL, for Forgejo and GitLab.
	Server string `toml:"server,omitempty" json:"server,omitempty" yaml:"server,omitempty"`

	// RepoPath is the full project path for GitLab, usually "owner/repo" or
	// "group/owner/repo" without leading or trailing slashes.
	RepoPath string `toml:"repo_path,omitempty" json:"repo_path,omitempty" yaml:"repo_path,omitempty"`

	// PrivateToken is a GitLab access token for private repositories. It is
	// persisted but never listed by Properties.
	PrivateToken string `toml:"private_token,omitempty" json:"private_token,omitempty" yaml:"private_token,omitempty"`
}

// NewGit creates a plain git repository description.
func NewGit(rawURL string) Repository {
	return Repository{
		Kind: HostGit,
		URL:  rawURL,
	}
}

// NewGitHub creates a GitHub repository description.
func NewGitHub(owner string, repo string) Repository {
	return Repository{
		Kind:  HostGitHub,
		Owner: owner,
		Repo:  repo,
	}
}

// NewForgejo creates a Forgejo repository description.
func NewForgejo(server string, owner string, repo string) Repository {
	return Repository{
		Kind:   HostForgejo,
		Server: server,
		Owner:  owner,
		Repo:   repo,
	}
}

// NewGitLab creates a GitLab repository description. An empty server defaults
// to gitlab.com.
func NewGitLab(repoPath string, server string, privateToken string) Repository {
	if strings.TrimSpace(server) == "" {
		server = defaultGitLabServer
	}
	return Repository{
		Kind:         HostGitLab,
		Server:       server,
		RepoPath:     repoPath,
		PrivateToken: privateToken,
	}
}

// Validate checks that the fields required by the repository's kind are set.
func (r Repository) Validate() error {
	switch r.Kind {
	case HostGit:
		if strings.TrimSpace(r.URL) == "" {
			return fmt.Errorf("git repository requires a url")
		}
	case HostGitHub:
		if r.Owner == "" || r.Repo == "" {
			return fmt.Errorf("github repository requires owner and repo")
		}
	case HostForgejo:
		if r.Server == "" || r.Owner == "" || r.Repo == "" {
			return fmt.Errorf("forgejo repository requires server, owner and repo")
		}
	case HostGitLab:
		if r.Server == "" || r.RepoPath == "" {
			return fmt.Errorf("gitlab repository requires server and repo_path")
		}
	default:
		return fmt.Errorf("unknown repository type %q", r.Kind)
	}

	return nil
}

// gitlabToken returns the configured token, falling back to the GITLAB_TOKEN
// environment variable.
func (r Repository) gitlabToken() string {
	if r.PrivateToken != "" {
		return r.PrivateToken
	}
	return os.Getenv(EnvVarGitLabToken)
}

// serverBase parses and normalizes the configured server URL. The URL must be
// absolute so that path segments can be appended to it.
func (r Repository) serverBase() (*url.URL, error) {
	u, err := url.Parse(strings.TrimSuffix(r.Server, "/"))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%s server URL %q must be an absolute base URL", r.Kind, r.Server)
	}
	return u, nil
}

// CloneURL returns the canonical URL usable with git ls-remote. For GitLab, a
// configured token (or the GITLAB_TOKEN fallback) is embedded as basic-auth
// credentials on the URL.
func (r Repository) CloneURL() (string, error) {
	switch r.Kind {
	case HostGit:
		return r.URL, nil
	case HostGitHub:
		return fmt.Sprintf("%s/%s/%s.git", githubHost(), r.Owner, r.Repo), nil
	case HostForgejo:
		base, err := r.serverBase()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s/%s/%s.git", base, r.Owner, r.Repo), nil
	case HostGitLab:
		base, err := r.serverBase()
		if err != nil {
			return "", err
		}
		if token := r.gitlabToken(); token != "" {
			base.User = url.UserPassword("oauth2", token)
		}
		base.Path = strings.TrimSuffix(base.Path, "/") + "/" + r.RepoPath + ".git"
		return base.String(), nil
	default:
		return "", fmt.Errorf("unknown repository type %q", r.Kind)
	}
}

// DisplayURL returns the clone URL with credentials removed, for use in
// property listings and log output. Errors degrade to the raw configuration
// values since this is display-only.
func (r Repository) DisplayURL() string {
	stripped := r
	stripped.PrivateToken = ""

	// Avoid leaking a token through the environment fallback as well.
	if stripped.Kind == HostGitLab {
		base, err := stripped.serverBase()
		if err != nil {
			return stripped.Server + "/" + stripped.RepoPath
		}
		base.Path = strings.TrimSuffix(base.Path, "/") + "/" + stripped.RepoPath + ".git"
		return base.String()
	}

	u, err := stripped.CloneURL()
	if err != nil {
		return stripped.URL
	}
	return u
}

// ArchiveURL returns the URL of a tarball for an arbitrary revision, or an
// empty string when the host has no such endpoint and a full clone is needed
// instead.
func (r Repository) ArchiveURL(revision string) (string, error) {
	switch r.Kind {
	case HostGit:
		return "", nil
	case HostGitHub:
		return fmt.Sprintf("%s/%s/%s/archive/%s.tar.gz", githubHost(), r.Owner, r.Repo, revision), nil
	case HostForgejo:
		base, err := r.serverBase()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s/%s/%s/archive/%s.tar.gz", base, r.Owner, r.Repo, revision), nil
	case HostGitLab:
		return r.gitlabArchiveURL(revision)
	default:
		return "", fmt.Errorf("unknown repository type %q", r.Kind)
	}
}

// ReleaseArchiveURL returns the URL of a tarball for a release tag, or an
// empty string when the host has no such endpoint. GitHub has a dedicated
// tag-tarball API route distinct from its archive-by-sha route; GitLab uses
// the same archive endpoint for both.
func (r Repository) ReleaseArchiveURL(tag string) (string, error) {
	switch r.Kind {
	case HostGit:
		return "", nil
	case HostGitHub:
		return fmt.Sprintf("%s/repos/%s/%s/tarball/refs/tags/%s", githubAPIHost(), r.Owner, r.Repo, tag), nil
	case HostForgejo:
		base, err := r.serverBase()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s/api/v1/repos/%s/%s/archive/%s.tar.gz", base, r.Owner, r.Repo, tag), nil
	case HostGitLab:
		return r.gitlabArchiveURL(tag)
	default:
		return "", fmt.Errorf("unknown repository type %q", r.Kind)
	}
}

// gitlabArchiveURL builds the API archive endpoint shared by revision and
// release downloads. The project path is passed URL-encoded as a single path
// segment, the revision or tag as a query value, and the token is re-appended
// as a query parameter when present.
func (r Repository) gitlabArchiveURL(rev string) (string, error) {
	base, err := r.serverBase()
	if err != nil {
		return "", err
	}

	query := "sha=" + url.QueryEscape(rev)
	if token := r.gitlabToken(); token != "" {
		query += "&private_token=" + url.QueryEscape(token)
	}

	return fmt.Sprintf(
		"%s/api/v4/projects/%s/repository/archive.tar.gz?%s",
		base,
		url.PathEscape(r.RepoPath),
		query,
	), nil
}

// CommitTimestamp looks up the author timestamp of a commit. Only GitHub
// exposes a commit-metadata API; every other variant returns an empty
// timestamp unconditionally. This is a deliberate capability gap.
func (r Repository) CommitTimestamp(ctx context.Context, revision string) (string, error) {
	if r.Kind != HostGitHub {
		return "", nil
	}

	commitURL := fmt.Sprintf("%s/repos/%s/%s/commits/%s", githubAPIHost(), r.Owner, r.Repo, revision)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, commitURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build commit request for %s: %w", commitURL, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch commit timestamp from %s: %w", commitURL, err)
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch commit timestamp from %s: HTTP %d", commitURL, resp.StatusCode)
	}

	var payload struct {
		Commit struct {
			Author struct {
				Date string `json:"date"`
			} `json:"author"`
		} `json:"commit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode commit response from %s: %w", commitURL, err)
	}

	if payload.Commit.Author.Date == "" {
		return "", fmt.Errorf("expected a commit author date in the GitHub API response for %s", revision)
	}

	return payload.Commit.Author.Date, nil
}

// Properties implements pin.Differ. Credentials are never listed.
func (r Repository) Properties() []pin.Property {
	return []pin.Property{
		{Label: "repository", Value: r.DisplayURL()},
	}
}
