// Package lock reads and writes the pin lockfile (repin.toml). The lockfile
// holds every declared pin together with its most recently resolved version
// and hash; resolution itself lives in internal/git.
package lock

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	errs "github.com/repin-dev/repin/internal/errors"
	"github.com/repin-dev/repin/internal/git"
	"github.com/repin-dev/repin/internal/perms"
	"github.com/repin-dev/repin/internal/pin"
)

// FileVersion is the lockfile schema version this build reads and writes.
const FileVersion = 1

// Kind discriminates the two pin kinds.
type Kind string

const (
	// KindBranch tracks a branch and always uses its latest commit.
	KindBranch Kind = "branch"

	// KindRelease follows the latest matching release tag.
	KindRelease Kind = "release"
)

// File is the decoded lockfile.
type File struct {
	Version int             `toml:"version"`
	Pins    map[string]*Pin `toml:"pins"`

	// path tracks the file this was loaded from, for Save.
	path string
}

// Pin is one pin entry: the tracking intent plus, once resolved, its pinned
// state.
type Pin struct {
	Type       Kind           `toml:"type"`
	Repository git.Repository `toml:"repository"`

	// Branch pins only.
	Branch string `toml:"branch,omitempty"`

	// Release pins only.
	PreReleases       bool   `toml:"pre_releases,omitempty"`
	VersionUpperBound string `toml:"version_upper_bound,omitempty"`
	ReleasePrefix     string `toml:"release_prefix,omitempty"`

	Submodules bool `toml:"submodules,omitempty"`

	Pinned *Pinned `toml:"pinned,omitempty"`
}

// Pinned is the resolved state of a pin. Version is set for release pins
// only; URL is empty when the hash was computed from a full checkout.
type Pinned struct {
	Version   string `toml:"version,omitempty"`
	Revision  string `toml:"revision,omitempty"`
	Timestamp string `toml:"timestamp,omitempty"`
	URL       string `toml:"url,omitempty"`
	Hash      string `toml:"hash,omitempty"`
}

// Init creates a skeleton lockfile at path. It refuses to overwrite an
// existing file.
func Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	content := fmt.Sprintf("version = %d\n\n[pins]\n", FileVersion)

	if err := os.WriteFile(path, []byte(content), perms.RegularFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// Load reads, decodes and validates the lockfile at path.
func Load(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: path cannot be empty", errs.ErrLockLoadFailed)
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: lockfile cannot be found, run: 'repin init'", errs.ErrLockLoadFailed)
		}
		return nil, fmt.Errorf("%w: failed to stat lockfile (%s): %w", errs.ErrLockLoadFailed, path, err)
	}

	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("%w: failed to decode lockfile (%s): %w", errs.ErrLockLoadFailed, path, err)
	}

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrLockLoadFailed, path, err)
	}

	f.path = path

	return &f, nil
}

// Save writes the lockfile back to the path it was loaded from.
func (f *File) Save() error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("failed to encode lockfile: %w", err)
	}

	if err := os.WriteFile(f.path, buf.Bytes(), perms.RegularFile); err != nil {
		return fmt.Errorf("failed to write lockfile (%s): %w", f.path, err)
	}

	return nil
}

func (f *File) validate() error {
	if f.Version != FileVersion {
		return fmt.Errorf("unsupported lockfile version %d (expected %d)", f.Version, FileVersion)
	}

	for name, p := range f.Pins {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("pin has an empty name")
		}
		if p == nil {
			return fmt.Errorf("pin %q is empty", name)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("pin %q: %w", name, err)
		}
	}

	return nil
}

// Names returns the pin names in stable order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Pins))
	for name := range f.Pins {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// Get returns the named pin.
func (f *File) Get(name string) (*Pin, error) {
	p, ok := f.Pins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrPinNotFound, name)
	}

	return p, nil
}

// AddPin adds a new pin entry. Names must be unique.
func (f *File) AddPin(name string, p *Pin) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("pin name cannot be empty")
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("pin %q: %w", name, err)
	}
	if _, ok := f.Pins[name]; ok {
		return fmt.Errorf("%w: %q", errs.ErrDuplicatePin, name)
	}

	if f.Pins == nil {
		f.Pins = map[string]*Pin{}
	}
	f.Pins[name] = p

	return nil
}

// RemovePin removes a pin entry by name.
func (f *File) RemovePin(name string) error {
	if _, ok := f.Pins[name]; !ok {
		return fmt.Errorf("%w: %q", errs.ErrPinNotFound, name)
	}

	delete(f.Pins, name)

	return nil
}

// Validate checks the pin's configuration for structural problems. Remote
// state is not consulted.
func (p *Pin) Validate() error {
	switch p.Type {
	case KindBranch:
		if strings.TrimSpace(p.Branch) == "" {
			return fmt.Errorf("branch pin requires a branch")
		}
	case KindRelease:
		// All release filters are optional.
	default:
		return fmt.Errorf("unknown pin type %q", p.Type)
	}

	return p.Repository.Validate()
}

// Resolve runs the two-phase lifecycle (update, then fetch) for this pin and
// returns the freshly pinned state. The pin itself is not mutated; the caller
// decides whether to persist the result.
func (p *Pin) Resolve(ctx context.Context, env *git.Env) (*Pinned, error) {
	switch p.Type {
	case KindBranch:
		bp := git.NewBranchPin(env, p.Repository, p.Branch, p.Submodules)

		var old *git.Revision
		if p.Pinned != nil && p.Pinned.Revision != "" {
			old = &git.Revision{Revision: p.Pinned.Revision, Timestamp: p.Pinned.Timestamp}
		}

		revision, err := bp.Update(ctx, old)
		if err != nil {
			return nil, err
		}
		hashes, err := bp.Fetch(ctx, revision)
		if err != nil {
			return nil, err
		}

		return &Pinned{
			Revision:  revision.Revision,
			Timestamp: revision.Timestamp,
			URL:       hashes.URL,
			Hash:      hashes.Hash,
		}, nil
	case KindRelease:
		rp := git.NewReleasePin(env, p.Repository, p.PreReleases, p.VersionUpperBound, p.ReleasePrefix, p.Submodules)

		var old *git.GenericVersion
		if p.Pinned != nil && p.Pinned.Version != "" {
			old = &git.GenericVersion{Version: p.Pinned.Version}
		}

		version, err := rp.Update(ctx, old)
		if err != nil {
			return nil, err
		}
		hashes, err := rp.Fetch(ctx, version)
		if err != nil {
			return nil, err
		}

		return &Pinned{
			Version:  version.Version,
			Revision: hashes.Revision,
			URL:      hashes.URL,
			Hash:     hashes.Hash,
		}, nil
	default:
		return nil, fmt.Errorf("unknown pin type %q", p.Type)
	}
}

// Properties implements pin.Differ for the pin's configuration.
func (p *Pin) Properties() []pin.Property {
	switch p.Type {
	case KindBranch:
		return git.NewBranchPin(nil, p.Repository, p.Branch, p.Submodules).Properties()
	case KindRelease:
		return git.NewReleasePin(nil, p.Repository, p.PreReleases, p.VersionUpperBound, p.ReleasePrefix, p.Submodules).Properties()
	default:
		return nil
	}
}

// ResolvedProperties lists the pinned state as ordered (label, value) pairs,
// shaped per pin kind. A pin that was never resolved yields nothing.
func (p *Pin) ResolvedProperties() []pin.Property {
	if p.Pinned == nil {
		return nil
	}

	orNA := func(s string) string {
		if s == "" {
			return pin.AbsentValue
		}
		return s
	}

	switch p.Type {
	case KindBranch:
		return []pin.Property{
			{Label: "revision", Value: p.Pinned.Revision},
			{Label: "timestamp", Value: orNA(p.Pinned.Timestamp)},
			{Label: "url", Value: orNA(p.Pinned.URL)},
			{Label: "hash", Value: p.Pinned.Hash},
		}
	case KindRelease:
		return []pin.Property{
			{Label: "version", Value: p.Pinned.Version},
			{Label: "revision", Value: p.Pinned.Revision},
			{Label: "url", Value: orNA(p.Pinned.URL)},
			{Label: "hash", Value: p.Pinned.Hash},
		}
	default:
		return nil
	}
}
