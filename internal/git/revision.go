package git

import (
	"fmt"

	errs "github.com/repin-dev/repin/internal/errors"
	"github.com/repin-dev/repin/internal/pin"
)

// Revision is a git revision with an optional timestamp.
//
// Timestamps are populated for GitHub repositories only.
type Revision struct {
	Revision  string `toml:"revision" json:"revision" yaml:"revision"`
	Timestamp string `toml:"timestamp,omitempty" json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// NewRevision validates and wraps a revision string. Anything that is not
// exactly 40 hexadecimal characters is rejected.
func NewRevision(revision string) (Revision, error) {
	if len(revision) != 40 || !isHex(revision) {
		return Revision{}, fmt.Errorf("%w: %q is not a valid git revision (sha1 hash)", errs.ErrInvalidRevision, revision)
	}

	return Revision{Revision: revision}, nil
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Properties implements pin.Differ.
func (r Revision) Properties() []pin.Property {
	timestamp := r.Timestamp
	if timestamp == "" {
		timestamp = pin.AbsentValue
	}

	return []pin.Property{
		{Label: "revision", Value: r.Revision},
		{Label: "timestamp", Value: timestamp},
	}
}

// GenericVersion is an opaque release tag or name, used where no richer
// typing is warranted.
type GenericVersion struct {
	Version string `toml:"version" json:"version" yaml:"version"`
}

// Properties implements pin.Differ.
func (v GenericVersion) Properties() []pin.Property {
	return []pin.Property{
		{Label: "version", Value: v.Version},
	}
}
