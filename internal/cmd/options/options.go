// Package options provides functional options for command construction,
// mainly so tests can swap the resolution environment for fakes.
package options

import (
	"fmt"

	"github.com/repin-dev/repin/internal/git"
)

// CmdOption configures optional collaborators for a command.
type CmdOption func(*Options) error

// Options contains configurable collaborators for commands.
type Options struct {
	Env *git.Env
}

// NewOptions applies the given options over the defaults. A nil Env means the
// command wires up the real one (subprocess git and Nix prefetch tools) when
// it runs.
func NewOptions(opt ...CmdOption) (Options, error) {
	opts := Options{}

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return Options{}, err
		}
	}

	return opts, nil
}

// WithEnv sets the resolution environment used by pin operations.
func WithEnv(env *git.Env) CmdOption {
	return func(o *Options) error {
		if env == nil {
			return fmt.Errorf("environment cannot be nil")
		}
		o.Env = env
		return nil
	}
}
