// Package prefetch computes content hashes for the artifacts a pin resolves
// to. The pin lifecycle decides what to hash (a tarball URL or a repository
// checkout); this package decides how.
package prefetch

import (
	"context"
)

// Hasher is the collaborator interface consumed by the pin lifecycle.
type Hasher interface {
	// TarballHash downloads and unpacks the tarball at url and returns its
	// content hash.
	TarballHash(ctx context.Context, url string) (string, error)

	// GitCheckoutHash checks out revision from repoURL and returns the content
	// hash of the working tree, optionally including submodule content.
	GitCheckoutHash(ctx context.Context, repoURL string, revision string, submodules bool) (string, error)
}
