package pathresolve

import (
	"fmt"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/mergefs/mergefs/internal/rootset"
)

// BackingPath pairs a Root with the concrete path an operation should use
// on that root's underlying filesystem.
type BackingPath struct {
	Root rootset.Root
	Path string
}

// join builds the concrete path for virtualPath under root, scoping the
// result inside root.Canonical even if virtualPath contains crafted ".."
// segments or a component of it is a symlink planted inside the root.
// This is the only place the engine concatenates a root's canonical path
// with caller-controlled input.
func join(root rootset.Root, virtualPath string) (string, error) {
	p, err := securejoin.SecureJoin(root.Canonical, virtualPath)
	if err != nil {
		return "", fmt.Errorf("pathresolve: join %s under root %c: %w", virtualPath, root.Label, err)
	}
	return p, nil
}
