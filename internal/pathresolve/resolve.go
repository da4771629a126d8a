// Package pathresolve implements the Path Resolver: given a virtual path,
// it decides which backing roots participate in an operation and what
// concrete path to use on each. This is the brain of the merge engine;
// every other component consumes its output.
package pathresolve

import (
	"errors"
	"os"

	"github.com/mergefs/mergefs/internal/rootset"
)

// ErrNotFound is returned by Resolve when a virtual path exists under no
// root and best-inexistent selection was not requested (or, per §4.1
// rule 4, is simply not applicable).
var ErrNotFound = errors.New("pathresolve: not found")

// Resolver applies the four-rule path-resolution algorithm (mask decoding,
// existence fan-out, best-inexistent selection, not-found) against a fixed
// Registry.
type Resolver struct {
	reg *rootset.Registry
}

// New returns a Resolver bound to reg.
func New(reg *rootset.Registry) *Resolver { return &Resolver{reg: reg} }

// Resolve returns the ordered list of BackingPath that should participate
// in an operation on virtualPath. If allowBestInexistent is true and the
// path exists under no root, a single synthesized entry is returned
// instead of ErrNotFound (rule 3, §4.1.1).
func (r *Resolver) Resolve(virtualPath string, allowBestInexistent bool) ([]BackingPath, error) {
	if bp, ok, err := r.decodeMaskedName(virtualPath); err != nil {
		return nil, err
	} else if ok {
		return bp, nil
	}

	if bp, ok, err := r.existenceFanOut(virtualPath); err != nil {
		return nil, err
	} else if ok {
		return bp, nil
	}

	if allowBestInexistent {
		bp, err := r.bestInexistent(virtualPath)
		if err != nil {
			return nil, err
		}
		return []BackingPath{bp}, nil
	}

	return nil, ErrNotFound
}

// TryResolve is the non-erroring counterpart to Resolve, used by link and
// rename (§4.5, §4.6) to synthesize a target without relying on
// exceptions for control flow: it reports whether the path resolved to
// anything, rather than returning an error.
func (r *Resolver) TryResolve(virtualPath string) ([]BackingPath, bool) {
	bp, err := r.Resolve(virtualPath, false)
	if err != nil {
		return nil, false
	}
	return bp, true
}

// AllRootCandidates returns one literal candidate path per root for
// virtualPath, regardless of whether it exists — used by readdir (§4.4),
// which treats a missing directory under a root as an empty listing
// rather than excluding that root.
func (r *Resolver) AllRootCandidates(virtualPath string) ([]BackingPath, error) {
	out := make([]BackingPath, r.reg.Len())
	for i := 0; i < r.reg.Len(); i++ {
		root := r.reg.At(i)
		p, err := join(root, virtualPath)
		if err != nil {
			return nil, err
		}
		out[i] = BackingPath{Root: root, Path: p}
	}
	return out, nil
}

// PathIn returns the concrete backing path virtualPath would have under a
// specific root, without checking existence. Used by link/symlink/rename
// (§4.5, §4.6) to build a target's per-root path once the set of roots to
// act on has already been decided by other means (typically the source's
// resolved roots, not the target's own resolution).
func (r *Resolver) PathIn(root rootset.Root, virtualPath string) (BackingPath, error) {
	p, err := join(root, virtualPath)
	if err != nil {
		return BackingPath{}, err
	}
	return BackingPath{Root: root, Path: p}, nil
}

// decodeMaskedName implements §4.1 rule 1. It reports ok=false (with a nil
// error) whenever the basename doesn't have the masked-name shape or the
// mask text is invalid, so callers fall through to the existence rule.
func (r *Resolver) decodeMaskedName(virtualPath string) ([]BackingPath, bool, error) {
	dir, base := splitPath(virtualPath)
	candidate, rest, ok := SplitMaskedName(base, r.reg.Len())
	if !ok {
		return nil, false, nil
	}

	selected, err := DecodeMask(r.reg, candidate)
	if err != nil {
		return nil, false, nil
	}

	var suffix string
	if dir == "/" || dir == "" {
		suffix = "/" + rest
	} else {
		suffix = dir + "/" + rest
	}

	out := make([]BackingPath, 0, len(selected))
	for _, i := range selected {
		root := r.reg.At(i)
		p, err := join(root, suffix)
		if err != nil {
			return nil, false, err
		}
		out = append(out, BackingPath{Root: root, Path: p})
	}
	return out, true, nil
}

// existenceFanOut implements §4.1 rule 2: include every root under which
// virtualPath actually exists (as an lstat, not following a final
// symlink), in registry order.
func (r *Resolver) existenceFanOut(virtualPath string) ([]BackingPath, bool, error) {
	var out []BackingPath
	for i := 0; i < r.reg.Len(); i++ {
		root := r.reg.At(i)
		p, err := join(root, virtualPath)
		if err != nil {
			return nil, false, err
		}
		if _, err := os.Lstat(p); err == nil {
			out = append(out, BackingPath{Root: root, Path: p})
		} else if !os.IsNotExist(err) {
			return nil, false, err
		}
	}
	return out, len(out) > 0, nil
}
