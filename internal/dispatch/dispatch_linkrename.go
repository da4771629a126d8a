package dispatch

import (
	"fmt"
	"os"

	"github.com/mergefs/mergefs/internal/fserr"
	"github.com/mergefs/mergefs/internal/pathresolve"
)

// resolveLinkRoots implements the shared §4.5 policy of deciding which
// roots a link/symlink touches: source must exist somewhere. Target
// resolution (rule 1 mask decoding, rule 2 existence) is then consulted,
// but — per §4.1 — mask decoding alone proves nothing about whether the
// target actually exists on disk, so existence is checked separately and
// explicitly (step 4), never inferred from resolution having succeeded.
func (fs *FS) resolveLinkRoots(source, target string) (sourceByLabel map[byte]pathresolve.BackingPath, targetBPs []pathresolve.BackingPath, err error) {
	sourceBPs, err := fs.resolver.Resolve(source, false)
	if err != nil {
		return nil, nil, err
	}
	sourceByLabel = make(map[byte]pathresolve.BackingPath, len(sourceBPs))
	for _, bp := range sourceBPs {
		sourceByLabel[bp.Root.Label] = bp
	}

	if resolvedTarget, ok := fs.resolver.TryResolve(target); ok {
		if !subsetOf(resolvedTarget, sourceBPs) {
			return nil, nil, fmt.Errorf("%s: %w", target, fserr.ErrCrossRoot)
		}
		if anyBackingExists(resolvedTarget) {
			return nil, nil, fmt.Errorf("%s: %w", target, os.ErrExist)
		}
		return sourceByLabel, resolvedTarget, nil
	}

	targetBPs = make([]pathresolve.BackingPath, len(sourceBPs))
	for i, bp := range sourceBPs {
		tbp, err := fs.resolver.PathIn(bp.Root, target)
		if err != nil {
			return nil, nil, err
		}
		targetBPs[i] = tbp
	}
	return sourceByLabel, targetBPs, nil
}

func subsetOf(sub, super []pathresolve.BackingPath) bool {
	allowed := make(map[byte]struct{}, len(super))
	for _, bp := range super {
		allowed[bp.Root.Label] = struct{}{}
	}
	for _, bp := range sub {
		if _, ok := allowed[bp.Root.Label]; !ok {
			return false
		}
	}
	return true
}

// anyBackingExists reports whether any of the given backing paths actually
// has a filesystem entry, per §4.5 step 4 — a separate on-disk check from
// path resolution, which (via mask decoding) can succeed without the
// target ever having existed.
func anyBackingExists(bps []pathresolve.BackingPath) bool {
	for _, bp := range bps {
		if _, err := os.Lstat(bp.Path); err == nil {
			return true
		}
	}
	return false
}

// Link implements link(2) per §4.5: source must already exist; the link is
// created under every target root, matched by label to its source backing
// path, in reverse root order.
func (fs *FS) Link(source, target string) error {
	sourceByLabel, targetBPs, err := fs.resolveLinkRoots(source, target)
	if err != nil {
		return err
	}
	for i := len(targetBPs) - 1; i >= 0; i-- {
		t := targetBPs[i]
		s, ok := sourceByLabel[t.Root.Label]
		if !ok {
			return fmt.Errorf("%s: %w", target, fserr.ErrCrossRoot)
		}
		if err := ensureParentDir(t.Path); err != nil {
			return err
		}
		if err := wrapOSErr("link", t.Path, os.Link(s.Path, t.Path)); err != nil {
			return err
		}
	}
	return nil
}

// Symlink implements symlink(2) per §4.5: the same root-selection policy as
// Link, but the text stored in each created symlink is the literal source
// string rather than a backing path — symlink targets are opaque text, not
// re-resolved paths.
func (fs *FS) Symlink(source, target string) error {
	_, targetBPs, err := fs.resolveLinkRoots(source, target)
	if err != nil {
		return err
	}
	for i := len(targetBPs) - 1; i >= 0; i-- {
		t := targetBPs[i]
		if err := ensureParentDir(t.Path); err != nil {
			return err
		}
		if err := wrapOSErr("symlink", t.Path, os.Symlink(source, t.Path)); err != nil {
			return err
		}
	}
	return nil
}

// Rename implements rename(2) per §4.6: old must exist; new, if it resolves
// to anything, must be a subset of old's roots (else the rename can't be
// completed everywhere it needs to be and fails as not-found); the rename
// runs under every root old exists under, in reverse root order.
func (fs *FS) Rename(oldPath, newPath string) error {
	oldBPs, err := fs.resolver.Resolve(oldPath, false)
	if err != nil {
		return err
	}

	if resolvedNew, ok := fs.resolver.TryResolve(newPath); ok {
		if !subsetOf(resolvedNew, oldBPs) {
			return fmt.Errorf("%s: %w", newPath, fserr.ErrCrossRoot)
		}
	}

	newBPs := make([]pathresolve.BackingPath, len(oldBPs))
	for i, bp := range oldBPs {
		nbp, err := fs.resolver.PathIn(bp.Root, newPath)
		if err != nil {
			return err
		}
		newBPs[i] = nbp
	}

	for i := len(oldBPs) - 1; i >= 0; i-- {
		if err := ensureParentDir(newBPs[i].Path); err != nil {
			return err
		}
		if err := wrapOSErr("rename", newBPs[i].Path, os.Rename(oldBPs[i].Path, newBPs[i].Path)); err != nil {
			return err
		}
	}
	return nil
}
