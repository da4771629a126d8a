// Package rootset holds the ordered list of backing roots supplied at
// mount time.
package rootset

import (
	"fmt"
	"os"
	"path/filepath"
)

// Root is an immutable (label, canonical-path) pair. Labels are single
// bytes; '.' is reserved and can never appear here.
type Root struct {
	Label     byte
	Canonical string
}

func (r Root) String() string { return fmt.Sprintf("%c=%s", r.Label, r.Canonical) }

// Registry is the ordered, immutable sequence of Roots. Order is
// significant: it drives the positional semantics of every presence mask
// and determines fan-out and tie-break order throughout the engine.
type Registry struct {
	roots []Root
}

// New validates and builds a Registry from (label, path) pairs in the
// order given on the command line. The root directories must already
// exist; their canonical (symlink-resolved, absolute) form is stored so
// that later path joins never have to re-resolve them.
func New(labels []byte, paths []string) (*Registry, error) {
	if len(labels) != len(paths) {
		return nil, fmt.Errorf("rootset: %d labels but %d paths", len(labels), len(paths))
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("rootset: at least one root is required")
	}

	seen := make(map[byte]bool, len(labels))
	roots := make([]Root, 0, len(labels))
	for i, label := range labels {
		if label == '.' {
			return nil, fmt.Errorf("rootset: '.' is a reserved label")
		}
		if seen[label] {
			return nil, fmt.Errorf("rootset: duplicate label %q", string(label))
		}
		seen[label] = true

		info, err := os.Stat(paths[i])
		if err != nil {
			return nil, fmt.Errorf("rootset: root %q: %w", string(label), err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("rootset: root %q: %s is not a directory", string(label), paths[i])
		}

		canon, err := filepath.EvalSymlinks(paths[i])
		if err != nil {
			return nil, fmt.Errorf("rootset: root %q: %w", string(label), err)
		}
		canon, err = filepath.Abs(canon)
		if err != nil {
			return nil, fmt.Errorf("rootset: root %q: %w", string(label), err)
		}

		roots = append(roots, Root{Label: label, Canonical: canon})
	}

	return &Registry{roots: roots}, nil
}

// Len returns the number of roots (N in the presence-mask algebra).
func (reg *Registry) Len() int { return len(reg.roots) }

// At returns the i-th root in registry order.
func (reg *Registry) At(i int) Root { return reg.roots[i] }

// All returns the full ordered root list. The returned slice must not be
// mutated by callers; it aliases the Registry's own storage.
func (reg *Registry) All() []Root { return reg.roots }

// IndexOf returns the registry-order index of a label, or -1.
func (reg *Registry) IndexOf(label byte) int {
	for i, r := range reg.roots {
		if r.Label == label {
			return i
		}
	}
	return -1
}
