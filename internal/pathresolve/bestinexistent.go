package pathresolve

import (
	"os"
	"strings"
)

// bestInexistent implements §4.1.1: when virtualPath exists under no root,
// pick the root whose tree already contains the longest existing prefix of
// the requested path, so new entries (mkdir, create, mknod) attach where
// related entries already live.
func (r *Resolver) bestInexistent(virtualPath string) (BackingPath, error) {
	components := splitComponents(virtualPath)

	type entry struct {
		rootIdx int
		virtual string // virtual prefix consumed so far, "" means root
	}

	working := make([]entry, r.reg.Len())
	for i := 0; i < r.reg.Len(); i++ {
		working[i] = entry{rootIdx: i, virtual: ""}
	}

	consumed := 0
	for _, c := range components {
		next := make([]entry, 0, len(working))
		for _, w := range working {
			candidateVirtual := w.virtual + "/" + c
			p, err := join(r.reg.At(w.rootIdx), candidateVirtual)
			if err != nil {
				return BackingPath{}, err
			}
			if _, err := os.Lstat(p); err == nil {
				next = append(next, entry{rootIdx: w.rootIdx, virtual: candidateVirtual})
			}
		}
		if len(next) == 0 {
			break
		}
		working = next
		consumed++
	}

	chosen := working[0]
	finalVirtual := chosen.virtual
	for _, c := range components[consumed:] {
		finalVirtual += "/" + c
	}
	if finalVirtual == "" {
		finalVirtual = "/"
	}

	root := r.reg.At(chosen.rootIdx)
	p, err := join(root, finalVirtual)
	if err != nil {
		return BackingPath{}, err
	}
	return BackingPath{Root: root, Path: p}, nil
}

// splitComponents splits an absolute virtual path into its non-empty
// components, e.g. "/a/b/c" -> ["a", "b", "c"]. "/" splits to nil.
func splitComponents(virtualPath string) []string {
	trimmed := strings.Trim(virtualPath, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
