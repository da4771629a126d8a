package dispatch

import (
	"fmt"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/mergefs/mergefs/internal/pathresolve"
)

// DirEntry is one merged directory-listing entry: a plain directory name
// (no mask — directories are logically merged), or a MaskedName for a
// non-directory identity, per §4.4.
type DirEntry struct {
	Name  string
	IsDir bool
}

// identityGroup accumulates the presence mask for one distinct
// FileIdentity encountered under a shared basename.
type identityGroup struct {
	identity pathresolve.Identity
	mask     pathresolve.Mask
}

// Readdir implements the directory merge of §4.4. For each root it lists
// entries at that root's copy of path (a missing directory counts as
// empty); directories are unioned by name alone, while non-directories
// are grouped by FileIdentity and emitted as one MaskedName per distinct
// identity.
//
// The per-name identity groups are keyed by a hash of the basename
// (cespare/xxhash) before the small number of candidate identities
// sharing that hash are compared for exact equality — this keeps the
// scratch structure built for a single call cheap for large directories
// without persisting anything between calls (the engine caches nothing,
// per its non-goals).
func (fs *FS) Readdir(path string) ([]DirEntry, error) {
	candidates, err := fs.resolver.AllRootCandidates(path)
	if err != nil {
		return nil, err
	}

	dirNames := make(map[string]struct{})
	groups := make(map[uint64][]*identityGroup)
	n := fs.Registry.Len()

	for i, bp := range candidates {
		entries, err := os.ReadDir(bp.Path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("readdir %s: %w", bp.Path, err)
		}

		for _, ent := range entries {
			if ent.IsDir() {
				dirNames[ent.Name()] = struct{}{}
				continue
			}

			info, err := ent.Info()
			if err != nil {
				continue // vanished between ReadDir and Info; skip like the entry never existed
			}
			identity := pathresolve.Identity{
				Name:      ent.Name(),
				ModTimeNS: info.ModTime().UnixNano(),
				Size:      info.Size(),
			}

			key := xxhash.Sum64String(identity.Name)
			bucket := groups[key]
			var g *identityGroup
			for _, cand := range bucket {
				if cand.identity == identity {
					g = cand
					break
				}
			}
			if g == nil {
				g = &identityGroup{identity: identity, mask: pathresolve.NewMask(n)}
				groups[key] = append(bucket, g)
			}
			g.mask.Set(i, bp.Root.Label)
		}
	}

	out := make([]DirEntry, 0, len(dirNames)+len(groups))
	for name := range dirNames {
		out = append(out, DirEntry{Name: name, IsDir: true})
	}
	for _, bucket := range groups {
		for _, g := range bucket {
			out = append(out, DirEntry{Name: pathresolve.MaskedName(g.mask, g.identity.Name)})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
