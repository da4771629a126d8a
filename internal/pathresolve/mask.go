package pathresolve

import (
	"fmt"
	"strings"

	"github.com/mergefs/mergefs/internal/rootset"
)

// Identity is the (name, mtime-ns, size) tuple used to decide whether two
// same-named entries under different roots are "the same file" for the
// purposes of directory-listing masking. It deliberately ignores content.
type Identity struct {
	Name      string
	ModTimeNS int64
	Size      int64
}

// Mask is a PresenceMask: one byte per root, either that root's label
// (present) or '.' (absent). Its length always equals the registry's
// root count.
type Mask []byte

// NewMask returns an all-absent mask of the given length.
func NewMask(n int) Mask {
	m := make(Mask, n)
	for i := range m {
		m[i] = '.'
	}
	return m
}

// Set marks root i as present in the mask.
func (m Mask) Set(i int, label byte) { m[i] = label }

func (m Mask) String() string { return string(m) }

// MaskedName builds the `<mask>_<basename>` directory-entry name for a
// non-directory FileIdentity, per §4.4.
func MaskedName(m Mask, basename string) string {
	return m.String() + "_" + basename
}

// ErrInvalidMask is returned by DecodeMask when the candidate mask text
// does not correspond to the registry (wrong length, or a position whose
// character is neither '.' nor that position's label).
var ErrInvalidMask = fmt.Errorf("pathresolve: invalid presence mask")

// DecodeMask validates candidate against reg and returns the set of
// registry indices it selects, in registry order. It implements rule 1 of
// §4.1 (mask decoding): every position must be '.' or exactly that root's
// label; any other character invalidates the whole mask. A mask that
// decodes to zero selected roots is also rejected (§4.1 requires "at
// least one root was selected").
func DecodeMask(reg *rootset.Registry, candidate string) ([]int, error) {
	if len(candidate) != reg.Len() {
		return nil, ErrInvalidMask
	}
	var selected []int
	for i := 0; i < reg.Len(); i++ {
		c := candidate[i]
		if c == '.' {
			continue
		}
		if c != reg.At(i).Label {
			return nil, ErrInvalidMask
		}
		selected = append(selected, i)
	}
	if len(selected) == 0 {
		return nil, ErrInvalidMask
	}
	return selected, nil
}

// SplitMaskedName splits a directory-entry basename into a candidate mask
// prefix and the remainder, if it has the shape `<N chars>_<rest>` where N
// is the registry's root count. It does not validate the mask text itself
// (DecodeMask does that) — it only recognizes the shape described in
// §4.1: "if len(basename) > N and basename[N] == '_'".
func SplitMaskedName(basename string, n int) (mask, rest string, ok bool) {
	if len(basename) <= n || basename[n] != '_' {
		return "", "", false
	}
	return basename[:n], basename[n+1:], true
}

// splitPath divides a virtual path into its directory and final
// component, mirroring Python's os.path.split: the directory retains no
// trailing slash (except for the root "/").
func splitPath(virtualPath string) (dir, base string) {
	i := strings.LastIndexByte(virtualPath, '/')
	if i < 0 {
		return "", virtualPath
	}
	if i == 0 {
		return "/", virtualPath[1:]
	}
	return virtualPath[:i], virtualPath[i+1:]
}
