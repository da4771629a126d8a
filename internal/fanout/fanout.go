// Package fanout implements the single replication helper used by the
// Operation Dispatcher for every multi-root filesystem call.
//
// Earlier designs expressed "apply over all roots / first root only /
// best-inexistent root" as a stack of decorator functions wrapping the
// resolver. Here it is a single helper parameterized by an explicit policy
// enum, so every call site declares its fan-out order in one place instead
// of composing wrappers.
package fanout

// Policy selects which resolved backing paths a Dispatcher operation
// touches, and in what order.
type Policy int

const (
	// AllReverse visits every resolved backing path in reverse
	// registry order. Used by operations whose final, observable state
	// should be the registry-earliest root's (chmod, chown, utimens,
	// truncate, unlink, rmdir, getattr, create, open, mkdir, mknod):
	// running last-to-first means the earliest root is touched last.
	AllReverse Policy = iota
	// AllForward visits every resolved backing path in registry order.
	// Used by access, whose result is a pass/fail over all roots and
	// has no "last writer wins" semantics to protect.
	AllForward
	// FirstOnly visits only the first resolved backing path. Used by
	// statfs and readlink, which report a single filesystem-wide or
	// link-target value.
	FirstOnly
)

// Do applies fn to each element of paths selected by policy, in the order
// the policy specifies, stopping at the first error. It returns that
// error (wrapped by the caller as needed); resources acquired by fn
// before the failing call are fn's own responsibility to release — Do
// itself performs no compensation, matching the engine's documented
// partial-failure behavior.
func Do[T any](paths []T, policy Policy, fn func(T) error) error {
	switch policy {
	case FirstOnly:
		if len(paths) == 0 {
			return nil
		}
		return fn(paths[0])
	case AllReverse:
		for i := len(paths) - 1; i >= 0; i-- {
			if err := fn(paths[i]); err != nil {
				return err
			}
		}
		return nil
	default: // AllForward
		for _, p := range paths {
			if err := fn(p); err != nil {
				return err
			}
		}
		return nil
	}
}

// Collect applies fn to every element of paths in order and gathers the
// results, for callers that need per-root values rather than just the
// last one. Like Do, it stops at the first error and returns only that
// error, discarding the results gathered so far.
func Collect[T, R any](paths []T, fn func(T) (R, error)) ([]R, error) {
	out := make([]R, 0, len(paths))
	for _, p := range paths {
		r, err := fn(p)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
