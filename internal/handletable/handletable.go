// Package handletable implements the Handle Table: the process-wide (per
// mount instance) map from a virtual file handle to the ordered set of
// backing OS descriptors that make up that logical open file, plus the
// per-handle mutex that serializes I/O against it.
//
// This is an explicit value owned by the mount's Dispatcher, not a
// package-global map — the source this engine is modeled on kept open
// file state in global mutable dictionaries; here the Table is
// constructed once per mount and threaded through explicitly, so two
// mounts in the same process (as in tests) never share state.
package handletable

import (
	"os"
	"sync"
)

// Handle identifies one OpenHandle. Rather than literally being the last
// backing descriptor opened, it is an opaque counter minted by the Table,
// because Go's os.File does not expose a stable small integer suitable for
// reuse as a map key once a descriptor is closed and its fd number
// recycled by the kernel. What matters is preserved regardless: one Handle
// names one fixed, ordered set of backing descriptors for its lifetime.
type Handle uint64

// Entry is an OpenHandle: the ordered backing descriptors for one logical
// open file, and the mutex that serializes read/write against them.
type Entry struct {
	Backing []Backing // reverse-open order: Backing[0] is the last-opened (registry-earliest) root

	mu sync.Mutex
}

// Backing is one backing descriptor together with the root it belongs to,
// so I/O helpers can report which root a divergence happened on.
type Backing struct {
	Label byte
	File  *os.File
}

// Lock acquires the entry's I/O mutex. Callers must call Unlock when done.
// Kept as methods on Entry (rather than exposing the sync.Mutex directly)
// so the zero value can never be copied out and locked separately from
// its backing slice.
func (e *Entry) Lock()   { e.mu.Lock() }
func (e *Entry) Unlock() { e.mu.Unlock() }

// Table is the Handle Table: a registry mutex guarding allocation of
// handles and their entries.
type Table struct {
	mu      sync.Mutex
	next    uint64
	entries map[Handle]*Entry
}

// New returns an empty Table.
func New() *Table {
	return &Table{entries: make(map[Handle]*Entry)}
}

// Register allocates a new Handle for the given ordered backing
// descriptors and inserts it into the table. backing must already be in
// the reverse-open order described on Entry.
func (t *Table) Register(backing []Backing) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	h := Handle(t.next)
	t.entries[h] = &Entry{Backing: backing}
	return h
}

// Lookup returns the Entry for h, or nil if it is not (or no longer)
// registered.
func (t *Table) Lookup(h Handle) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[h]
}

// Release removes h from the table and returns its Entry so the caller
// can close the backing descriptors outside the registry lock.
func (t *Table) Release(h Handle) *Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[h]
	delete(t.entries, h)
	return e
}

// Len reports the number of currently open handles, for tests and
// diagnostics.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
