// Package symtab interns the string names spec.md refers to throughout
// as "name id"/"identifier id": method names, constant names, instance
// and class-variable names, and global names. Every package that keys
// a map by name (classes.Class method/constant/cvar tables, the
// compiler's namespaced-storage opcodes, the VM's call-site caches)
// shares one Table so the same name always maps to the same uint32,
// making identity comparisons in hot paths a uint32 compare instead of
// a string compare. Grounded on the teacher's registry package, which
// keeps an analogous string-interning table for PHP identifiers ahead
// of the opcode stream.
package symtab

import "sync"

// Table is a bidirectional string<->id interning table. The zero value
// is not usable; use New.
type Table struct {
	mu      sync.RWMutex
	byName  map[string]uint32
	byID    []string // index 0 unused, keeps 0 as "no name" sentinel
}

func New() *Table {
	return &Table{byName: make(map[string]uint32), byID: []string{""}}
}

// Intern returns the stable id for name, assigning a new one the first
// time it is seen.
func (t *Table) Intern(name string) uint32 {
	t.mu.RLock()
	if id, ok := t.byName[name]; ok {
		t.mu.RUnlock()
		return id
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.byName[name]; ok {
		return id
	}
	id := uint32(len(t.byID))
	t.byID = append(t.byID, name)
	t.byName[name] = id
	return id
}

// Name resolves an id back to its string, or "" if never interned.
func (t *Table) Name(id uint32) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id == 0 || int(id) >= len(t.byID) {
		return ""
	}
	return t.byID[id]
}

// Lookup returns the id for name without interning it.
func (t *Table) Lookup(name string) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byName[name]
	return id, ok
}
