package vm

import (
	"sync"

	"github.com/embervm/embervm/values"
)

// Globals is the flat global-variable table ($foo) shared by every
// fiber (spec.md §3.1 names globals as one of the few mutable
// bindings not scoped to a frame). Adapted from the teacher's
// VariableManager.GlobalVars, narrowed from a PHP name-variant table
// to a single nameID-keyed map since Ruby globals have one spelling.
type Globals struct {
	mu   sync.RWMutex
	vals map[uint32]values.Value
}

func NewGlobals() *Globals { return &Globals{vals: make(map[uint32]values.Value)} }

func (g *Globals) Get(nameID uint32) (values.Value, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.vals[nameID]
	return v, ok
}

func (g *Globals) Set(nameID uint32, v values.Value) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vals[nameID] = v
}

// GetLocal/SetLocal/CheckLocal implement get_local/set_local/
// check_local (spec.md §6): direct access into the current frame's
// slot array, no frame walk.
func (f *Frame) GetLocal(slot uint32) values.Value { return f.Locals[slot] }

func (f *Frame) SetLocal(slot uint32, v values.Value) { f.Locals[slot] = v }

func (f *Frame) CheckLocal(slot uint32) bool {
	return !f.Locals[slot].IsUninitialized()
}

// GetDynLocal/SetDynLocal/CheckDynLocal walk `depth` Outer links before
// touching the slot, exactly mirroring the compiler's
// localScope.resolve depth count (spec.md §4.3 "Closures").
func (f *Frame) GetDynLocal(slot uint32, depth int) values.Value {
	return f.getOuter(depth).GetLocal(slot)
}

func (f *Frame) SetDynLocal(slot uint32, depth int, v values.Value) {
	f.getOuter(depth).SetLocal(slot, v)
}

func (f *Frame) CheckDynLocal(slot uint32, depth int) bool {
	return f.getOuter(depth).CheckLocal(slot)
}
