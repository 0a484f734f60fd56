package classes

import "sync"

// Registry is the concurrent class table the VM consults to resolve a
// name to a Class object. Adapted from the teacher's
// vm/class_manager.go ClassManager: same "RWMutex-guarded map table plus a
// current-class cursor" shape, retargeted from PHP class runtimes onto
// spec.md §3.3 Class objects.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*Class
	current *Class // class currently being opened by a class/module body, for `def` inside it
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Class)}
}

func (r *Registry) Get(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

func (r *Registry) Define(name string, upper *Class, flags Flags) *Class {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[name]; ok {
		return existing
	}
	c := New(name, upper, flags)
	r.byName[name] = c
	return c
}

func (r *Registry) SetCurrent(c *Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = c
}

func (r *Registry) Current() *Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// All returns every registered class/module, used by GC root
// enumeration of constant/cvar tables and by cache-invalidation sweeps.
func (r *Registry) All() []*Class {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Class, 0, len(r.byName))
	for _, c := range r.byName {
		out = append(out, c)
	}
	return out
}
