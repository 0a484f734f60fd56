// Package classes implements the class/module model of spec.md §3.3:
// the singleton chain, the mix-in chain, and the per-class method,
// constant, and class-variable tables. Grounded on the teacher's
// vm/class_manager.go (a concurrent class table plus a "current class"
// cursor) and registry/types.go's Class, retargeted from PHP's
// single-inheritance-plus-interfaces model onto the linear `upper`
// chain spec.md describes.
package classes

import (
	"fmt"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/embervm/embervm/values"
)

// Flags captures the three boolean facets of a Class spec.md §3.3 lists.
type Flags uint8

const (
	FlagModule Flags = 1 << iota
	FlagSingleton
	FlagIncludedProxy
)

// Class is a class or module object: a name, an `upper` link forming
// the method-resolution chain, a method table, a constant table, and
// a class-variable table.
type Class struct {
	mu sync.RWMutex

	name  string // empty for an unnamed class; prints as #<Class:0xHEX>
	id    uint64 // stable arena-style id, used for the #<Class:0xHEX> form and cache versioning
	Flags Flags

	Upper *Class // immediate superclass, or the included-module proxy above it

	methods   map[uint32]uint32 // identifier id -> method id (package methods owns the repository)
	constants map[uint32]values.Value
	cvars     map[uint32]values.Value

	singleton *Class // this class's own singleton class, if one has been created
	// singletonOf links a singleton class back to the object/class it
	// was created for, needed to keep the parallel singleton chain
	// (spec.md §4.2) when the receiver is itself a class.
	singletonOf *Class

	// version is bumped by any method-table or upper-chain mutation;
	// it is the inline-cache invalidation counter of spec.md §4.6.
	version uint64
}

var (
	idMu   sync.Mutex
	nextID uint64
)

func allocID() uint64 {
	idMu.Lock()
	defer idMu.Unlock()
	nextID++
	return nextID
}

// New creates a named or anonymous class/module with the given upper
// link (nil at the root of the chain).
func New(name string, upper *Class, flags Flags) *Class {
	return &Class{
		name:      name,
		id:        allocID(),
		Flags:     flags,
		Upper:     upper,
		methods:   make(map[uint32]uint32),
		constants: make(map[uint32]values.Value),
		cvars:     make(map[uint32]values.Value),
	}
}

// ClassName implements heap.ClassRef.
func (c *Class) ClassName() string {
	if c.name != "" {
		return c.name
	}
	return fmt.Sprintf("#<Class:0x%016x>", c.id)
}

func (c *Class) IsModule() bool         { return c.Flags&FlagModule != 0 }
func (c *Class) IsSingleton() bool      { return c.Flags&FlagSingleton != 0 }
func (c *Class) IsIncludedProxy() bool  { return c.Flags&FlagIncludedProxy != 0 }
func (c *Class) Version() uint64        { c.mu.RLock(); defer c.mu.RUnlock(); return c.version }
func (c *Class) ID() uint64             { return c.id }
func (c *Class) bumpVersion()           { c.version++ }
func (c *Class) SingletonOf() *Class    { return c.singletonOf }

// AddMethod interns (name id -> method id) into the method table and
// invalidates every call-site cache keyed on this class (spec.md
// §4.6: "Invalidated globally by incrementing the version any time a
// method table mutates").
func (c *Class) AddMethod(nameID uint32, methodID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods[nameID] = methodID
	c.bumpVersion()
}

func (c *Class) RemoveMethod(nameID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.methods, nameID)
	c.bumpVersion()
}

// OwnMethod probes this class's own method table without walking Upper.
func (c *Class) OwnMethod(nameID uint32) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.methods[nameID]
	return id, ok
}

// MethodNames snapshots the method table's keys, used by cache-sweep
// diagnostics and by Module#instance_methods.
func (c *Class) MethodNames() []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Keys(c.methods)
}

func (c *Class) GetConstant(nameID uint32) (values.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.constants[nameID]
	return v, ok
}

// SetConstant assigns a constant. Per spec.md §4.2 this invalidates
// every constant cache in the system; that global invalidation is
// driven by a monotonic counter owned by the method-repository package
// (methods.ConstantCacheVersion), bumped by the caller after SetConstant
// returns, keeping this package free of a dependency on package vm.
func (c *Class) SetConstant(nameID uint32, v values.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.constants[nameID] = v
}

func (c *Class) GetClassVar(nameID uint32) (values.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.cvars[nameID]
	return v, ok
}

func (c *Class) SetClassVar(nameID uint32, v values.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cvars[nameID] = v
}

// IncludeModule splices a module into the inclusion chain as an
// "included proxy" class object (spec.md §3.3): the proxy shares the
// module's method table by reference and gets its own Upper link, so
// repeated inclusion forms a linear chain rather than a diamond.
func (c *Class) IncludeModule(mod *Class) {
	c.mu.Lock()
	defer c.mu.Unlock()
	proxy := &Class{
		name:      mod.name,
		id:        allocID(),
		Flags:     FlagIncludedProxy,
		Upper:     c.Upper,
		methods:   mod.methods, // shared, not copied: module method-table mutations show through
		constants: mod.constants,
		cvars:     mod.cvars,
	}
	c.Upper = proxy
	c.bumpVersion()
}

// LookupMethod walks the upper chain starting at c, the spec.md §4.2
// resolution order. It never invokes method_missing; that re-dispatch
// is the dispatch loop's responsibility once LookupMethod reports a miss.
func (c *Class) LookupMethod(nameID uint32) (methodID uint32, owner *Class, ok bool) {
	for cur := c; cur != nil; cur = cur.Upper {
		if id, found := cur.OwnMethod(nameID); found {
			return id, cur, true
		}
	}
	return 0, nil, false
}

// GetSingletonClass returns the receiver's singleton class, creating
// one on first use (spec.md §4.2). When receiver is itself a class,
// the new singleton's Upper is linked to the singleton of receiver's
// superclass, preserving the parallel singleton chain.
func GetSingletonClass(receiverDirectClass *Class) *Class {
	c := receiverDirectClass
	if c.IsSingleton() {
		return c
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.singleton != nil {
		return c.singleton
	}
	upper := c.Upper
	if c.Upper != nil {
		upper = GetSingletonClass(c.Upper)
	}
	sc := &Class{
		name:        "",
		id:          allocID(),
		Flags:       FlagSingleton,
		Upper:       upper,
		methods:     make(map[uint32]uint32),
		constants:   make(map[uint32]values.Value),
		cvars:       make(map[uint32]values.Value),
		singletonOf: c,
	}
	c.singleton = sc
	return sc
}
