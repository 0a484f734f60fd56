// Package methods implements the method repository of spec.md §2/§3.4:
// it interns the four method-descriptor variants (bytecode function,
// native function, attribute reader, attribute writer) under a shared
// numeric method id, and owns the two version counters spec.md §4.6
// keys inline caches on. Grounded on the teacher's registry.Function
// (one struct covering both builtin and user-defined methods) and
// registry/registry.go's symbol table, retargeted onto spec.md's
// four-variant descriptor.
package methods

import (
	"sync"
	"sync/atomic"

	"github.com/embervm/embervm/bytecode"
	"github.com/embervm/embervm/values"
)

// DescriptorKind discriminates the method-descriptor union.
type DescriptorKind byte

const (
	KindBytecode DescriptorKind = iota
	KindNative
	KindAttrReader
	KindAttrWriter
)

// NativeFunc is the host-language routine signature for a Native
// descriptor (spec.md §3.4). ctx is narrowed to NativeCallContext so
// that builtin implementations can reach VM services without this
// package importing vm (avoiding an import cycle).
type NativeFunc func(ctx NativeCallContext, receiver values.Value, args []values.Value, block values.Value) (values.Value, error)

// NativeCallContext exposes the minimal VM services a native method
// needs. Adapted from the teacher's vm/builtin_context.go
// BuiltinCallContext interface-segregation pattern.
type NativeCallContext interface {
	Raise(class string, message string) error
	Yield(block values.Value, args []values.Value) (values.Value, error)
}

// Descriptor is one interned method: exactly one of the kind-specific
// fields is populated, selected by Kind.
type Descriptor struct {
	ID   uint32
	Name string
	Kind DescriptorKind

	Bytecode *bytecode.Function
	Native   NativeFunc
	IvarID   uint32 // for KindAttrReader/KindAttrWriter
}

// Repository interns descriptors and hands out stable ids.
type Repository struct {
	mu      sync.RWMutex
	byID    []*Descriptor // index 0 unused, keeps 0 as a "no method" sentinel id
	nextID  uint32

	// constantCacheVersion is bumped by every constant assignment
	// anywhere in the system (spec.md §4.6); constant inline caches
	// compare against it on every probe.
	constantCacheVersion uint64

	// methodCacheVersion is bumped by every runtime method-table
	// mutation (def/def_singleton; spec.md §4.6's "def/undef/include");
	// call-site inline caches compare against it on every probe. One
	// global counter rather than a per-class one: a single integer
	// compare is cheaper than walking the ancestor chain to find which
	// class in it just changed, and redefinition is rare enough that
	// the extra invalidation breadth costs nothing in practice.
	methodCacheVersion uint64
}

func NewRepository() *Repository {
	return &Repository{byID: []*Descriptor{nil}, nextID: 1}
}

func (r *Repository) InternBytecode(name string, fn *bytecode.Function) *Descriptor {
	return r.intern(&Descriptor{Name: name, Kind: KindBytecode, Bytecode: fn})
}

func (r *Repository) InternNative(name string, fn NativeFunc) *Descriptor {
	return r.intern(&Descriptor{Name: name, Kind: KindNative, Native: fn})
}

func (r *Repository) InternAttrReader(name string, ivarID uint32) *Descriptor {
	return r.intern(&Descriptor{Name: name, Kind: KindAttrReader, IvarID: ivarID})
}

func (r *Repository) InternAttrWriter(name string, ivarID uint32) *Descriptor {
	return r.intern(&Descriptor{Name: name, Kind: KindAttrWriter, IvarID: ivarID})
}

func (r *Repository) intern(d *Descriptor) *Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = r.nextID
	r.nextID++
	r.byID = append(r.byID, d)
	return d
}

func (r *Repository) Get(id uint32) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == 0 || int(id) >= len(r.byID) {
		return nil, false
	}
	return r.byID[id], true
}

// BumpConstantCache invalidates every constant inline cache in the
// system (spec.md §4.6, "Invalidated on any constant assignment").
func (r *Repository) BumpConstantCache() {
	atomic.AddUint64(&r.constantCacheVersion, 1)
}

func (r *Repository) ConstantCacheVersion() uint64 {
	return atomic.LoadUint64(&r.constantCacheVersion)
}

// BumpMethodCache invalidates every call-site inline cache in the
// system (spec.md §4.6, "Invalidated on ... def/undef/include").
func (r *Repository) BumpMethodCache() {
	atomic.AddUint64(&r.methodCacheVersion, 1)
}

func (r *Repository) MethodCacheVersion() uint64 {
	return atomic.LoadUint64(&r.methodCacheVersion)
}
