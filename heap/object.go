// Package heap implements the polymorphic heap object (spec.md §3.2)
// and the allocator/GC that owns it (spec.md §4.2, §9). Payload shapes
// are grounded on the teacher's values.Array/Object/Closure structs
// (wudi-hey values/value.go), retagged from PHP's value union onto the
// Ruby-subset object-kind tag of spec.md §3.2.
package heap

import (
	"math/big"
	"sync"

	"github.com/embervm/embervm/values"
)

// Kind discriminates the union an Object's payload holds.
type Kind byte

const (
	KindInvalid Kind = iota // reclaimed-slot marker; observing it at runtime is a bug
	KindArray
	KindHash
	KindString
	KindBigInteger
	KindHeapFloat
	KindComplex
	KindRange
	KindRegexp
	KindModuleOrClass
	KindMethodObject
	KindUnboundMethod
	KindProc
	KindFiber
	KindEnumerator
	KindYielder
	KindBinding
	KindException
	KindTime
	KindSplat
	KindOrdinary
)

// Color is the tricolor mark-sweep state of an Object (spec.md §9).
type Color byte

const (
	White Color = iota // candidate for collection
	Gray               // reachable, children not yet scanned
	Black              // reachable, children scanned
)

// Object is a garbage-collected heap value: an object-kind tag, a
// class pointer, a lazily allocated instance-variable map, and one
// kind-specific payload.
type Object struct {
	Kind  Kind
	Class ClassRef // the object's direct class (possibly a singleton); opaque to this package

	ivars map[uint32]values.Value // identifier id -> value, lazily allocated
	mu    sync.RWMutex

	color Color
	next  *Object // allocator free-list / mark-stack linkage

	// Exactly one of the following is populated, selected by Kind.
	Array     *ArrayPayload
	Hash      *HashPayload
	Str       *StringPayload
	BigInt    *big.Int
	HeapFloat float64
	Complex   [2]values.Value // [real, imaginary]
	Range     *RangePayload
	Regexp    *RegexpPayload
	Method    *MethodPayload
	Proc      *ProcPayload
	Fiber     any // *fiber.Fiber; stored as any to avoid an import cycle
	Enum      any // *fiber.Enumerator
	Yielder   any // *fiber.Yielder, backing Enumerator::Yielder's "<<"/"yield"
	Binding   *BindingPayload
	Exception *ExceptionPayload
	Time      int64 // Unix nanoseconds; Time builtin method bodies are out of scope
	Splat     values.Value
}

// ClassRef is an opaque handle to a classes.Class, redeclared here to
// avoid heap importing classes (classes imports heap for Object
// storage of ivars/consts). Concretely it is a *classes.Class wrapped
// behind this alias by the classes package's registration call.
type ClassRef interface {
	ClassName() string
}

// ArrayPayload backs KindArray.
type ArrayPayload struct {
	Elements []values.Value
}

// HashPayload backs KindHash. Ruby hashes preserve insertion order;
// Keys mirrors that order while Index gives O(1) lookup.
type HashPayload struct {
	Keys   []values.Value
	Vals   []values.Value
	Index  map[uint64]int // IdentityHash(key) -> position in Keys/Vals
	Frozen bool
}

// StringPayload backs KindString.
type StringPayload struct {
	Bytes []byte
}

// RangePayload backs KindRange.
type RangePayload struct {
	Start, End values.Value
	Exclusive  bool
}

// RegexpPayload backs KindRegexp. Only the registration contract is
// specified; the actual pattern engine is a builtin method body and
// out of scope.
type RegexpPayload struct {
	Source string
	Flags  string
}

// MethodPayload backs KindMethodObject/KindUnboundMethod: a bound (or
// unbound) handle to a method-repository entry.
type MethodPayload struct {
	MethodID  uint32
	Receiver  values.Value // zero Value for an unbound method
	OwnerName string
}

// ProcPayload backs KindProc: a captured block or lambda.
type ProcPayload struct {
	MethodID uint32
	Outer    any  // *vm.Frame, stored as any to avoid an import cycle
	IsLambda bool
}

// BindingPayload backs KindBinding: a captured lexical scope usable by
// Kernel#binding.
type BindingPayload struct {
	Frame any // *vm.Frame
}

// ExceptionPayload backs KindException.
type ExceptionPayload struct {
	ClassName string
	Message   string
	Backtrace []BacktraceEntry
}

// BacktraceEntry is one (source, location) pair appended as an
// exception unwinds the frame stack (spec.md §7).
type BacktraceEntry struct {
	Source   string
	Line     int
	FuncName string
}

func (o *Object) GetIvar(id uint32) (values.Value, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.ivars[id]
	return v, ok
}

func (o *Object) SetIvar(id uint32, v values.Value) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ivars == nil {
		o.ivars = make(map[uint32]values.Value)
	}
	o.ivars[id] = v
}

// IvarIDs returns the set of instance-variable identifier ids
// currently populated, used by Object#instance_variables and by GC
// root scanning of an object's own ivar table.
func (o *Object) IvarIDs() []uint32 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	ids := make([]uint32, 0, len(o.ivars))
	for id := range o.ivars {
		ids = append(ids, id)
	}
	return ids
}
