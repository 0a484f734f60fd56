package heap

import (
	"sync"

	"github.com/embervm/embervm/values"
)

// RootProvider is implemented by whatever owns the GC roots: the value
// stack, frame stack, temporary stack, and every live fiber's stacks
// (spec.md §5, "GC root enumeration"). The allocator depends only on
// this narrow interface so that vm and fiber can register roots
// without heap importing either package.
type RootProvider interface {
	// EnumerateRoots appends every Value transitively reachable as a
	// root (not just heap pointers) into dst and returns the extended
	// slice. Non-heap values are harmless to include; the marker
	// ignores them.
	EnumerateRoots(dst []values.Value) []values.Value
}

// Allocator owns a pool of heap Objects, indexed densely so that
// values.Value's heap-pointer encoding can store a plain array index
// instead of a real pointer (spec.md §9 "arena allocation indexed by a
// stable id" resolves the cyclic class<->singleton ownership problem
// the same way).
type Allocator struct {
	mu      sync.Mutex
	objects []*Object // index 0 is never allocated so index 0 stays an invalid sentinel
	free    *Object   // free list head, threaded through Object.next

	roots []RootProvider

	// GCThreshold is the number of allocations since the last
	// collection that triggers the next automatic collection; a
	// collection doubles it whenever more than half that many objects
	// survive, a standard growth heuristic without generations.
	GCThreshold int

	allocSinceGC int
}

// NewAllocator constructs an allocator with a reclaimed-slot sentinel
// pre-seated at index 0.
func NewAllocator() *Allocator {
	a := &Allocator{
		objects:     []*Object{{Kind: KindInvalid}},
		GCThreshold: 4096,
	}
	return a
}

// RegisterRoots adds a root provider (a VM's frame/value/temp stacks,
// or a fiber table) that Mark will consult on every collection.
func (a *Allocator) RegisterRoots(r RootProvider) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.roots = append(a.roots, r)
}

// Allocate returns a fresh heap index for the given kind, reusing a
// freed slot when one is available, and triggers a safe-point
// collection when the allocations since the last one reach GCThreshold (spec.md
// §4.4 "GC safe-point").
func (a *Allocator) Allocate(kind Kind) (index uint64, obj *Object) {
	a.mu.Lock()
	if a.free != nil {
		obj = a.free
		a.free = obj.next
		obj.next = nil
		*obj = Object{Kind: kind}
		index = a.indexOfLocked(obj)
		a.mu.Unlock()
		return index, obj
	}
	obj = &Object{Kind: kind}
	a.objects = append(a.objects, obj)
	index = uint64(len(a.objects) - 1)
	a.allocSinceGC++
	shouldGC := a.allocSinceGC >= a.GCThreshold
	a.mu.Unlock()
	if shouldGC {
		a.Collect()
	}
	return index, obj
}

// indexOfLocked performs a linear scan to recover an index for a
// freed-then-reused object. The free list is small in practice
// (bounded by collection cadence) so this stays cheap; a production
// allocator would instead store the index on Object directly, but
// spec.md §9 only specifies the mark contract, not the indexing
// scheme, so the simplest correct approach is kept.
func (a *Allocator) indexOfLocked(obj *Object) uint64 {
	for i, o := range a.objects {
		if o == obj {
			return uint64(i)
		}
	}
	// Should not happen: obj came off a.objects' free list.
	a.objects = append(a.objects, obj)
	return uint64(len(a.objects) - 1)
}

// At dereferences a heap index. Observing KindInvalid here is a
// runtime bug per spec.md §3.2.
func (a *Allocator) At(index uint64) *Object {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index == 0 || int(index) >= len(a.objects) {
		return nil
	}
	return a.objects[index]
}

// Collect runs one full tricolor mark followed by a lazy sweep
// (spec.md §4.2's "Allocator + GC" line: "tricolor mark, lazy sweep").
// All roots are grayed, the mark stack is drained coloring reachable
// objects black, then every object still white is pushed onto the
// free list; the actual reclamation of space is deferred to the next
// Allocate that pops the free list ("lazy").
func (a *Allocator) Collect() {
	a.mu.Lock()
	objects := a.objects
	roots := make([]RootProvider, len(a.roots))
	copy(roots, a.roots)
	a.mu.Unlock()

	for _, o := range objects {
		if o != nil {
			o.color = White
		}
	}

	var gray []*Object
	var rootVals []values.Value
	for _, r := range roots {
		rootVals = r.EnumerateRoots(rootVals[:0])
		for _, v := range rootVals {
			if v.IsHeap() {
				if o := a.At(v.AsHeapIndex()); o != nil && o.color == White {
					o.color = Gray
					gray = append(gray, o)
				}
			}
		}
	}

	for len(gray) > 0 {
		o := gray[len(gray)-1]
		gray = gray[:len(gray)-1]
		if o.color == Black {
			continue
		}
		o.color = Black
		for _, child := range children(o) {
			if child.IsHeap() {
				if co := a.At(child.AsHeapIndex()); co != nil && co.color == White {
					co.color = Gray
					gray = append(gray, co)
				}
			}
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	live := 0
	for i, o := range objects {
		if i == 0 || o == nil {
			continue
		}
		if o.color == White {
			o.Kind = KindInvalid
			o.next = a.free
			a.free = o
		} else {
			live++
		}
	}
	a.allocSinceGC = 0
	if live*2 > a.GCThreshold {
		a.GCThreshold *= 2
	}
}

// children returns every Value an object's payload directly holds, the
// "mark" half of the tricolor contract (spec.md §9: "a faithful
// implementation uses ... an explicit linked chain"). Each kind knows
// its own shape; this is the single place that enumerates all of
// them, matching the teacher's pattern of one exhaustive switch per
// structural concern (e.g. registry/types.go's Class/Function split).
func children(o *Object) []values.Value {
	switch o.Kind {
	case KindArray:
		if o.Array != nil {
			return o.Array.Elements
		}
	case KindHash:
		if o.Hash != nil {
			out := make([]values.Value, 0, len(o.Hash.Keys)+len(o.Hash.Vals))
			out = append(out, o.Hash.Keys...)
			out = append(out, o.Hash.Vals...)
			return out
		}
	case KindRange:
		if o.Range != nil {
			return []values.Value{o.Range.Start, o.Range.End}
		}
	case KindComplex:
		return o.Complex[:]
	case KindMethodObject, KindUnboundMethod:
		if o.Method != nil {
			return []values.Value{o.Method.Receiver}
		}
	case KindSplat:
		return []values.Value{o.Splat}
	}
	ivarVals := make([]values.Value, 0, len(o.ivars))
	o.mu.RLock()
	for _, v := range o.ivars {
		ivarVals = append(ivarVals, v)
	}
	o.mu.RUnlock()
	return ivarVals
}
