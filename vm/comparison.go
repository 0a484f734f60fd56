package vm

import (
	"github.com/embervm/embervm/heap"
	"github.com/embervm/embervm/values"
)

// Compare3Way implements <=> (spec.md §4.1 OpCmp3Way): -1, 0, 1 for
// numerics, or false (ok=false) when the pair isn't directly
// comparable and the dispatch loop must `send` <=> instead. Grounded
// on the teacher's comparison_executor.go's "numeric fast path, else
// fall through" shape, retargeted from PHP loose-equality juggling to
// Ruby's strict numeric-tower comparison.
func (v *VM) Compare3Way(a, b values.Value) (int, bool) {
	if a.IsFixedInteger() && b.IsFixedInteger() {
		x, y := a.AsInt(), b.AsInt()
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		default:
			return 0, true
		}
	}
	if af, oka := v.asFloat(a); oka {
		if bf, okb := v.asFloat(b); okb {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	return 0, false
}

// IdentityOrValueEqual implements == for values where identity or
// numeric-tower equality is sufficient (spec.md §4.1 OpEq); returns
// ok=false for heap kinds needing a user-level `==` method send
// (strings, arrays, user objects).
func (v *VM) IdentityOrValueEqual(a, b values.Value) (bool, bool) {
	if values.IdentityEqual(a, b) {
		return true, true
	}
	if n, ok := v.Compare3Way(a, b); ok {
		return n == 0, true
	}
	return false, false
}

// TripleEq implements === (spec.md §4.1 OpTripleEq): case-equality,
// used by `when`/`case`. For a Class/Module left-hand pattern this is
// `is_a?`; for everything else it falls back to ==.
func (v *VM) TripleEq(pattern, subject values.Value) (bool, bool) {
	if pattern.IsHeap() {
		if obj := v.Heap.At(pattern.AsHeapIndex()); obj != nil && obj.Kind == heap.KindModuleOrClass {
			cls := v.ClassOf(subject)
			for c := cls; c != nil; c = c.Upper {
				if c.ClassName() == obj.Class.ClassName() {
					return true, true
				}
			}
			return false, true
		}
	}
	return v.IdentityOrValueEqual(pattern, subject)
}
