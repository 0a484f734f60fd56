package vm

import (
	"strconv"

	"github.com/embervm/embervm/bytecode"
	"github.com/embervm/embervm/heap"
	"github.com/embervm/embervm/internal/raise"
	"github.com/embervm/embervm/values"
)

// BindArgs implements spec.md §4.5's eight-step argument-binding
// algorithm against a freshly allocated Frame whose Locals slice is
// sized to the callee's MaxLocalSlot (every slot starts uninitialized).
// args is the positional argument slice after any splat has already
// been spread by flattenSplats (vm/support.go) during dispatchSend;
// kwHash is a heap Hash object's Value, or nil if the call passed no
// keyword arguments; block is the passed block or a nil Value.
func BindArgs(v *VM, f *Frame, p *bytecode.Params, args []values.Value, kwHash values.Value, block values.Value) *raise.Error {
	n := len(args)
	min, max := p.Arity()
	if n < min || (p.Splat == bytecode.SplatNone && max >= 0 && n > max) {
		return raise.New(raise.ArgumentError, "wrong number of arguments (given %d, expected %s)", n, arityDesc(min, max))
	}

	// Step 2: first R required-before slots.
	for i := 0; i < p.RequiredBefore; i++ {
		f.SetLocal(uint32(i), args[i])
	}

	// Step 3: last A required-after slots.
	afterBase := p.RequiredBefore + len(p.Optional)
	if p.Splat == bytecode.SplatNamed {
		afterBase++
	}
	for i := 0; i < p.RequiredAfter; i++ {
		f.SetLocal(uint32(afterBase+i), args[n-p.RequiredAfter+i])
	}

	// Step 4: fill min(O, middle) optional slots from the middle span.
	middle := n - p.RequiredBefore - p.RequiredAfter
	filled := middle
	if filled > len(p.Optional) {
		filled = len(p.Optional)
	}
	if filled < 0 {
		filled = 0
	}
	for i := 0; i < filled; i++ {
		f.SetLocal(p.Optional[i].Slot, args[p.RequiredBefore+i])
	}
	// Step 6: unfilled optional slots stay uninitialized; the
	// function's own default-expression prologue (compiler/defs.go's
	// emitDefaultPrologues) fills them in when the body executes.

	// Step 5: splat collects the remainder.
	rest := middle - len(p.Optional)
	if rest < 0 {
		rest = 0
	}
	if p.Splat == bytecode.SplatNamed {
		start := p.RequiredBefore + filled
		arr := make([]values.Value, rest)
		copy(arr, args[start:start+rest])
		idx, obj := v.Heap.Allocate(heap.KindArray)
		obj.Array = &heap.ArrayPayload{Elements: arr}
		c, _ := v.Classes.Get("Array")
		obj.Class = c
		f.SetLocal(p.SplatSlot, values.FromHeapPointer(idx))
	}
	// SplatAnonymous/SplatNone: excess already rejected in step 1, or
	// discarded here with no slot to write.

	// Step 7: keyword parameters consume matching keys from kwHash.
	var kwKeys, kwVals []values.Value
	if !kwHash.IsUninitialized() && kwHash.IsHeap() {
		if obj := v.Heap.At(kwHash.AsHeapIndex()); obj != nil && obj.Hash != nil {
			kwKeys, kwVals = obj.Hash.Keys, obj.Hash.Vals
		}
	}
	consumed := make([]bool, len(kwKeys))
	for _, kp := range p.Keywords {
		found := false
		for i, k := range kwKeys {
			if k.IsSymbol() && k.AsSymbolID() == kp.NameID {
				f.SetLocal(kp.Slot, kwVals[i])
				consumed[i] = true
				found = true
				break
			}
		}
		if !found && !kp.HasDefault {
			return raise.New(raise.ArgumentError, "missing keyword: :%s", v.Symbols.Name(kp.NameID))
		}
		// HasDefault && !found: slot stays uninitialized for the
		// function's own default prologue, mirroring optional positionals.
	}
	if p.KeywordSplat {
		var restKeys, restVals []values.Value
		for i, used := range consumed {
			if !used {
				restKeys = append(restKeys, kwKeys[i])
				restVals = append(restVals, kwVals[i])
			}
		}
		idx, obj := v.Heap.Allocate(heap.KindHash)
		obj.Hash = &heap.HashPayload{Keys: restKeys, Vals: restVals}
		c, _ := v.Classes.Get("Hash")
		obj.Class = c
		f.SetLocal(p.KeywordSplatSlot, values.FromHeapPointer(idx))
	} else {
		for i, used := range consumed {
			if !used {
				name := "?"
				if kwKeys[i].IsSymbol() {
					name = v.Symbols.Name(kwKeys[i].AsSymbolID())
				}
				return raise.New(raise.ArgumentError, "unknown keyword: :%s", name)
			}
		}
	}

	// Step 8: block parameter.
	if p.HasBlockParam {
		f.SetLocal(p.BlockParamSlot, block)
	}
	f.Block = block

	return nil
}

func arityDesc(min, max int) string {
	if max < 0 {
		return strconv.Itoa(min) + "+"
	}
	if min == max {
		return strconv.Itoa(min)
	}
	return strconv.Itoa(min) + ".." + strconv.Itoa(max)
}
