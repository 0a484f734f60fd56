package main

import (
	"fmt"
	"strings"

	"github.com/embervm/embervm/heap"
	"github.com/embervm/embervm/values"
	"github.com/embervm/embervm/vm"
)

// inspect renders val for the demo/REPL's output, falling back to
// "#<ClassName>" for any heap kind with no special-cased rendering
// below (the real Inspect/to_s method bodies are out of scope, same
// as every other builtin method body).
func inspect(v *vm.VM, val values.Value) string {
	if s, ok := values.InspectImmediate(val); ok {
		return s
	}
	if !val.IsHeap() {
		return "#<unknown>"
	}
	obj := v.Heap.At(val.AsHeapIndex())
	if obj == nil {
		return "#<collected>"
	}
	switch obj.Kind {
	case heap.KindString:
		return fmt.Sprintf("%q", string(obj.Str.Bytes))
	case heap.KindArray:
		parts := make([]string, len(obj.Array.Elements))
		for i, e := range obj.Array.Elements {
			parts[i] = inspect(v, e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case heap.KindHash:
		parts := make([]string, len(obj.Hash.Keys))
		for i, k := range obj.Hash.Keys {
			parts[i] = inspect(v, k) + " => " + inspect(v, obj.Hash.Vals[i])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case heap.KindRange:
		sep := ".."
		if obj.Range.Exclusive {
			sep = "..."
		}
		return inspect(v, obj.Range.Start) + sep + inspect(v, obj.Range.End)
	case heap.KindBigInteger:
		return obj.BigInt.String()
	case heap.KindHeapFloat:
		return fmt.Sprintf("%g", obj.HeapFloat)
	case heap.KindException:
		return fmt.Sprintf("#<%s: %s>", obj.Exception.ClassName, obj.Exception.Message)
	case heap.KindModuleOrClass:
		if obj.Class != nil {
			return obj.Class.ClassName()
		}
		return "#<Class>"
	}
	className := "Object"
	if obj.Class != nil {
		className = obj.Class.ClassName()
	}
	return fmt.Sprintf("#<%s>", className)
}
