package vm

import (
	"github.com/embervm/embervm/classes"
	"github.com/embervm/embervm/heap"
	"github.com/embervm/embervm/internal/raise"
	"github.com/embervm/embervm/methods"
	"github.com/embervm/embervm/values"
)

// registerObjectNew wires `new` onto Object's singleton class so every
// class inherits it through the parallel singleton chain spec.md §4.2
// describes (exactly the mechanism Fiber.new/Enumerator.new already
// exercise, generalized to user-defined classes: `class C; end; C.new`
// from spec.md §9's worked examples has nowhere else to resolve,
// since object instantiation is core dispatch behavior, not one of the
// out-of-scope builtin method bodies). Called once from New(), after
// registerFiberNatives so a class that does define its own singleton
// `new` (Fiber, Enumerator) keeps taking priority via LookupMethod's
// own-table-before-upper-chain order.
func (v *VM) registerObjectNew() {
	object, _ := v.Classes.Get("Object")
	objectSingleton := classes.GetSingletonClass(object)
	desc := v.Methods.InternNative("new", v.nativeObjectNew)
	objectSingleton.AddMethod(v.Symbols.Intern("new"), desc.ID)
}

// nativeObjectNew allocates a KindOrdinary instance of the receiver
// class and runs its `initialize` method, if one is defined, with the
// call's own arguments and block (spec.md §4.2's allocate-then-
// initialize contract, the same shape ruruby's `Value::new`/
// `builtin/class.rs` uses).
func (v *VM) nativeObjectNew(_ methods.NativeCallContext, receiver values.Value, args []values.Value, block values.Value) (values.Value, error) {
	cls, ok := v.classOfValue(receiver)
	if !ok {
		return values.Value(0), raise.New(raise.TypeError, "new: receiver is not a class")
	}
	idx, obj := v.Heap.Allocate(heap.KindOrdinary)
	obj.Class = cls
	instance := values.FromHeapPointer(idx)

	if initID, _, found := cls.LookupMethod(v.Symbols.Intern("initialize")); found {
		if _, rerr := v.callMethod(initID, instance, args, values.Nil(), block); rerr != nil {
			return values.Value(0), rerr
		}
	}
	return instance, nil
}
