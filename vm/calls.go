package vm

import (
	"github.com/embervm/embervm/bytecode"
	"github.com/embervm/embervm/classes"
	"github.com/embervm/embervm/heap"
	"github.com/embervm/embervm/internal/raise"
	"github.com/embervm/embervm/methods"
	"github.com/embervm/embervm/opcodes"
	"github.com/embervm/embervm/values"
)

// classValue returns the stable heap value representing cls as a
// first-class object (what a ConstRef lookup or `SomeClass` literal
// pushes), creating and caching it on first use. Grounded on the
// "every class is also an ordinary heap-addressable object" shape
// spec.md §3.3 assumes but doesn't literally construct.
func (v *VM) classValue(cls *classes.Class) values.Value {
	v.classValsMu.Lock()
	defer v.classValsMu.Unlock()
	if val, ok := v.classVals[cls]; ok {
		return val
	}
	idx, obj := v.Heap.Allocate(heap.KindModuleOrClass)
	obj.Class = cls
	val := values.FromHeapPointer(idx)
	v.classVals[cls] = val
	return val
}

func (v *VM) classOfValue(val values.Value) (*classes.Class, bool) {
	if !val.IsHeap() {
		return nil, false
	}
	obj := v.Heap.At(val.AsHeapIndex())
	if obj == nil || obj.Kind != heap.KindModuleOrClass {
		return nil, false
	}
	c, ok := obj.Class.(*classes.Class)
	return c, ok
}

// runMethodFrame executes f2 and normalizes a MethodReturn unwind
// signal (emitted by `return` inside a block per spec.md §4.4) back
// into an ordinary result at the call boundary that owns the frame.
func (v *VM) runMethodFrame(f2 *Frame) (values.Value, *raise.Error) {
	res, err := v.Run(f2)
	if err != nil && err.Kind == raise.MethodReturn {
		if rv, ok := err.Value.(values.Value); ok {
			return rv, nil
		}
		return values.Nil(), nil
	}
	return res, err
}

// callMethod dispatches to exactly one of the four method-descriptor
// kinds spec.md §3.4 defines.
func (v *VM) callMethod(methodID uint32, receiver values.Value, args []values.Value, kwHash values.Value, block values.Value) (values.Value, *raise.Error) {
	desc, ok := v.Methods.Get(methodID)
	if !ok {
		return values.Value(0), raise.New(raise.RuntimeError, "invalid method id %d", methodID)
	}
	switch desc.Kind {
	case methods.KindBytecode:
		f2 := NewFrame(desc.Bytecode, receiver, nil, block)
		if rerr := BindArgs(v, f2, &desc.Bytecode.Params, args, kwHash, block); rerr != nil {
			return values.Value(0), rerr
		}
		res, err := v.runMethodFrame(f2)
		if err != nil && err.Kind == raise.BlockReturn {
			// `break` inside a block exits the method call that was
			// handed the block (spec.md §4.7's "break" unwind outcome).
			if rv, ok := err.Value.(values.Value); ok {
				return rv, nil
			}
			return values.Nil(), nil
		}
		return res, err
	case methods.KindNative:
		res, err := desc.Native(v, receiver, args, block)
		if err == nil {
			return res, nil
		}
		if re, ok := err.(*raise.Error); ok {
			return values.Value(0), re
		}
		return values.Value(0), raise.New(raise.RuntimeError, "%s", err.Error())
	case methods.KindAttrReader:
		return v.getIvar(receiver, desc.IvarID), nil
	case methods.KindAttrWriter:
		if len(args) == 0 {
			return values.Value(0), raise.New(raise.ArgumentError, "wrong number of arguments (given 0, expected 1)")
		}
		v.setIvar(receiver, desc.IvarID, args[0])
		return args[0], nil
	}
	return values.Value(0), raise.New(raise.RuntimeError, "unreachable method kind")
}

// dispatchSend decodes and executes a send/opt_send/opt_send_n
// instruction against the operand-stack layout compiler/calls.go's
// emitSend documents: receiver, [block-pass value], positional args
// (splats inline, flattened here), [kwhash].
func (v *VM) dispatchSend(f *Frame, op opcodes.Op, r *opcodes.Reader) (values.Value, *raise.Error) {
	nameID := r.U32()
	argc := int(r.U16())
	var flags uint8
	var blockMethodID uint32
	var cacheSlot uint32
	if op == opcodes.OpSend {
		_ = r.U8() // kw_rest count, reserved
		flags = r.U8()
		blockMethodID = r.U32()
		cacheSlot = r.U32()
	} else {
		blockMethodID = r.U32()
		cacheSlot = r.U32()
	}

	var kwHash values.Value = values.Nil()
	if flags&opcodes.SendFlagHasKeywords != 0 {
		kwHash = f.Pop()
	}
	args := v.flattenSplats(f.PopN(argc))
	var blockPass values.Value = values.Nil()
	if flags&opcodes.SendFlagHasBlockPass != 0 {
		blockPass = f.Pop()
	}
	receiver := f.Pop()

	if flags&opcodes.SendFlagSafeNav != 0 && receiver.IsNil() {
		return values.Nil(), nil
	}

	var block values.Value
	switch {
	case blockMethodID != 0:
		block = v.createProc(f, blockMethodID, false)
	case !blockPass.IsNil():
		block = blockPass
	default:
		block = values.Nil()
	}

	cls := v.ClassOf(receiver)
	methodID, ok := v.resolveSend(f, cls, nameID, cacheSlot)
	if !ok {
		name := v.Symbols.Name(nameID)
		return v.methodMissing(receiver, name, args, kwHash, block)
	}
	return v.callMethod(methodID, receiver, args, kwHash, block)
}

// resolveSend serves a send/opt_send's method lookup through its call
// site's CallSiteCache (spec.md §4.6), falling back to cls.LookupMethod
// on a miss and filling the cache with the result. A method_missing
// path never gets cached (ok=false), since there's no methodID to
// remember and method_missing resolution is already its own lookup.
func (v *VM) resolveSend(f *Frame, cls *classes.Class, nameID uint32, slot uint32) (uint32, bool) {
	fc := v.cachesFor(f.Fn)
	if int(slot) >= len(fc.send) {
		methodID, _, ok := cls.LookupMethod(nameID)
		return methodID, ok
	}
	line := &fc.send[slot]
	version := v.Methods.MethodCacheVersion()
	if methodID, hit := line.Probe(cls.ID(), nameID, version); hit {
		return methodID, true
	}
	methodID, _, ok := cls.LookupMethod(nameID)
	if ok {
		line.Fill(cls.ID(), nameID, methodID, version)
	}
	return methodID, ok
}

func (v *VM) methodMissing(receiver values.Value, name string, args []values.Value, kwHash values.Value, block values.Value) (values.Value, *raise.Error) {
	cls := v.ClassOf(receiver)
	if mmID, found := v.Symbols.Lookup("method_missing"); found {
		if methodID, _, ok := cls.LookupMethod(mmID); ok {
			fullArgs := append([]values.Value{values.Symbol(v.Symbols.Intern(name))}, args...)
			return v.callMethod(methodID, receiver, fullArgs, kwHash, block)
		}
	}
	return values.Value(0), raise.New(raise.NoMethodError, "undefined method '%s' for %s", name, cls.ClassName())
}

// dispatchSuper implements `super`/`super(args)` (spec.md §4.4): walks
// past the class that defines the currently executing method,
// starting the method lookup one link higher in the Upper chain.
func (v *VM) dispatchSuper(f *Frame, argc int, blockMethodID uint32, noArgsFlag bool) (values.Value, *raise.Error) {
	args := f.PopN(argc)
	receiver := f.Pop()
	if noArgsFlag {
		// Forward the caller's own bound arguments (spec.md "bare
		// `super` forwards the current method's arguments"); the
		// current frame's locals hold them in parameter-slot order.
		args = append([]values.Value{}, f.Locals[:f.Fn.Params.RequiredBefore]...)
	}
	var block values.Value = f.Block
	if blockMethodID != 0 {
		block = v.createProc(f, blockMethodID, false)
	}

	definer := v.definingClassOf(f)
	if definer == nil || definer.Upper == nil {
		return values.Value(0), raise.New(raise.NoMethodError, "super called outside of method")
	}
	nameID, _ := v.Symbols.Lookup(f.Fn.Name)
	methodID, _, ok := definer.Upper.LookupMethod(nameID)
	if !ok {
		return values.Value(0), raise.New(raise.NoMethodError, "super: no superclass method '%s'", f.Fn.Name)
	}
	return v.callMethod(methodID, receiver, args, values.Nil(), block)
}

// definingClassOf resolves the class whose method table owns f's
// function, taking the last (innermost) entry of EnclosingClasses and
// resolving it by name; this is the class `super` must skip past.
func (v *VM) definingClassOf(f *Frame) *classes.Class {
	if len(f.Fn.EnclosingClasses) == 0 {
		return nil
	}
	c, _ := v.Classes.Get(f.Fn.EnclosingClasses[len(f.Fn.EnclosingClasses)-1])
	return c
}

// doYield implements `yield` (spec.md §4.4): it walks past any
// intervening block frames to the nearest enclosing method frame and
// invokes that frame's bound block.
func (v *VM) doYield(f *Frame, args []values.Value) (values.Value, *raise.Error) {
	owner := f
	for owner != nil && owner.Fn.Kind == bytecode.KindBlock {
		owner = owner.Outer
	}
	if owner == nil || owner.Block.IsNil() || owner.Block.IsUninitialized() {
		return values.Value(0), raise.New(raise.LocalJumpError, "no block given (yield)")
	}
	return v.callBlock(owner.Block, args)
}

// callBlock invokes a captured Proc/lambda value with args.
func (v *VM) callBlock(block values.Value, args []values.Value) (values.Value, *raise.Error) {
	if !block.IsHeap() {
		return values.Value(0), raise.New(raise.LocalJumpError, "no block given")
	}
	obj := v.Heap.At(block.AsHeapIndex())
	if obj == nil || obj.Kind != heap.KindProc || obj.Proc == nil {
		return values.Value(0), raise.New(raise.LocalJumpError, "no block given")
	}
	desc, ok := v.Methods.Get(obj.Proc.MethodID)
	if !ok || desc.Kind != methods.KindBytecode {
		return values.Value(0), raise.New(raise.RuntimeError, "invalid block method id")
	}
	outer, _ := obj.Proc.Outer.(*Frame)
	var self values.Value
	if outer != nil {
		self = outer.Self
	}
	f2 := NewFrame(desc.Bytecode, self, outer, values.Nil())
	if rerr := BindArgs(v, f2, &desc.Bytecode.Params, args, values.Nil(), values.Nil()); rerr != nil {
		return values.Value(0), rerr
	}
	return v.Run(f2)
}

// defineClass implements def_class (spec.md §4.3): resolves or
// creates the named class/module, runs its body once with Self set to
// the class's own heap value, and leaves the body's result value.
func (v *VM) defineClass(f *Frame, isModule bool, nameID uint32, bodyMethodID uint32) *raise.Error {
	superVal := f.Pop()
	name := v.Symbols.Name(nameID)

	var upper *classes.Class
	if sc, ok := v.classOfValue(superVal); ok {
		upper = sc
	} else if !isModule {
		upper, _ = v.Classes.Get("Object")
	}
	flags := classes.Flags(0)
	if isModule {
		flags = classes.FlagModule
	}
	cls := v.Classes.Define(name, upper, flags)

	desc, ok := v.Methods.Get(bodyMethodID)
	if !ok || desc.Kind != methods.KindBytecode {
		return raise.New(raise.RuntimeError, "invalid class body method id")
	}
	prevCurrent := v.Classes.Current()
	v.Classes.SetCurrent(cls)
	classVal := v.classValue(cls)
	f2 := NewFrame(desc.Bytecode, classVal, nil, values.Nil())
	res, err := v.runMethodFrame(f2)
	v.Classes.SetCurrent(prevCurrent)
	if err != nil {
		return err
	}
	f.Push(res)
	return nil
}

// defineSingletonClassBody implements `class << obj ... end`.
func (v *VM) defineSingletonClassBody(f *Frame, bodyMethodID uint32) *raise.Error {
	target := f.Pop()
	// `class << SomeClass` opens SomeClass's own singleton directly;
	// classOfValue (unwrapped) gives that, whereas ClassOf on a class
	// value now resolves to the singleton itself (see vm.ClassOf) and
	// would double-wrap here. For an ordinary object, ClassOf's direct
	// class stands in for a per-instance singleton — a known
	// simplification, see DESIGN.md.
	targetClass, ok := v.classOfValue(target)
	if !ok {
		targetClass = v.ClassOf(target)
	}
	singleton := classes.GetSingletonClass(targetClass)

	desc, ok := v.Methods.Get(bodyMethodID)
	if !ok || desc.Kind != methods.KindBytecode {
		return raise.New(raise.RuntimeError, "invalid singleton class body method id")
	}
	prevCurrent := v.Classes.Current()
	v.Classes.SetCurrent(singleton)
	classVal := v.classValue(singleton)
	f2 := NewFrame(desc.Bytecode, classVal, nil, values.Nil())
	res, err := v.runMethodFrame(f2)
	v.Classes.SetCurrent(prevCurrent)
	if err != nil {
		return err
	}
	f.Push(res)
	return nil
}
