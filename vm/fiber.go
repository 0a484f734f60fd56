package vm

import (
	"errors"

	"github.com/embervm/embervm/classes"
	"github.com/embervm/embervm/fiber"
	"github.com/embervm/embervm/heap"
	"github.com/embervm/embervm/internal/raise"
	"github.com/embervm/embervm/methods"
	"github.com/embervm/embervm/values"
)

// createFiberValue boxes f as a Fiber instance.
func (v *VM) createFiberValue(f *fiber.Fiber) values.Value {
	idx, obj := v.Heap.Allocate(heap.KindFiber)
	obj.Fiber = f
	cls, _ := v.Classes.Get("Fiber")
	obj.Class = cls
	return values.FromHeapPointer(idx)
}

func (v *VM) fiberOf(val values.Value) (*fiber.Fiber, bool) {
	if !val.IsHeap() {
		return nil, false
	}
	obj := v.Heap.At(val.AsHeapIndex())
	if obj == nil || obj.Kind != heap.KindFiber {
		return nil, false
	}
	f, ok := obj.Fiber.(*fiber.Fiber)
	return f, ok
}

func (v *VM) createEnumeratorValue(e *fiber.Enumerator) values.Value {
	idx, obj := v.Heap.Allocate(heap.KindEnumerator)
	obj.Enum = e
	cls, _ := v.Classes.Get("Enumerator")
	obj.Class = cls
	return values.FromHeapPointer(idx)
}

func (v *VM) enumeratorOf(val values.Value) (*fiber.Enumerator, bool) {
	if !val.IsHeap() {
		return nil, false
	}
	obj := v.Heap.At(val.AsHeapIndex())
	if obj == nil || obj.Kind != heap.KindEnumerator {
		return nil, false
	}
	e, ok := obj.Enum.(*fiber.Enumerator)
	return e, ok
}

func (v *VM) createYielderValue(y *fiber.Yielder) values.Value {
	idx, obj := v.Heap.Allocate(heap.KindYielder)
	obj.Yielder = y
	cls, _ := v.Classes.Get("Enumerator::Yielder")
	obj.Class = cls
	return values.FromHeapPointer(idx)
}

func (v *VM) yielderOf(val values.Value) (*fiber.Yielder, bool) {
	if !val.IsHeap() {
		return nil, false
	}
	obj := v.Heap.At(val.AsHeapIndex())
	if obj == nil || obj.Kind != heap.KindYielder {
		return nil, false
	}
	y, ok := obj.Yielder.(*fiber.Yielder)
	return y, ok
}

// packArgs implements the 0/1/many argument-packing convention
// `Fiber.yield`/block calls use throughout this file: no arguments
// packs to nil, one argument passes through unwrapped, more than one
// is collected into an Array (mirrors original_source/src/builtin/fiber.rs's yield_).
func (v *VM) packArgs(args []values.Value) values.Value {
	switch len(args) {
	case 0:
		return values.Nil()
	case 1:
		return args[0]
	default:
		return v.createArray(args)
	}
}

// registerFiberNatives wires Fiber.new/#resume/Fiber.yield and
// Enumerator.new/#next/Enumerator::Yielder#<</#yield — the native
// surface spec.md §4.7 requires as part of the CORE fiber runtime
// (unlike ordinary builtin method bodies, which spec.md §1 places out
// of scope). Called once from New().
func (v *VM) registerFiberNatives() {
	fiberClass, _ := v.Classes.Get("Fiber")
	fiberSingleton := classes.GetSingletonClass(fiberClass)

	newDesc := v.Methods.InternNative("new", v.nativeFiberNew)
	fiberSingleton.AddMethod(v.Symbols.Intern("new"), newDesc.ID)

	resumeDesc := v.Methods.InternNative("resume", v.nativeFiberResume)
	fiberClass.AddMethod(v.Symbols.Intern("resume"), resumeDesc.ID)

	yieldDesc := v.Methods.InternNative("yield", v.nativeFiberYield)
	fiberSingleton.AddMethod(v.Symbols.Intern("yield"), yieldDesc.ID)

	aliveDesc := v.Methods.InternNative("alive?", v.nativeFiberAlive)
	fiberClass.AddMethod(v.Symbols.Intern("alive?"), aliveDesc.ID)

	enumClass, _ := v.Classes.Get("Enumerator")
	enumSingleton := classes.GetSingletonClass(enumClass)

	enumNewDesc := v.Methods.InternNative("new", v.nativeEnumeratorNew)
	enumSingleton.AddMethod(v.Symbols.Intern("new"), enumNewDesc.ID)

	nextDesc := v.Methods.InternNative("next", v.nativeEnumeratorNext)
	enumClass.AddMethod(v.Symbols.Intern("next"), nextDesc.ID)

	object, _ := v.Classes.Get("Object")
	yielderClass := v.Classes.Define("Enumerator::Yielder", object, 0)
	pushDesc := v.Methods.InternNative("<<", v.nativeYielderPush)
	yielderClass.AddMethod(v.Symbols.Intern("<<"), pushDesc.ID)
	yYieldDesc := v.Methods.InternNative("yield", v.nativeYielderYield)
	yielderClass.AddMethod(v.Symbols.Intern("yield"), yYieldDesc.ID)
}

func (v *VM) nativeFiberNew(_ methods.NativeCallContext, receiver values.Value, args []values.Value, block values.Value) (values.Value, error) {
	if block.IsNil() {
		return values.Value(0), raise.New(raise.ArgumentError, "tried to create Fiber without a block")
	}
	cs := NewCallStack()
	cs.MaxDepth = v.fiberStackDepth
	v.Heap.RegisterRoots(cs)
	f := fiber.New(func(y *fiber.Yielder, resumeArgs []values.Value) (values.Value, error) {
		prevStack := v.SwitchTo(cs)
		prevYielder := v.currentYielder
		v.currentYielder = y
		defer func() {
			v.SwitchTo(prevStack)
			v.currentYielder = prevYielder
		}()
		res, rerr := v.callBlock(block, resumeArgs)
		if rerr != nil {
			return values.Value(0), rerr
		}
		return res, nil
	})
	return v.createFiberValue(f), nil
}

func (v *VM) nativeFiberResume(_ methods.NativeCallContext, receiver values.Value, args []values.Value, block values.Value) (values.Value, error) {
	f, ok := v.fiberOf(receiver)
	if !ok {
		return values.Value(0), raise.New(raise.TypeError, "not a Fiber")
	}
	val, _, err := f.Resume(args)
	if err != nil {
		if errors.Is(err, fiber.ErrDeadFiber) {
			return values.Value(0), raise.New(raise.FiberError, "dead fiber called")
		}
		if re, ok := err.(*raise.Error); ok {
			return values.Value(0), re
		}
		return values.Value(0), raise.New(raise.RuntimeError, "%s", err.Error())
	}
	return val, nil
}

func (v *VM) nativeFiberYield(_ methods.NativeCallContext, receiver values.Value, args []values.Value, block values.Value) (values.Value, error) {
	if v.currentYielder == nil {
		return values.Value(0), raise.New(raise.FiberError, "can't yield from root fiber")
	}
	resumeArgs := v.currentYielder.Yield(v.packArgs(args))
	return v.packArgs(resumeArgs), nil
}

func (v *VM) nativeFiberAlive(_ methods.NativeCallContext, receiver values.Value, args []values.Value, block values.Value) (values.Value, error) {
	f, ok := v.fiberOf(receiver)
	if !ok {
		return values.Value(0), raise.New(raise.TypeError, "not a Fiber")
	}
	return values.Bool(f.State() != fiber.Dead), nil
}

// nativeEnumeratorNew implements `Enumerator.new { |y| ... }`: the
// block is run lazily, once per #next-driven resume, and receives a
// Yielder whose `<<`/`yield` push one element back to the caller of
// #next (spec.md §4.7's "invoking yield for each produced element").
func (v *VM) nativeEnumeratorNew(_ methods.NativeCallContext, receiver values.Value, args []values.Value, block values.Value) (values.Value, error) {
	if block.IsNil() {
		return values.Value(0), raise.New(raise.ArgumentError, "tried to create Enumerator without a block")
	}
	cs := NewCallStack()
	cs.MaxDepth = v.fiberStackDepth
	v.Heap.RegisterRoots(cs)
	e := fiber.NewEnumerator(func(y *fiber.Yielder, _ []values.Value) (values.Value, error) {
		prevStack := v.SwitchTo(cs)
		prevYielder := v.currentYielder
		v.currentYielder = y
		defer func() {
			v.SwitchTo(prevStack)
			v.currentYielder = prevYielder
		}()
		yielderVal := v.createYielderValue(y)
		res, rerr := v.callBlock(block, []values.Value{yielderVal})
		if rerr != nil {
			return values.Value(0), rerr
		}
		return res, nil
	})
	return v.createEnumeratorValue(e), nil
}

func (v *VM) nativeEnumeratorNext(_ methods.NativeCallContext, receiver values.Value, args []values.Value, block values.Value) (values.Value, error) {
	e, ok := v.enumeratorOf(receiver)
	if !ok {
		return values.Value(0), raise.New(raise.TypeError, "not an Enumerator")
	}
	val, err := e.Next()
	if err != nil {
		if errors.Is(err, fiber.ErrStopIteration) {
			return values.Value(0), raise.New(raise.StopIteration, "iteration reached an end")
		}
		if re, ok := err.(*raise.Error); ok {
			return values.Value(0), re
		}
		return values.Value(0), raise.New(raise.RuntimeError, "%s", err.Error())
	}
	return val, nil
}

func (v *VM) nativeYielderPush(_ methods.NativeCallContext, receiver values.Value, args []values.Value, block values.Value) (values.Value, error) {
	y, ok := v.yielderOf(receiver)
	if !ok {
		return values.Value(0), raise.New(raise.TypeError, "not a Yielder")
	}
	y.Yield(v.packArgs(args))
	return receiver, nil
}

func (v *VM) nativeYielderYield(_ methods.NativeCallContext, receiver values.Value, args []values.Value, block values.Value) (values.Value, error) {
	y, ok := v.yielderOf(receiver)
	if !ok {
		return values.Value(0), raise.New(raise.TypeError, "not a Yielder")
	}
	resumeArgs := y.Yield(v.packArgs(args))
	return v.packArgs(resumeArgs), nil
}
