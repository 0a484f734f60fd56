// Package vm implements the dispatch loop, call frames, and supporting
// runtime state of spec.md §4: the opcode interpreter that runs a
// compiled bytecode.Function. Adapted from the teacher's vm package
// (call_stack.go, variable_manager.go, vm.go, instruction_executor.go),
// keeping its "one struct owning the shared runtime tables, one loop
// walking a Frame's code" shape and retargeting every instruction body
// from the PHP opcode set onto spec.md §4.1's instruction table.
package vm

import (
	"sync"

	"github.com/embervm/embervm/bytecode"
	"github.com/embervm/embervm/classes"
	"github.com/embervm/embervm/fiber"
	"github.com/embervm/embervm/heap"
	"github.com/embervm/embervm/internal/raise"
	"github.com/embervm/embervm/methods"
	"github.com/embervm/embervm/symtab"
	"github.com/embervm/embervm/values"
)

// VM owns every table shared by all fibers: the method and class
// registries, the symbol table, the heap allocator, and the global
// variable table. Each fiber additionally owns its own CallStack
// (spec.md §4.7); the VM itself tracks only the currently running one,
// since fibers run cooperatively and never concurrently (spec.md §5).
type VM struct {
	Methods *methods.Repository
	Classes *classes.Registry
	Symbols *symtab.Table
	Heap    *heap.Allocator
	Globals *Globals

	main    *CallStack
	current *CallStack

	// currentYielder is the Yielder of whatever fiber's body is on the
	// goroutine presently running dispatch, consulted by the
	// `Fiber.yield` class method (spec.md §4.7); nil while running on
	// the main fiber.
	currentYielder *fiber.Yielder

	// fiberStackDepth is the CallStack.MaxDepth every new fiber/enumerator
	// call stack is stamped with (internal/config's fiber_stack_depth);
	// zero leaves fiber stacks unbounded.
	fiberStackDepth int

	classValsMu sync.Mutex
	classVals   map[*classes.Class]values.Value

	// cacheMu/caches back every send/get_const inline cache (spec.md
	// §4.6), keyed by the *bytecode.Function the call site belongs to
	// so a cache line survives across calls to the same method/block.
	cacheMu sync.Mutex
	caches  map[*bytecode.Function]*functionCaches
}

// New constructs a VM with its core class hierarchy already bootstrapped.
func New(methodsRepo *methods.Repository, syms *symtab.Table) *VM {
	reg := classes.NewRegistry()
	Bootstrap(reg)
	v := &VM{
		Methods: methodsRepo,
		Classes: reg,
		Symbols: syms,
		Heap:      heap.NewAllocator(),
		Globals:   NewGlobals(),
		classVals: make(map[*classes.Class]values.Value),
		caches:    make(map[*bytecode.Function]*functionCaches),
	}
	v.main = NewCallStack()
	v.current = v.main
	v.Heap.RegisterRoots(v)
	v.registerFiberNatives()
	v.registerObjectNew()
	return v
}

// CallStack returns the call stack of the fiber currently running.
func (v *VM) CallStack() *CallStack { return v.current }

// SetMaxCallDepth bounds the main fiber's own call stack (internal/config's
// max_call_depth); zero leaves it unbounded.
func (v *VM) SetMaxCallDepth(n int) { v.main.MaxDepth = n }

// SetFiberStackDepth bounds every fiber/enumerator call stack created
// from this point forward (internal/config's fiber_stack_depth).
func (v *VM) SetFiberStackDepth(n int) { v.fiberStackDepth = n }

// SwitchTo is called by the fiber scheduler (fiber.Fiber.Resume) when
// control passes to a different fiber's call stack (spec.md §4.7).
func (v *VM) SwitchTo(cs *CallStack) (previous *CallStack) {
	previous = v.current
	v.current = cs
	return previous
}

// EnumerateRoots implements heap.RootProvider: every Value reachable
// from the currently active call stack's frames (locals and operand
// stacks) is a GC root. Suspended fibers register their own call
// stacks separately (see nativeFiberNew/nativeEnumeratorNew in
// vm/fiber.go), so this only walks `current`.
func (v *VM) EnumerateRoots(dst []values.Value) []values.Value {
	for _, f := range v.current.Frames() {
		dst = append(dst, f.Locals...)
		dst = append(dst, f.Stack...)
		if !f.Block.IsUninitialized() {
			dst = append(dst, f.Block)
		}
	}
	return dst
}

// ClassOf resolves the class of any Value, immediate or heap (spec.md
// §3.3 "every value has a class, even immediates"). Heap objects carry
// their class directly (a class/module value resolves to its singleton
// class, see below); immediates resolve to the bootstrapped NilClass/
// TrueClass/FalseClass/Integer/Float/Symbol classes by type predicate.
func (v *VM) ClassOf(val values.Value) *classes.Class {
	if val.IsHeap() {
		obj := v.Heap.At(val.AsHeapIndex())
		if obj == nil || obj.Class == nil {
			c, _ := v.Classes.Get("Object")
			return c
		}
		cls := obj.Class.(*classes.Class)
		if obj.Kind == heap.KindModuleOrClass {
			// A class/module value's own class is its singleton class
			// (spec.md §4.2): this is where `def self.foo`-style and
			// `Fiber.new`-style class methods live, distinct from cls's
			// own instance-method table. classOfValue (vm/calls.go)
			// returns the unwrapped cls for callers that want the
			// represented class/module itself rather than its dispatch
			// target (superclass resolution, singleton-class-body
			// targeting).
			return classes.GetSingletonClass(cls)
		}
		return cls
	}
	name := "Object"
	switch {
	case val.IsNil():
		name = "NilClass"
	case val.IsTrue():
		name = "TrueClass"
	case val.IsFalse():
		name = "FalseClass"
	case val.IsFixedInteger():
		name = "Integer"
	case val.IsImmediateFloat():
		name = "Float"
	case val.IsSymbol():
		name = "Symbol"
	}
	c, _ := v.Classes.Get(name)
	return c
}

// RaiseTypeError is a convenience constructor used throughout the
// dispatch loop's type-checking fast-path fallbacks.
func RaiseTypeError(format string, args ...interface{}) *raise.Error {
	return raise.New(raise.TypeError, format, args...)
}
