// Package vm implements the inline-cache-driven dispatch loop that
// executes bytecode.Function values (spec.md §4, §9). Grounded on the
// teacher's vm package: call_stack.go's frame-stack shape, the
// arithmetic/comparison executors' fast-path-then-dispatch structure,
// and variable_manager.go's local-slot access, all retargeted from
// Zend op-array execution onto the Ruby-subset instruction set of
// spec.md §6.
package vm

import (
	"github.com/embervm/embervm/bytecode"
	"github.com/embervm/embervm/values"
)

// Frame is one activation record: a bytecode function plus its operand
// stack, local-variable slots, and the lexical/dynamic links needed by
// closures and blocks (spec.md §4.3 "Closures capture the defining
// frame").
//
// A Frame starts stack-allocated (owned outright by the goroutine
// running dispatch) and is promoted to the heap only when something
// outlives the call that created it: a block/proc capturing it, or an
// exception's backtrace referencing it. Promote marks that transition;
// until it happens the VM is free to reuse the Frame value without an
// allocation per call.
type Frame struct {
	Fn   *bytecode.Function
	Self values.Value

	Locals []values.Value
	Stack  []values.Value

	// Outer is the lexically enclosing frame a block/proc was created
	// in, walked by get_dyn_local/set_dyn_local/check_dyn_local
	// (spec.md §4.3) exactly as many hops as the compiler's localScope
	// depth computed at compile time.
	Outer *Frame

	// Block is the block value (a Proc, or Nil) passed to this call,
	// consumed by `yield`/`block_given?`.
	Block values.Value

	PC int

	// promoted is set once a closure capture or backtrace reference
	// means this Frame must not be reused/pooled.
	promoted bool
}

// NewFrame allocates a fresh activation record for fn, pre-sizing the
// locals slice to the function's declared slot count (spec.md §3.6).
func NewFrame(fn *bytecode.Function, self values.Value, outer *Frame, block values.Value) *Frame {
	locals := make([]values.Value, fn.MaxLocalSlot)
	for i := range locals {
		locals[i] = values.Uninitialized()
	}
	return &Frame{
		Fn:     fn,
		Self:   self,
		Locals: locals,
		Stack:  make([]values.Value, 0, 8),
		Outer:  outer,
		Block:  block,
	}
}

// Promote marks f as escaping its creating call, so the dispatch loop
// must not reuse its backing slices after the call returns.
func (f *Frame) Promote() { f.promoted = true }

func (f *Frame) Promoted() bool { return f.promoted }

// Push/Pop/Top/Dup/Sink/Rotate implement the operand-stack primitives
// the dispatch loop's opcode handlers compose (spec.md §6 stack-effect
// table).
func (f *Frame) Push(v values.Value) { f.Stack = append(f.Stack, v) }

func (f *Frame) Pop() values.Value {
	n := len(f.Stack) - 1
	v := f.Stack[n]
	f.Stack = f.Stack[:n]
	return v
}

func (f *Frame) PopN(n int) []values.Value {
	idx := len(f.Stack) - n
	vs := append([]values.Value(nil), f.Stack[idx:]...)
	f.Stack = f.Stack[:idx]
	return vs
}

func (f *Frame) Top() values.Value { return f.Stack[len(f.Stack)-1] }

// Dup duplicates the top n values as a contiguous block (opcodes.OpDupN).
func (f *Frame) Dup(n uint16) {
	base := len(f.Stack) - int(n)
	f.Stack = append(f.Stack, f.Stack[base:base+int(n)]...)
}

// Sink moves the current top value down to depth positions from the
// new top (opcodes.OpSinkN), used by the compiler's index-assignment
// dup+sink pattern.
func (f *Frame) Sink(depth uint16) {
	n := len(f.Stack)
	v := f.Stack[n-1]
	dst := n - int(depth)
	copy(f.Stack[dst+1:n], f.Stack[dst:n-1])
	f.Stack[dst] = v
}

// Rotate moves the value `n` positions from the top up to the very
// top (opcodes.OpTopN).
func (f *Frame) Rotate(n uint16) {
	end := len(f.Stack)
	start := end - int(n)
	v := f.Stack[start]
	copy(f.Stack[start:end-1], f.Stack[start+1:end])
	f.Stack[end-1] = v
}

// getOuter walks depth frame boundaries up the Outer chain, matching
// the compiler's localScope.resolve depth exactly.
func (f *Frame) getOuter(depth int) *Frame {
	cur := f
	for i := 0; i < depth; i++ {
		cur = cur.Outer
	}
	return cur
}
