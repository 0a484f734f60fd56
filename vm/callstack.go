package vm

import (
	"sync"

	"github.com/embervm/embervm/values"
)

// CallStack is the stack of active Frames for one fiber of execution
// (spec.md §4.7: "each fiber... has its own call stack"). Adapted
// near-verbatim from the teacher's CallStackManager; the push/pop/
// current/depth shape carries over unchanged; *values.Value swapped
// for Frame pointers and the PHP global-binding helper dropped (Ruby
// globals are a flat table, not per-frame bindings; see vm/locals.go).
type CallStack struct {
	frames []*Frame
	mu     sync.Mutex

	// MaxDepth bounds how many frames this stack may hold before Run
	// raises SystemStackError instead of pushing; zero means unlimited.
	// Set from internal/config's fiber_stack_depth/max_call_depth by
	// whatever constructs the stack (cmd/embervm, vm.nativeFiberNew).
	MaxDepth int
}

func NewCallStack() *CallStack {
	return &CallStack{frames: make([]*Frame, 0, 8)}
}

// Push appends f, reporting false instead of pushing once MaxDepth is
// set and already reached (spec.md §4.7's stack-per-fiber model implies
// a bound; the teacher has none, since PHP's fastcgi workers rely on
// the OS stack instead).
func (cs *CallStack) Push(f *Frame) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.MaxDepth > 0 && len(cs.frames) >= cs.MaxDepth {
		return false
	}
	cs.frames = append(cs.frames, f)
	return true
}

// Pop removes and returns the top Frame, or nil if the stack is empty.
func (cs *CallStack) Pop() *Frame {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	n := len(cs.frames)
	if n == 0 {
		return nil
	}
	f := cs.frames[n-1]
	cs.frames = cs.frames[:n-1]
	return f
}

func (cs *CallStack) Current() *Frame {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if len(cs.frames) == 0 {
		return nil
	}
	return cs.frames[len(cs.frames)-1]
}

func (cs *CallStack) Depth() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.frames)
}

func (cs *CallStack) IsEmpty() bool { return cs.Depth() == 0 }

// EnumerateRoots implements heap.RootProvider directly on CallStack so
// a fiber's own stack can be registered as a root the instant it's
// created (spec.md §5 "every fiber's corresponding stacks registered
// in the global fiber table"), independent of whether that fiber is
// the one currently running. VM.EnumerateRoots only walks v.current;
// this is what keeps a Suspended fiber's locals alive in between
// resumes.
func (cs *CallStack) EnumerateRoots(dst []values.Value) []values.Value {
	for _, f := range cs.Frames() {
		dst = append(dst, f.Locals...)
		dst = append(dst, f.Stack...)
		if !f.Block.IsUninitialized() {
			dst = append(dst, f.Block)
		}
	}
	return dst
}

// Frames returns a snapshot of the stack, innermost-last, used to
// build an exception's backtrace (spec.md §7).
func (cs *CallStack) Frames() []*Frame {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make([]*Frame, len(cs.frames))
	copy(out, cs.frames)
	return out
}
