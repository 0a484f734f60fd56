// Package fiber implements the cooperative fiber runtime of spec.md
// §4.7/§5: a suspendable execution context linked to its parent by a
// pair of synchronous channels carrying one value (well, one argument
// slice) each direction. Grounded on the rendezvous contract of
// original_source/src/builtin/fiber.rs's FiberState machine
// (created/running/dead, a resume that blocks until the fiber yields
// or completes), reimplemented with goroutines and channels instead of
// ruruby's single-threaded re-entrant VM clone, per the open-question
// decision in DESIGN.md ("paired blocking channels" is one of the two
// facilities spec.md §9 names as acceptable).
package fiber

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/embervm/embervm/values"
)

// State is a fiber's lifecycle stage (spec.md §4.7).
type State int32

const (
	Created State = iota
	Running
	Suspended
	Dead
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// ErrDeadFiber is returned by Resume on an already-Dead fiber (spec.md
// §4.7: "Subsequent resume on a dead fiber raises FiberError").
var ErrDeadFiber = errors.New("dead fiber called")

// Body is the code a fiber runs, given a Yielder it can suspend
// through and the arguments the first Resume call was made with.
type Body func(y *Yielder, resumeArgs []values.Value) (values.Value, error)

type resumeMsg struct {
	args []values.Value
}

type outMsg struct {
	val  values.Value
	done bool
	err  error
}

// Fiber owns its own goroutine (standing in for "its own value stack,
// frame stack, and program counter" per spec.md §4.7 — the caller is
// responsible for giving the body a fresh call stack of its own, see
// vm.nativeFiberNew) and rendezvouses with whichever goroutine calls
// Resume via a pair of unbuffered channels.
type Fiber struct {
	ID uuid.UUID

	body     Body
	resumeCh chan resumeMsg
	outCh    chan outMsg

	mu      sync.Mutex
	state   State
	started bool
}

// New constructs a fiber in the Created state. The body does not start
// running until the first Resume.
func New(body Body) *Fiber {
	return &Fiber{
		ID:       uuid.New(),
		body:     body,
		resumeCh: make(chan resumeMsg),
		outCh:    make(chan outMsg),
		state:    Created,
	}
}

func (f *Fiber) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Resume transfers control to the fiber with args, blocking until it
// either suspends (calls Yield) or runs to completion. done reports
// the latter. This is the synchronous rendezvous spec.md §5 requires:
// the resumer observes the yielded/returned value before either side
// runs any further code.
func (f *Fiber) Resume(args []values.Value) (val values.Value, done bool, err error) {
	f.mu.Lock()
	if f.state == Dead {
		f.mu.Unlock()
		return values.Value(0), true, ErrDeadFiber
	}
	first := !f.started
	f.started = true
	f.state = Running
	f.mu.Unlock()

	if first {
		go f.run(args)
	} else {
		f.resumeCh <- resumeMsg{args: args}
	}

	out := <-f.outCh
	f.mu.Lock()
	if out.done {
		f.state = Dead
	} else {
		f.state = Suspended
	}
	f.mu.Unlock()
	return out.val, out.done, out.err
}

func (f *Fiber) run(args []values.Value) {
	res, err := f.body(&Yielder{f: f}, args)
	f.outCh <- outMsg{val: res, done: true, err: err}
}

// Yielder is handed to a running fiber's body so it (and anything it
// calls transitively) can implement `Fiber.yield`.
type Yielder struct{ f *Fiber }

// Yield suspends the fiber, handing val to whatever goroutine is
// blocked in Resume, then blocks until the next Resume and returns its
// arguments.
func (y *Yielder) Yield(val values.Value) []values.Value {
	y.f.outCh <- outMsg{val: val}
	msg := <-y.f.resumeCh
	return msg.args
}
