package fiber

import (
	"errors"

	"github.com/embervm/embervm/values"
)

// ErrStopIteration is returned by Next once the underlying fiber has
// run to completion (spec.md §4.7: "next on an enumerator is resume on
// its fiber"; a resume on a fiber that has finished producing values
// surfaces as Ruby's StopIteration at the call site, not FiberError,
// since exhaustion here is an expected end-of-sequence condition, not
// a programming error).
var ErrStopIteration = errors.New("iteration reached an end")

// Enumerator is a Fiber specialized for the "yield one element per
// resume" pattern: its Body is expected to call y.Yield once per
// produced element and return its final value (commonly the iterated
// collection itself, matching Ruby's Enumerable#each return value)
// once done.
type Enumerator struct {
	fib *Fiber
}

// NewEnumerator wraps body (which drives the receiver's `each`-style
// method and calls y.Yield per element) in a fresh, not-yet-started
// fiber.
func NewEnumerator(body Body) *Enumerator {
	return &Enumerator{fib: New(body)}
}

// Next resumes the underlying fiber and returns its next produced
// value, or ErrStopIteration once the body has returned with nothing
// further to yield.
func (e *Enumerator) Next() (values.Value, error) {
	val, done, err := e.fib.Resume(nil)
	if err != nil {
		if errors.Is(err, ErrDeadFiber) {
			return values.Value(0), ErrStopIteration
		}
		return values.Value(0), err
	}
	if done {
		return values.Value(0), ErrStopIteration
	}
	return val, nil
}

// State exposes the underlying fiber's lifecycle stage.
func (e *Enumerator) State() State { return e.fib.State() }
