// Package raise implements the tagged-error value of spec.md §7: a
// kind, a message, and a growable backtrace, propagated as a plain Go
// error through the dispatch loop's call stack. The two non-local-exit
// kinds (BlockReturn, MethodReturn) share the same representation so
// the unwinding code in vm/dispatch.go has one code path for "resume
// unwinding until X" regardless of why unwinding started.
//
// Grounded on the teacher's vm/errors.go (VMError wraps a sentinel
// error plus a message/context), retargeted from the PHP-flavored
// error-kind list onto the Ruby exception hierarchy of spec.md §6.
package raise

import "fmt"

// Kind names a point in the Ruby exception hierarchy, or one of the
// two non-local-exit control signals.
type Kind string

const (
	Exception         Kind = "Exception"
	StandardError      Kind = "StandardError"
	ArgumentError      Kind = "ArgumentError"
	TypeError          Kind = "TypeError"
	NameError          Kind = "NameError"
	NoMethodError      Kind = "NoMethodError"
	RuntimeError       Kind = "RuntimeError"
	ZeroDivisionError  Kind = "ZeroDivisionError"
	RangeError         Kind = "RangeError"
	IndexError         Kind = "IndexError"
	StopIteration      Kind = "StopIteration"
	FiberError         Kind = "FiberError"
	LocalJumpError     Kind = "LocalJumpError"
	LoadError          Kind = "LoadError"
	SystemStackError   Kind = "SystemStackError"

	// BlockReturn/MethodReturn are not user-visible exception classes;
	// they ride the same Error value so unwinding (vm/dispatch.go) has
	// a single "does this frame consume this signal" check instead of
	// a parallel non-error control-flow type (spec.md §7).
	BlockReturn  Kind = "@block_return"
	MethodReturn Kind = "@method_return"
)

// parentOf encodes the surface hierarchy named in spec.md §6 (only
// what's needed for `rescue ClassName` matching; the full class
// objects live in classes.Registry once bootstrapped).
var parentOf = map[Kind]Kind{
	StandardError:     Exception,
	ArgumentError:     StandardError,
	TypeError:         StandardError,
	NameError:         StandardError,
	NoMethodError:     NameError,
	RuntimeError:      StandardError,
	ZeroDivisionError: StandardError,
	RangeError:        StandardError,
	IndexError:        StandardError,
	StopIteration:     IndexError,
	FiberError:        StandardError,
	LocalJumpError:    StandardError,
	LoadError:         StandardError,
	SystemStackError:  Exception,
}

// Frame is one backtrace entry, innermost first.
type Frame struct {
	Source string
	Line   int
	Func   string
}

// Error is the tagged error value every failing instruction produces.
type Error struct {
	Kind      Kind
	Message   string
	Backtrace []Frame

	// Value carries the payload for BlockReturn/MethodReturn (the
	// value the non-local exit is returning) or the yielded value of
	// a raised user exception object, so the VM doesn't need a
	// separate non-error channel (spec.md §7).
	Value interface{}
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Append records one more backtrace frame as unwinding climbs past it.
func (e *Error) Append(source string, line int, fn string) {
	e.Backtrace = append(e.Backtrace, Frame{Source: source, Line: line, Func: fn})
}

// Is reports whether e's kind is class or a descendant of it in the
// surface hierarchy (spec.md §6), the test the `rescue` instruction
// performs against each of its literal exception classes.
func (e *Error) Is(class Kind) bool {
	k := e.Kind
	for {
		if k == class {
			return true
		}
		parent, ok := parentOf[k]
		if !ok {
			return false
		}
		k = parent
	}
}

// IsNonLocalExit reports whether e is a BlockReturn/MethodReturn
// signal rather than a user-visible exception (spec.md §7).
func (e *Error) IsNonLocalExit() bool {
	return e.Kind == BlockReturn || e.Kind == MethodReturn
}
