// Package compiler lowers an ast.Program into a bytecode.Function in a
// single pass, populating a source map and exception table alongside
// the instruction stream (spec.md §4.3). Grounded on the teacher's
// compiler.go (single-pass AST walk emitting into a growable
// instruction buffer) and context.go (scope-chain local-slot
// allocation), retargeted from Zend op-array lowering onto the
// Ruby-subset lowering rules of spec.md §4.3.
package compiler

import "fmt"

// CompileError reports a lowering failure at a source position.
type CompileError struct {
	File    string
	Line    int
	Message string
}

func sprintfCompile(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}

func (e *CompileError) Error() string {
	if e.File == "" && e.Line == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

