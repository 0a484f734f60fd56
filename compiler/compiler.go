package compiler

import (
	"github.com/embervm/embervm/ast"
	"github.com/embervm/embervm/bytecode"
	"github.com/embervm/embervm/classes"
	"github.com/embervm/embervm/methods"
	"github.com/embervm/embervm/opcodes"
	"github.com/embervm/embervm/symtab"
)

// Compiler lowers ast.Program/ast.BlockLiteral/ast.MethodDef trees
// into bytecode.Function values, interning nested method and block
// bodies into a shared methods.Repository as it goes (spec.md §4.3
// "Blocks and closures": "create_proc ... together with the method
// id"). One Compiler is shared across an entire compilation run so
// that method/class/constant ids stay consistent with the VM that
// will execute the result.
type Compiler struct {
	Methods *methods.Repository
	Classes *classes.Registry
	Names   *symtab.Table
}

func New(m *methods.Repository, c *classes.Registry, names *symtab.Table) *Compiler {
	return &Compiler{Methods: m, Classes: c, Names: names}
}

// CompileProgram lowers a top-level program into its entry-point
// bytecode.Function.
func (c *Compiler) CompileProgram(prog *ast.Program, file string) (fn *bytecode.Function, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*CompileError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()
	u := newUnit(c, bytecode.KindTopLevel, "<main>", nil, nil)
	u.file = file
	c.compileBody(u, prog.Statements)
	u.patchEnds()
	u.op(opcodes.OpReturn)
	return u.finish(bytecode.Params{}), nil
}

func (c *Compiler) fail(pos ast.Position, format string, args ...interface{}) {
	panic(&CompileError{File: pos.File, Line: pos.Line, Message: sprintfCompile(format, args...)})
}

// compileBody compiles a statement list so that only the last
// statement's value survives on the stack; an empty list pushes nil
// (every Ruby body is an expression).
func (c *Compiler) compileBody(u *unit, stmts []ast.Node) {
	if len(stmts) == 0 {
		u.op(opcodes.OpPushNil)
		return
	}
	for i, s := range stmts {
		c.compileExpr(u, s)
		if i != len(stmts)-1 {
			u.op(opcodes.OpPop)
		}
	}
}

// compileDiscarding compiles a statement list purely for effect,
// leaving nothing on the stack (used for e.g. ensure bodies).
func (c *Compiler) compileDiscarding(u *unit, stmts []ast.Node) {
	for _, s := range stmts {
		c.compileExpr(u, s)
		u.op(opcodes.OpPop)
	}
}
