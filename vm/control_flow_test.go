package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embervm/embervm/ast"
	"github.com/embervm/embervm/classes"
	"github.com/embervm/embervm/compiler"
	"github.com/embervm/embervm/internal/raise"
	"github.com/embervm/embervm/methods"
	"github.com/embervm/embervm/symtab"
	"github.com/embervm/embervm/values"
)

func globalAssign(name string, val ast.Node) *ast.VarAssign {
	return &ast.VarAssign{Kind: ast.VarGlobal, Name: name, Value: val}
}

// TestEnsureRunsOnCaughtRescue exercises the §8-style begin/rescue/ensure
// scenario a maintainer review called out directly: the ensure body must
// run even though the rescue arm handles the error and the begin
// expression's value is the rescue arm's own.
func TestEnsureRunsOnCaughtRescue(t *testing.T) {
	v := New(methods.NewRepository(), symtab.New())
	begin := &ast.Begin{
		Body: []ast.Node{&ast.BinOp{Op: "/", Left: &ast.IntLiteral{Value: 1}, Right: &ast.IntLiteral{Value: 0}}},
		Rescues: []ast.RescueClause{{
			ExceptionClasses: []ast.Node{&ast.ConstRef{Name: "ZeroDivisionError"}},
			VarName:          "e",
			Body:             []ast.Node{&ast.StringLiteral{Value: "caught"}},
		}},
		Ensure: []ast.Node{globalAssign("ran", &ast.TrueLiteral{})},
	}
	prog := &ast.Program{Statements: []ast.Node{begin}}
	res := compileAndRun(t, v, prog)
	requireString(t, v, res, "caught")

	ranID := v.Symbols.Intern("ran")
	ran, ok := v.Globals.Get(ranID)
	require.True(t, ok)
	require.True(t, ran.IsTrue())
}

// TestEnsureRunsOnUncaughtRaise exercises the unhandled side of the same
// begin/ensure: the rescue arm doesn't match the raised class, so the
// error must keep propagating out of Run, but the ensure body still has
// to run first (spec.md §7's "its ensure block ... is spliced into the
// unwinding path").
func TestEnsureRunsOnUncaughtRaise(t *testing.T) {
	v := New(methods.NewRepository(), symtab.New())
	begin := &ast.Begin{
		Body: []ast.Node{&ast.BinOp{Op: "/", Left: &ast.IntLiteral{Value: 1}, Right: &ast.IntLiteral{Value: 0}}},
		Rescues: []ast.RescueClause{{
			ExceptionClasses: []ast.Node{&ast.ConstRef{Name: "NoMethodError"}},
			Body:             []ast.Node{&ast.StringLiteral{Value: "wrong class, never reached"}},
		}},
		Ensure: []ast.Node{globalAssign("ran", &ast.TrueLiteral{})},
	}
	prog := &ast.Program{Statements: []ast.Node{begin}}

	c := compiler.New(v.Methods, classes.NewRegistry(), v.Symbols)
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	_, rerr := v.Run(NewFrame(fn, values.Nil(), nil, values.Nil()))
	require.NotNil(t, rerr)
	require.Equal(t, raise.ZeroDivisionError, rerr.Kind)

	ranID := v.Symbols.Intern("ran")
	ran, ok := v.Globals.Get(ranID)
	require.True(t, ok)
	require.True(t, ran.IsTrue())
}

// workerWithYieldingMethod builds `class Worker; def m; yield; 99; end; end`
// plus `w = Worker.new`, returning the program's statements so callers can
// append the actual `w.m { ... }` call under test.
func workerWithYieldingMethod() []ast.Node {
	classDef := &ast.ClassDef{Name: "Worker", Body: []ast.Node{
		&ast.MethodDef{Name: "m", Body: []ast.Node{
			&ast.Yield{},
			&ast.IntLiteral{Value: 99},
		}},
	}}
	newWorker := &ast.MethodCall{Receiver: &ast.ConstRef{Name: "Worker"}, Name: "new"}
	return []ast.Node{
		classDef,
		&ast.VarAssign{Kind: ast.VarLocal, Name: "w", Value: newWorker},
	}
}

// TestReturnInBlockExitsEnclosingMethod is the second maintainer finding:
// `return` compiled inside a plain block body must end the method that
// was handed the block, not just the block's own invocation.
func TestReturnInBlockExitsEnclosingMethod(t *testing.T) {
	v := New(methods.NewRepository(), symtab.New())
	stmts := workerWithYieldingMethod()
	call := &ast.MethodCall{
		Receiver: &ast.VarRef{Kind: ast.VarLocal, Name: "w"},
		Name:     "m",
		Block:    &ast.BlockLiteral{Body: []ast.Node{&ast.Return{Value: &ast.IntLiteral{Value: 7}}}},
	}
	prog := &ast.Program{Statements: append(stmts, call)}
	res := compileAndRun(t, v, prog)
	require.Equal(t, values.Int(7), res)
}

// TestNextInBlockSkipsRestOfBlockBody is the third maintainer finding:
// `next` with no directly-compiled enclosing loop must end the block's
// own body right there, rather than falling through to statements after
// it (which a push-value-then-pop lowering would wrongly run).
func TestNextInBlockSkipsRestOfBlockBody(t *testing.T) {
	v := New(methods.NewRepository(), symtab.New())
	stmts := workerWithYieldingMethod()
	blockBody := []ast.Node{
		globalAssign("a", &ast.IntLiteral{Value: 1}),
		&ast.Next{},
		globalAssign("b", &ast.IntLiteral{Value: 1}),
	}
	call := &ast.MethodCall{
		Receiver: &ast.VarRef{Kind: ast.VarLocal, Name: "w"},
		Name:     "m",
		Block:    &ast.BlockLiteral{Body: blockBody},
	}
	prog := &ast.Program{Statements: append(stmts, call)}
	res := compileAndRun(t, v, prog)
	require.Equal(t, values.Int(99), res) // the method's own body runs to completion

	aID, bID := v.Symbols.Intern("a"), v.Symbols.Intern("b")
	a, ok := v.Globals.Get(aID)
	require.True(t, ok)
	require.True(t, a.IsFixedInteger())
	require.Equal(t, int64(1), a.AsInt())
	_, ok = v.Globals.Get(bID)
	require.False(t, ok, "statement after `next` must not run")
}
