package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embervm/embervm/ast"
	"github.com/embervm/embervm/classes"
	"github.com/embervm/embervm/methods"
	"github.com/embervm/embervm/opcodes"
	"github.com/embervm/embervm/symtab"
)

func newTestCompiler() *Compiler {
	return New(methods.NewRepository(), classes.NewRegistry(), symtab.New())
}

// decode walks code and returns the sequence of opcodes in order,
// skipping over each instruction's inline operands so later assertions
// can check "this program contains an add_i then a jmp_if_false"
// without hand-computing every byte offset.
func decode(code []byte) []opcodes.Op {
	r := opcodes.NewReader(code, 0)
	var ops []opcodes.Op
	for r.PC < len(code) {
		op := r.OpAt(r.PC)
		r.PC++
		ops = append(ops, op)
		switch op {
		case opcodes.OpPushImmediateI64, opcodes.OpPushImmediateF64:
			r.U64()
		case opcodes.OpPushConstant, opcodes.OpPushSymbol, opcodes.OpCreateArray, opcodes.OpCreateHash,
			opcodes.OpGetIvar, opcodes.OpSetIvar, opcodes.OpGetCvar, opcodes.OpSetCvar,
			opcodes.OpGetGlobal, opcodes.OpSetGlobal, opcodes.OpGetLocal, opcodes.OpSetLocal,
			opcodes.OpAddI, opcodes.OpSubI, opcodes.OpMulI, opcodes.OpDivI, opcodes.OpRemI, opcodes.OpPowI,
			opcodes.OpBitAndI, opcodes.OpBitOrI, opcodes.OpBitXorI, opcodes.OpShrI, opcodes.OpShlI,
			opcodes.OpEqI, opcodes.OpNeI, opcodes.OpLtI, opcodes.OpLeI, opcodes.OpGtI, opcodes.OpGeI,
			opcodes.OpCheckLocal, opcodes.OpCheckIvar, opcodes.OpCheckGlobal, opcodes.OpCheckCvar, opcodes.OpCheckConst:
			r.U32()
		case opcodes.OpJmp, opcodes.OpJmpIfTrue, opcodes.OpJmpIfFalse, opcodes.OpJmpBack,
			opcodes.OpJmpIfFalseLt, opcodes.OpJmpIfFalseLe, opcodes.OpJmpIfFalseGt,
			opcodes.OpJmpIfFalseGe, opcodes.OpJmpIfFalseEq, opcodes.OpJmpIfFalseNe:
			r.I32()
		case opcodes.OpGetConst:
			r.U32() // name id
			r.U32() // cache slot
		case opcodes.OpSetConst:
			r.U32()
		case opcodes.OpGetDynLocal, opcodes.OpSetDynLocal:
			r.U32()
			r.U32()
		case opcodes.OpDupN, opcodes.OpSinkN, opcodes.OpTopN, opcodes.OpTakeN:
			r.U16()
		case opcodes.OpOptSend:
			r.U32()
			r.U16()
			r.U32()
			r.U32()
		case opcodes.OpSend:
			r.U32()
			r.U16()
			r.U8()
			r.U8()
			r.U32()
			r.U32()
		case opcodes.OpCreateRange:
			r.U8()
		case opcodes.OpRescue:
			r.U8()
		case opcodes.OpYield, opcodes.OpSuper:
			// Yield: u16 argc. Super: u16 argc, u32 block, u8 noargs.
			if op == opcodes.OpYield {
				r.U16()
			} else {
				r.U16()
				r.U32()
				r.U8()
			}
		case opcodes.OpDefMethod, opcodes.OpDefSMethod:
			r.U32()
			r.U32()
		case opcodes.OpDefClass:
			r.U8()
			r.U32()
			r.U32()
		case opcodes.OpDefSClass:
			r.U32()
		case opcodes.OpCreateProc:
			r.U32()
		}
	}
	return ops
}

func pos() ast.Position { return ast.Position{Line: 1, File: "t.rb"} }

func TestCompileProgramEmptyPushesNil(t *testing.T) {
	c := newTestCompiler()
	fn, err := c.CompileProgram(&ast.Program{}, "t.rb")
	require.NoError(t, err)
	require.Equal(t, []opcodes.Op{opcodes.OpPushNil, opcodes.OpReturn}, decode(fn.Code))
}

func TestCompileIntLiteral(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{&ast.IntLiteral{Value: 42}}}
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	require.Equal(t, []opcodes.Op{opcodes.OpPushImmediateI64, opcodes.OpReturn}, decode(fn.Code))
}

func TestBinOpFusesImmediateInt(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{
		&ast.BinOp{Op: "+", Left: &ast.IntLiteral{Value: 1}, Right: &ast.IntLiteral{Value: 2}},
	}}
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	require.Equal(t, []opcodes.Op{
		opcodes.OpPushImmediateI64, opcodes.OpAddI, opcodes.OpReturn,
	}, decode(fn.Code))
}

func TestBinOpNonImmediateUsesFullForm(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{
		&ast.BinOp{Op: "+", Left: &ast.IntLiteral{Value: 1}, Right: &ast.VarRef{Kind: ast.VarLocal, Name: "x"}},
	}}
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	require.Equal(t, []opcodes.Op{
		opcodes.OpPushImmediateI64, opcodes.OpGetLocal, opcodes.OpAdd, opcodes.OpReturn,
	}, decode(fn.Code))
}

func TestIfElseFusesComparisonJump(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{
		&ast.If{
			Cond: &ast.BinOp{Op: "<", Left: &ast.VarRef{Kind: ast.VarLocal, Name: "x"}, Right: &ast.IntLiteral{Value: 0}},
			Then: []ast.Node{&ast.IntLiteral{Value: 1}},
			ElseNode: []ast.Node{&ast.IntLiteral{Value: 2}},
		},
	}}
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	ops := decode(fn.Code)
	require.Equal(t, []opcodes.Op{
		opcodes.OpGetLocal, opcodes.OpPushImmediateI64, opcodes.OpJmpIfFalseLt,
		opcodes.OpPushImmediateI64, opcodes.OpJmp,
		opcodes.OpPushImmediateI64,
		opcodes.OpReturn,
	}, ops)
}

func TestIfNoElsePushesNil(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{
		&ast.If{
			Cond: &ast.TrueLiteral{},
			Then: []ast.Node{&ast.IntLiteral{Value: 1}},
		},
	}}
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	ops := decode(fn.Code)
	require.Contains(t, ops, opcodes.OpPushNil)
}

func TestWhileLoopBackPatchesBreakAndContinuation(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{
		&ast.While{
			Cond: &ast.VarRef{Kind: ast.VarLocal, Name: "running"},
			Body: []ast.Node{
				&ast.Break{Value: &ast.IntLiteral{Value: 9}},
			},
		},
	}}
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	ops := decode(fn.Code)
	require.Equal(t, []opcodes.Op{
		opcodes.OpGetLocal, opcodes.OpJmpIfFalse,
		opcodes.OpPushImmediateI64, opcodes.OpJmp, opcodes.OpPop,
		opcodes.OpJmpBack,
		opcodes.OpPushNil,
		opcodes.OpReturn,
	}, ops)
}

func TestLocalVarAssignAndReadRoundTrips(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{
		&ast.VarAssign{Kind: ast.VarLocal, Name: "x", Value: &ast.IntLiteral{Value: 5}},
		&ast.VarRef{Kind: ast.VarLocal, Name: "x"},
	}}
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	require.Equal(t, []opcodes.Op{
		opcodes.OpPushImmediateI64, opcodes.OpDupN, opcodes.OpSetLocal,
		opcodes.OpPop,
		opcodes.OpGetLocal,
		opcodes.OpReturn,
	}, decode(fn.Code))
	require.Len(t, fn.Locals, 1)
	require.Equal(t, "x", func() string {
		name, _ := c.Names.Lookup("x")
		return c.Names.Name(name)
	}())
}

func TestMethodDefInternsBodyAndEmitsDefMethod(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{
		&ast.MethodDef{
			Name:   "square",
			Params: []ast.Param{{Kind: ast.ParamRequired, Name: "n"}},
			Body: []ast.Node{
				&ast.BinOp{Op: "*", Left: &ast.VarRef{Kind: ast.VarLocal, Name: "n"}, Right: &ast.VarRef{Kind: ast.VarLocal, Name: "n"}},
			},
		},
	}}
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	ops := decode(fn.Code)
	require.Equal(t, opcodes.OpDefMethod, ops[0])
	desc, ok := c.Methods.Get(1)
	require.True(t, ok)
	require.Equal(t, methods.KindBytecode, desc.Kind)
}

func TestOptionalParamDefaultPrologue(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{
		&ast.MethodDef{
			Name: "greet",
			Params: []ast.Param{
				{Kind: ast.ParamOptional, Name: "name", Default: &ast.StringLiteral{Value: "world"}},
			},
			Body: []ast.Node{&ast.VarRef{Kind: ast.VarLocal, Name: "name"}},
		},
	}}
	_, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	desc, ok := c.Methods.Get(1)
	require.True(t, ok)
	require.Len(t, desc.Bytecode.Params.Optional, 1)
	require.Equal(t, 0, desc.Bytecode.Params.Optional[0].DefaultBytecode)
	opsBody := decode(desc.Bytecode.Code)
	require.Equal(t, opcodes.OpCheckLocal, opsBody[0])
	require.Equal(t, opcodes.OpJmpIfFalse, opsBody[1])
}

func TestBeginRescueRecordsExceptionEntry(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{
		&ast.Begin{
			Body: []ast.Node{&ast.IntLiteral{Value: 1}},
			Rescues: []ast.RescueClause{
				{
					ExceptionClasses: []ast.Node{&ast.ConstRef{Name: "StandardError"}},
					VarName:          "e",
					Body:             []ast.Node{&ast.IntLiteral{Value: 2}},
				},
			},
		},
	}}
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	require.Len(t, fn.Exceptions, 1)
	require.Equal(t, 0, fn.Exceptions[0].BodyStart)
	require.Greater(t, fn.Exceptions[0].Handler, fn.Exceptions[0].BodyStart)
}

func TestBeginEnsureRecordsStandaloneCopy(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{
		&ast.Begin{
			Body:   []ast.Node{&ast.IntLiteral{Value: 1}},
			Ensure: []ast.Node{&ast.IntLiteral{Value: 2}},
		},
	}}
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	require.Len(t, fn.Exceptions, 1)
	require.GreaterOrEqual(t, fn.Exceptions[0].Ensure, 0)
	require.Greater(t, fn.Exceptions[0].EnsureEnd, fn.Exceptions[0].Ensure)
}

func TestCaseWithSubjectUsesTripleEqChain(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{
		&ast.Case{
			Subject: &ast.VarRef{Kind: ast.VarLocal, Name: "x"},
			Whens: []ast.WhenClause{
				{Conds: []ast.Node{&ast.IntLiteral{Value: 1}}, Body: []ast.Node{&ast.StringLiteral{Value: "one"}}},
			},
			Else: []ast.Node{&ast.StringLiteral{Value: "other"}},
		},
	}}
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	ops := decode(fn.Code)
	require.Contains(t, ops, opcodes.OpTripleEq)
	require.Contains(t, ops, opcodes.OpJmpIfTrue)
}

func TestMultipleAssignWithSplat(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{
		&ast.MultipleAssign{
			Targets: []ast.Node{
				&ast.VarRef{Kind: ast.VarLocal, Name: "a"},
				&ast.Splat{Value: &ast.VarRef{Kind: ast.VarLocal, Name: "b"}},
				&ast.VarRef{Kind: ast.VarLocal, Name: "c"},
			},
			Values: []ast.Node{&ast.VarRef{Kind: ast.VarLocal, Name: "arr"}},
		},
	}}
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	ops := decode(fn.Code)
	require.Contains(t, ops, opcodes.OpCreateRange)
	require.Equal(t, 3, len(fn.Locals)-1) // a, b, c declared in addition to arr read (not a local write)
}

func TestIndexOpAssignEvaluatesToAssignedValue(t *testing.T) {
	c := newTestCompiler()
	prog := &ast.Program{Statements: []ast.Node{
		&ast.OpAssign{
			Op: "+",
			Target: &ast.IndexExpr{
				Receiver: &ast.VarRef{Kind: ast.VarLocal, Name: "arr"},
				Args:     []ast.Node{&ast.IntLiteral{Value: 0}},
			},
			Value: &ast.IntLiteral{Value: 1},
		},
	}}
	fn, err := c.CompileProgram(prog, "t.rb")
	require.NoError(t, err)
	ops := decode(fn.Code)
	require.Contains(t, ops, opcodes.OpSinkN)
	last := ops[len(ops)-2] // before the trailing OpReturn
	require.Equal(t, opcodes.OpPop, last)
}
