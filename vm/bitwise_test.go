package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embervm/embervm/ast"
	"github.com/embervm/embervm/methods"
	"github.com/embervm/embervm/symtab"
	"github.com/embervm/embervm/values"
)

// binOpProgram wraps a single `lhs op rhs` expression as the program's
// lone statement, its result becoming Run's return value.
func binOpProgram(lhs ast.Node, op string, rhs ast.Node) *ast.Program {
	return &ast.Program{Statements: []ast.Node{&ast.BinOp{Op: op, Left: lhs, Right: rhs}}}
}

func TestBitwiseOpsOnFixedIntegers(t *testing.T) {
	cases := []struct {
		op   string
		lhs  int64
		rhs  int64
		want int64
	}{
		{"&", 0b1100, 0b1010, 0b1000},
		{"|", 0b1100, 0b1010, 0b1110},
		{"^", 0b1100, 0b1010, 0b0110},
		{">>", 16, 2, 4},
		{"<<", 1, 4, 16},
		{">>", 4, -1, 8}, // negative shift amount reverses direction
	}
	for _, tc := range cases {
		v := New(methods.NewRepository(), symtab.New())
		prog := binOpProgram(&ast.IntLiteral{Value: tc.lhs}, tc.op, &ast.IntLiteral{Value: tc.rhs})
		res := compileAndRun(t, v, prog)
		require.Equal(t, values.Int(tc.want), res, "%d %s %d", tc.lhs, tc.op, tc.rhs)
	}
}

func TestBitwiseNot(t *testing.T) {
	v := New(methods.NewRepository(), symtab.New())
	prog := &ast.Program{Statements: []ast.Node{&ast.UnaryOp{Op: "~", Operand: &ast.IntLiteral{Value: 0}}}}
	res := compileAndRun(t, v, prog)
	require.Equal(t, values.Int(-1), res)
}

func TestImmediateComparisonOps(t *testing.T) {
	cases := []struct {
		op   string
		lhs  int64
		rhs  int64
		want bool
	}{
		{"==", 5, 5, true},
		{"==", 5, 6, false},
		{"!=", 5, 6, true},
		{"<", 1, 2, true},
		{"<=", 2, 2, true},
		{">", 3, 2, true},
		{">=", 2, 2, true},
	}
	for _, tc := range cases {
		v := New(methods.NewRepository(), symtab.New())
		prog := binOpProgram(&ast.IntLiteral{Value: tc.lhs}, tc.op, &ast.IntLiteral{Value: tc.rhs})
		res := compileAndRun(t, v, prog)
		require.Equal(t, values.Bool(tc.want), res, "%d %s %d", tc.lhs, tc.op, tc.rhs)
	}
}
