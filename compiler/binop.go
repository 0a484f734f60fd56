package compiler

import (
	"math"

	"github.com/embervm/embervm/ast"
	"github.com/embervm/embervm/opcodes"
)

// opPair is a binary operator's full-operand and immediate-integer
// opcode variants (spec.md §4.3 "Binary operator on immediate integer
// right-hand side").
type opPair struct {
	full opcodes.Op
	imm  opcodes.Op // 0 if the operator has no _i variant
}

var arithOps = map[string]opPair{
	"+":  {opcodes.OpAdd, opcodes.OpAddI},
	"-":  {opcodes.OpSub, opcodes.OpSubI},
	"*":  {opcodes.OpMul, opcodes.OpMulI},
	"/":  {opcodes.OpDiv, opcodes.OpDivI},
	"%":  {opcodes.OpRem, opcodes.OpRemI},
	"**": {opcodes.OpPow, opcodes.OpPowI},
	"&":  {opcodes.OpBitAnd, opcodes.OpBitAndI},
	"|":  {opcodes.OpBitOr, opcodes.OpBitOrI},
	"^":  {opcodes.OpBitXor, opcodes.OpBitXorI},
	">>": {opcodes.OpShr, opcodes.OpShrI},
	"<<": {opcodes.OpShl, opcodes.OpShlI},
}

var cmpOps = map[string]opPair{
	"==":  {opcodes.OpEq, opcodes.OpEqI},
	"!=":  {opcodes.OpNe, opcodes.OpNeI},
	"<":   {opcodes.OpLt, opcodes.OpLtI},
	"<=":  {opcodes.OpLe, opcodes.OpLeI},
	">":   {opcodes.OpGt, opcodes.OpGtI},
	">=":  {opcodes.OpGe, opcodes.OpGeI},
	"<=>": {opcodes.OpCmp3Way, 0},
	"===": {opcodes.OpTripleEq, 0},
}

// fusedJumpIfFalse maps a comparison operator to the opcode that
// fuses the compare with a conditional jump (spec.md §4.3).
var fusedJumpIfFalse = map[string]opcodes.Op{
	"<":  opcodes.OpJmpIfFalseLt,
	"<=": opcodes.OpJmpIfFalseLe,
	">":  opcodes.OpJmpIfFalseGt,
	">=": opcodes.OpJmpIfFalseGe,
	"==": opcodes.OpJmpIfFalseEq,
	"!=": opcodes.OpJmpIfFalseNe,
}

func (c *Compiler) compileBinOp(u *unit, node *ast.BinOp) {
	switch node.Op {
	case "&&", "and":
		c.compileExpr(u, node.Left)
		u.dup(1)
		jf := u.jump(opcodes.OpJmpIfFalse)
		u.op(opcodes.OpPop)
		c.compileExpr(u, node.Right)
		u.patchHere(jf)
		return
	case "||", "or":
		c.compileExpr(u, node.Left)
		u.dup(1)
		jt := u.jump(opcodes.OpJmpIfTrue)
		u.op(opcodes.OpPop)
		c.compileExpr(u, node.Right)
		u.patchHere(jt)
		return
	}

	c.compileExpr(u, node.Left)
	if pair, ok := arithOps[node.Op]; ok {
		if c.emitImmediateRHS(u, node.Right, pair) {
			return
		}
		c.compileExpr(u, node.Right)
		u.op(pair.full)
		return
	}
	if pair, ok := cmpOps[node.Op]; ok {
		if pair.imm != 0 && c.emitImmediateRHS(u, node.Right, pair) {
			return
		}
		c.compileExpr(u, node.Right)
		u.op(pair.full)
		return
	}
	c.fail(node.Position, "unsupported binary operator %q", node.Op)
}

// emitImmediateRHS emits the `_i` variant of pair when rhs is an
// integer literal that fits in an i32, per spec.md §4.3.
func (c *Compiler) emitImmediateRHS(u *unit, rhs ast.Node, pair opPair) bool {
	if pair.imm == 0 {
		return false
	}
	lit, ok := rhs.(*ast.IntLiteral)
	if !ok || lit.Value > math.MaxInt32 || lit.Value < math.MinInt32 {
		return false
	}
	u.w.Op(pair.imm)
	u.w.I32(int32(lit.Value))
	return true
}

// compileCondJumpFalse compiles cond and emits a jump-if-false,
// fusing a top-level comparison into a single instruction when
// possible (spec.md §4.3 "Conditional with comparison"). Returns the
// patch position of the emitted jump.
func (c *Compiler) compileCondJumpFalse(u *unit, cond ast.Node) int {
	if bin, ok := cond.(*ast.BinOp); ok {
		if fused, ok := fusedJumpIfFalse[bin.Op]; ok {
			c.compileExpr(u, bin.Left)
			c.compileExpr(u, bin.Right)
			return u.jump(fused)
		}
	}
	c.compileExpr(u, cond)
	return u.jump(opcodes.OpJmpIfFalse)
}
