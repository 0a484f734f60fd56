package compiler

import (
	"github.com/embervm/embervm/ast"
	"github.com/embervm/embervm/opcodes"
)

func (c *Compiler) compileVarRef(u *unit, node *ast.VarRef) {
	switch node.Kind {
	case ast.VarLocal:
		slot, depth, ok := u.scope.resolve(node.Name)
		if !ok {
			// Referencing an undeclared local is itself a declaration
			// point in Ruby's parser; since no parser runs ahead of us,
			// treat first-read-before-any-write as nil (uninitialized).
			slot = u.scope.declare(node.Name)
			depth = 0
		}
		if depth == 0 {
			u.w.Op(opcodes.OpGetLocal)
			u.w.U32(slot)
		} else {
			u.w.Op(opcodes.OpGetDynLocal)
			u.w.U32(slot)
			u.w.U32(uint32(depth))
		}
	case ast.VarInstance:
		u.w.Op(opcodes.OpGetIvar)
		u.w.U32(c.Names.Intern(node.Name))
	case ast.VarClassVar:
		u.w.Op(opcodes.OpGetCvar)
		u.w.U32(c.Names.Intern(node.Name))
	case ast.VarGlobal, ast.VarSpecial:
		u.w.Op(opcodes.OpGetGlobal)
		u.w.U32(c.Names.Intern(node.Name))
	}
}

// storeVar assumes the value to store is already on top of the stack
// and consumes it.
func (c *Compiler) storeVar(u *unit, kind ast.VarKind, name string, pos ast.Position) {
	switch kind {
	case ast.VarLocal:
		slot, depth, ok := u.scope.resolve(name)
		if !ok {
			slot = u.scope.declare(name)
			depth = 0
		}
		if depth == 0 {
			u.w.Op(opcodes.OpSetLocal)
			u.w.U32(slot)
		} else {
			u.w.Op(opcodes.OpSetDynLocal)
			u.w.U32(slot)
			u.w.U32(uint32(depth))
		}
	case ast.VarInstance:
		u.w.Op(opcodes.OpSetIvar)
		u.w.U32(c.Names.Intern(name))
	case ast.VarClassVar:
		u.w.Op(opcodes.OpSetCvar)
		u.w.U32(c.Names.Intern(name))
	case ast.VarGlobal, ast.VarSpecial:
		u.w.Op(opcodes.OpSetGlobal)
		u.w.U32(c.Names.Intern(name))
	}
}

func (c *Compiler) compileArrayLiteral(u *unit, node *ast.ArrayLiteral) {
	for _, e := range node.Elements {
		if sp, ok := e.(*ast.Splat); ok {
			c.compileExpr(u, sp.Value)
			u.op(opcodes.OpSplat)
			continue
		}
		c.compileExpr(u, e)
	}
	u.w.Op(opcodes.OpCreateArray)
	u.w.U32(uint32(len(node.Elements)))
}

// compileOpAssign lowers `target op= value`, including the `||=`/`&&=`
// short-circuit forms that only evaluate/store when needed.
func (c *Compiler) compileOpAssign(u *unit, node *ast.OpAssign) {
	switch t := node.Target.(type) {
	case *ast.VarRef:
		c.compileVarRef(u, t)
		switch node.Op {
		case "||":
			u.dup(1)
			jt := u.jump(opcodes.OpJmpIfTrue)
			u.op(opcodes.OpPop)
			c.compileExpr(u, node.Value)
			u.dup(1)
			c.storeVar(u, t.Kind, t.Name, t.Position)
			u.patchHere(jt)
		case "&&":
			u.dup(1)
			jf := u.jump(opcodes.OpJmpIfFalse)
			u.op(opcodes.OpPop)
			c.compileExpr(u, node.Value)
			u.dup(1)
			c.storeVar(u, t.Kind, t.Name, t.Position)
			u.patchHere(jf)
		default:
			c.applyOpAndPush(u, node.Op, node.Value, node.Position)
			u.dup(1)
			c.storeVar(u, t.Kind, t.Name, t.Position)
		}
	case *ast.IndexExpr:
		n := len(t.Args)
		c.compileExpr(u, t.Receiver)
		for _, a := range t.Args {
			c.compileExpr(u, a)
		}
		u.dup(uint16(n + 1))
		c.emitSend(u, t.Position, "[]", n, 0, 0)
		c.applyOpAndPush(u, node.Op, node.Value, node.Position)
		// stack: recv, args..., newval. Clone newval and sink the
		// clone under recv/args so the []= call consumes the
		// original (recv, args, newval) and the clone survives on
		// top as this expression's result (Ruby: `a[i] += 1`
		// evaluates to the assigned value, not []='s return).
		u.dup(1)
		u.w.Op(opcodes.OpSinkN)
		u.w.U16(uint16(n + 3))
		c.emitSend(u, node.Position, "[]=", n+1, 0, 0)
		u.op(opcodes.OpPop)
	default:
		c.fail(node.Position, "unsupported op-assign target %T", node.Target)
	}
}

// applyOpAndPush assumes the current value is on top of the stack and
// replaces it with `current op value`.
func (c *Compiler) applyOpAndPush(u *unit, op string, value ast.Node, pos ast.Position) {
	if pair, ok := arithOps[op]; ok {
		if c.emitImmediateRHS(u, value, pair) {
			return
		}
		c.compileExpr(u, value)
		u.op(pair.full)
		return
	}
	c.fail(pos, "unsupported op-assign operator %q", op)
}

// compileMultipleAssign lowers `a, b, *c = rhs` per spec.md §4.3.
func (c *Compiler) compileMultipleAssign(u *unit, node *ast.MultipleAssign) {
	splatIdx := -1
	for i, t := range node.Targets {
		if _, ok := t.(*ast.Splat); ok {
			splatIdx = i
		}
	}

	if len(node.Values) == 1 {
		c.compileExpr(u, node.Values[0])
	} else {
		for i := 0; i < len(node.Targets); i++ {
			if i < len(node.Values) {
				c.compileExpr(u, node.Values[i])
			} else {
				u.op(opcodes.OpPushNil)
			}
		}
		u.w.Op(opcodes.OpCreateArray)
		u.w.U32(uint32(len(node.Targets)))
	}
	// stack: ... arr   (the assembled/evaluated RHS array)
	u.dup(1)
	before, after := node.Targets, []ast.Node(nil)
	if splatIdx >= 0 {
		before = node.Targets[:splatIdx]
		after = node.Targets[splatIdx+1:]
	}
	for i, t := range before {
		u.dup(1)
		c.pushIntLiteral(u, int64(i))
		c.emitSend(u, t.Pos(), "[]", 1, 0, 0)
		c.assignTarget(u, t)
	}
	if splatIdx >= 0 {
		splat := node.Targets[splatIdx].(*ast.Splat)
		u.dup(1)
		c.pushIntLiteral(u, int64(len(before)))
		c.pushIntLiteral(u, int64(-(len(after) + 1)))
		u.w.Op(opcodes.OpCreateRange)
		u.w.U8(0)
		c.emitSend(u, splat.Position, "[]", 1, 0, 0)
		c.assignTarget(u, splat.Value)
	}
	for j, t := range after {
		u.dup(1)
		c.pushIntLiteral(u, int64(-(len(after)-j)))
		c.emitSend(u, t.Pos(), "[]", 1, 0, 0)
		c.assignTarget(u, t)
	}
	u.op(opcodes.OpPop) // drop the extra dup'd array, the outer value is the original assignment result
}

func (c *Compiler) pushIntLiteral(u *unit, v int64) {
	u.w.Op(opcodes.OpPushImmediateI64)
	u.w.I64(v)
}

// assignTarget assumes the value is on top of the stack and stores it
// into a VarRef or IndexExpr target, consuming it.
func (c *Compiler) assignTarget(u *unit, target ast.Node) {
	switch t := target.(type) {
	case *ast.VarRef:
		c.storeVar(u, t.Kind, t.Name, t.Position)
	case *ast.IndexExpr:
		// value is on top already; push receiver+args above it, then
		// rotate the buried value back to the top so the stack reads
		// recv, args..., value as emitSend("[]=") expects.
		c.compileExpr(u, t.Receiver)
		for _, a := range t.Args {
			c.compileExpr(u, a)
		}
		u.w.Op(opcodes.OpTopN)
		u.w.U16(uint16(len(t.Args) + 2))
		c.emitSend(u, t.Position, "[]=", len(t.Args)+1, 0, 0)
		u.op(opcodes.OpPop)
	default:
		c.fail(target.Pos(), "unsupported multiple-assign target %T", target)
	}
}

func (c *Compiler) compileDefined(u *unit, node *ast.Defined) {
	switch e := node.Expr.(type) {
	case *ast.VarRef:
		switch e.Kind {
		case ast.VarLocal:
			if _, _, ok := u.scope.resolve(e.Name); !ok {
				u.op(opcodes.OpPushNil)
				return
			}
			c.pushString("local-variable")
		case ast.VarInstance:
			u.w.Op(opcodes.OpCheckIvar)
			u.w.U32(c.Names.Intern(e.Name))
			c.condString(u, "instance-variable")
		case ast.VarGlobal, ast.VarSpecial:
			u.w.Op(opcodes.OpCheckGlobal)
			u.w.U32(c.Names.Intern(e.Name))
			c.condString(u, "global-variable")
		case ast.VarClassVar:
			u.w.Op(opcodes.OpCheckCvar)
			u.w.U32(c.Names.Intern(e.Name))
			c.condString(u, "class variable")
		}
	case *ast.ConstRef:
		u.w.Op(opcodes.OpCheckConst)
		u.w.U32(c.Names.Intern(e.Name))
		c.condString(u, "constant")
	default:
		c.pushString("expression")
	}
}

// condString turns a boolean on top of the stack into (str or nil).
func (c *Compiler) condString(u *unit, s string) {
	jf := u.jump(opcodes.OpJmpIfFalse)
	c.pushString(s)
	jend := u.jump(opcodes.OpJmp)
	u.patchHere(jf)
	u.op(opcodes.OpPushNil)
	u.patchHere(jend)
}
