package compiler

import (
	"github.com/embervm/embervm/ast"
	"github.com/embervm/embervm/bytecode"
	"github.com/embervm/embervm/opcodes"
)

func (c *Compiler) compileIf(u *unit, node *ast.If) {
	thenBody, elseBody := node.Then, node.ElseNode
	cond := node.Cond
	if node.Unless {
		thenBody, elseBody = elseBody, thenBody
	}
	jf := c.compileCondJumpFalse(u, cond)
	c.compileBody(u, thenBody)
	jend := u.jump(opcodes.OpJmp)
	u.patchHere(jf)
	if elseBody != nil {
		c.compileBody(u, elseBody)
	} else {
		u.op(opcodes.OpPushNil)
	}
	u.patchHere(jend)
}

// compileWhile lowers while/until. The loop expression's value is nil
// on normal exit, or the break value when a break fired (spec.md
// "Control flow" testable properties).
func (c *Compiler) compileWhile(u *unit, node *ast.While) {
	lf := u.pushLoop()
	start := u.pc()
	var exitPatch int
	if node.Until {
		c.compileExpr(u, node.Cond)
		exitPatch = u.jump(opcodes.OpJmpIfTrue)
	} else {
		exitPatch = c.compileCondJumpFalse(u, node.Cond)
	}
	c.compileDiscarding(u, node.Body)
	for _, p := range lf.nextPatches {
		u.patchHere(p)
	}
	u.jumpBackTo(start)
	u.patchHere(exitPatch)
	u.op(opcodes.OpPushNil)
	after := u.pc()
	for _, p := range lf.breakPatches {
		u.patchTo(p, after)
	}
	u.popLoop()
}

// compileFor desugars `for x in e do body end` to `e.each do |x| ...
// end`, with the block writing its param back into the enclosing
// frame via set_dyn_local (spec.md §4.3).
func (c *Compiler) compileFor(u *unit, node *ast.For) {
	c.compileExpr(u, node.Iterable)
	if _, _, ok := u.scope.resolve(node.Var); !ok {
		u.scope.declare(node.Var)
	}
	bu := newUnit(c, bytecode.KindBlock, "<for>", u.scope, u.enclosingClasses)
	bu.file = u.file
	paramSlot := bu.scope.declare("%for_item")
	bu.w.Op(opcodes.OpGetLocal)
	bu.w.U32(paramSlot)
	if slot, depth, ok := bu.scope.resolve(node.Var); ok && depth > 0 {
		bu.w.Op(opcodes.OpSetDynLocal)
		bu.w.U32(slot)
		bu.w.U32(uint32(depth))
	} else {
		bu.op(opcodes.OpPop)
	}
	c.compileDiscarding(bu, node.Body)
	bu.patchEnds()
	bu.op(opcodes.OpReturn)
	fn := bu.finish(bytecode.Params{RequiredBefore: 1})
	desc := c.Methods.InternBytecode("<for>", fn)
	c.emitSend(u, node.Position, "each", 0, 0, desc.ID)
}

// compileCase lowers both subject-less and subject-bearing case forms
// (spec.md §4.3). The subject-bearing form always uses the triple_eq
// comparison chain; selecting opt_case/opt_case2 for literal-label
// tables is a dispatch-loop fast path the VM may apply independently,
// not something the compiler commits to here (see DESIGN.md).
func (c *Compiler) compileCase(u *unit, node *ast.Case) {
	if node.Subject == nil {
		c.compileCaseNoSubject(u, node)
		return
	}
	c.compileCaseWithSubject(u, node)
}

func (c *Compiler) compileCaseNoSubject(u *unit, node *ast.Case) {
	var endPatches []int
	for _, w := range node.Whens {
		var truePatches []int
		for _, cond := range w.Conds {
			c.compileExpr(u, cond)
			truePatches = append(truePatches, u.jump(opcodes.OpJmpIfTrue))
		}
		skip := u.jump(opcodes.OpJmp)
		bodyStart := u.pc()
		for _, p := range truePatches {
			u.patchTo(p, bodyStart)
		}
		c.compileBody(u, w.Body)
		endPatches = append(endPatches, u.jump(opcodes.OpJmp))
		u.patchHere(skip)
	}
	if node.Else != nil {
		c.compileBody(u, node.Else)
	} else {
		u.op(opcodes.OpPushNil)
	}
	for _, p := range endPatches {
		u.patchHere(p)
	}
}

func (c *Compiler) compileCaseWithSubject(u *unit, node *ast.Case) {
	c.compileExpr(u, node.Subject)
	var endPatches []int
	for _, w := range node.Whens {
		var truePatches []int
		for _, cond := range w.Conds {
			u.dup(1)
			c.compileExpr(u, cond)
			u.w.Op(opcodes.OpTopN)
			u.w.U16(2)
			u.op(opcodes.OpTripleEq)
			truePatches = append(truePatches, u.jump(opcodes.OpJmpIfTrue))
		}
		skip := u.jump(opcodes.OpJmp)
		bodyStart := u.pc()
		for _, p := range truePatches {
			u.patchTo(p, bodyStart)
		}
		u.op(opcodes.OpPop) // discard the subject before running the matched body
		c.compileBody(u, w.Body)
		endPatches = append(endPatches, u.jump(opcodes.OpJmp))
		u.patchHere(skip)
	}
	u.op(opcodes.OpPop) // no when matched: discard the subject
	if node.Else != nil {
		c.compileBody(u, node.Else)
	} else {
		u.op(opcodes.OpPushNil)
	}
	for _, p := range endPatches {
		u.patchHere(p)
	}
}

// compileBegin lowers begin/rescue/else/ensure (spec.md §4.3/§7). The
// ensure body is compiled inline after the normal/rescued fall-through
// path; non-local exits (return/break/uncaught-raise) through the
// protected region are spliced by the dispatch loop consulting the
// exception table's Ensure pc (see bytecode.ExceptionEntry, DESIGN.md).
func (c *Compiler) compileBegin(u *unit, node *ast.Begin) {
	bodyStart := u.pc()
	c.compileBody(u, node.Body)
	if node.Else != nil {
		u.op(opcodes.OpPop)
		c.compileBody(u, node.Else)
	}
	jend := u.jump(opcodes.OpJmp)
	bodyEnd := u.pc()

	var armEndPatches []int
	for _, arm := range node.Rescues {
		for _, ec := range arm.ExceptionClasses {
			c.compileExpr(u, ec)
		}
		u.w.Op(opcodes.OpRescue)
		u.w.U8(uint8(len(arm.ExceptionClasses)))
		jmiss := u.jump(opcodes.OpJmpIfFalse)
		if arm.VarName != "" {
			slot := u.scope.declare(arm.VarName)
			u.w.Op(opcodes.OpSetLocal)
			u.w.U32(slot)
		} else {
			u.op(opcodes.OpPop)
		}
		c.compileBody(u, arm.Body)
		armEndPatches = append(armEndPatches, u.jump(opcodes.OpJmp))
		u.patchHere(jmiss)
	}
	// No rescue arm matched: re-raise the still-pending error.
	u.op(opcodes.OpThrow)

	u.patchHere(jend)
	for _, p := range armEndPatches {
		u.patchHere(p)
	}
	protectedEnd := u.pc()

	handler := bodyEnd
	if len(node.Rescues) == 0 {
		handler = -1
	}
	ensurePC, ensureEnd := -1, -1
	if node.Ensure != nil {
		c.compileDiscarding(u, node.Ensure)
		skipSplice := u.jump(opcodes.OpJmp)
		ensurePC = u.pc()
		c.compileDiscarding(u, node.Ensure)
		ensureEnd = u.pc()
		u.patchHere(skipSplice)
	}
	if handler >= 0 || ensurePC >= 0 {
		u.exceptions = append(u.exceptions, bytecode.ExceptionEntry{
			BodyStart: bodyStart, BodyEnd: bodyEnd, ProtectedEnd: protectedEnd,
			Handler: handler, Ensure: ensurePC, EnsureEnd: ensureEnd,
		})
	}
}
