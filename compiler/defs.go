package compiler

import (
	"github.com/embervm/embervm/ast"
	"github.com/embervm/embervm/bytecode"
	"github.com/embervm/embervm/opcodes"
)

// declareParams declares a slot for every parameter (in binding order) so
// default-expression prologues and the body can reference earlier
// parameters, then returns the assembled Params descriptor plus the
// list of (slot, default) pairs still needing a prologue emitted.
type pendingDefault struct {
	slot     uint32
	expr     ast.Node
	isKeyword bool
	nameID   uint32
}

func (c *Compiler) declareParams(u *unit, params []ast.Param) (bytecode.Params, []pendingDefault) {
	var p bytecode.Params
	var pending []pendingDefault
	seenOptionalOrSplat := false
	for _, param := range params {
		switch param.Kind {
		case ast.ParamRequired:
			slot := u.scope.declare(param.Name)
			if seenOptionalOrSplat {
				p.RequiredAfter++
				_ = slot
			} else {
				p.RequiredBefore++
			}
		case ast.ParamOptional:
			seenOptionalOrSplat = true
			slot := u.scope.declare(param.Name)
			p.Optional = append(p.Optional, bytecode.OptionalParam{Slot: slot})
			pending = append(pending, pendingDefault{slot: slot, expr: param.Default})
		case ast.ParamSplat:
			seenOptionalOrSplat = true
			if param.Name == "" {
				p.Splat = bytecode.SplatAnonymous
			} else {
				p.Splat = bytecode.SplatNamed
				p.SplatSlot = u.scope.declare(param.Name)
			}
		case ast.ParamKeyword:
			slot := u.scope.declare(param.Name)
			kp := bytecode.KeywordParam{NameID: c.Names.Intern(param.Name), Slot: slot}
			if param.Default != nil {
				kp.HasDefault = true
				pending = append(pending, pendingDefault{slot: slot, expr: param.Default, isKeyword: true, nameID: kp.NameID})
			}
			p.Keywords = append(p.Keywords, kp)
		case ast.ParamKeywordSplat:
			p.KeywordSplat = true
			p.KeywordSplatSlot = u.scope.declare(param.Name)
		case ast.ParamBlock:
			p.HasBlockParam = true
			p.BlockParamSlot = u.scope.declare(param.Name)
		}
	}
	return p, pending
}

// emitDefaultPrologues writes spec.md §4.3's "check_local slot;
// jmp_if_false past_default; <default>; set_local slot; past_default:"
// sequence for each optional/keyword parameter with a default, and
// records each one's bytecode start position in the Params descriptor.
func (c *Compiler) emitDefaultPrologues(u *unit, p *bytecode.Params, pending []pendingDefault) {
	for _, pd := range pending {
		start := u.pc()
		u.w.Op(opcodes.OpCheckLocal)
		u.w.U32(pd.slot)
		jf := u.jump(opcodes.OpJmpIfFalse)
		c.compileExpr(u, pd.expr)
		u.w.Op(opcodes.OpSetLocal)
		u.w.U32(pd.slot)
		u.patchHere(jf)
		for i := range p.Optional {
			if p.Optional[i].Slot == pd.slot {
				p.Optional[i].DefaultBytecode = start
			}
		}
		for i := range p.Keywords {
			if p.Keywords[i].Slot == pd.slot {
				p.Keywords[i].DefaultBytecode = start
			}
		}
	}
}

// compileMethodDef lowers `def name(params) ... end`, interning the
// body as its own bytecode.Function and emitting def_method/def_smethod
// with the resulting method id (spec.md §4.3 "Definition").
func (c *Compiler) compileMethodDef(u *unit, node *ast.MethodDef) {
	mu := newUnit(c, bytecode.KindMethod, node.Name, nil, u.enclosingClasses)
	mu.file = u.file
	params, pending := c.declareParams(mu, node.Params)
	c.emitDefaultPrologues(mu, &params, pending)
	c.compileBody(mu, node.Body)
	mu.patchEnds()
	mu.op(opcodes.OpMethodReturn)
	fn := mu.finish(params)

	desc := c.Methods.InternBytecode(node.Name, fn)
	if node.Singleton {
		u.w.Op(opcodes.OpDefSMethod)
	} else {
		u.w.Op(opcodes.OpDefMethod)
	}
	u.w.U32(c.Names.Intern(node.Name))
	u.w.U32(desc.ID)
	u.pushString(node.Name) // method defs evaluate to the defined method's name symbol-ish value
}

// compileClassDef lowers `class Name < Super ... end` / `module Name
// ... end`: the class body compiles to its own bytecode function
// (spec.md "def_class ... body is a method id"), executed once by the
// VM when it creates/reopens the class.
func (c *Compiler) compileClassDef(u *unit, node *ast.ClassDef) {
	if node.SuperClass != nil {
		c.compileExpr(u, node.SuperClass)
	} else {
		u.op(opcodes.OpPushNil)
	}
	nesting := append(append([]string{}, u.enclosingClasses...), node.Name)
	cu := newUnit(c, bytecode.KindClassBody, node.Name, nil, nesting)
	cu.file = u.file
	c.compileBody(cu, node.Body)
	cu.patchEnds()
	cu.op(opcodes.OpMethodReturn)
	fn := cu.finish(bytecode.Params{})
	desc := c.Methods.InternBytecode(node.Name+"#<class_body>", fn)

	u.w.Op(opcodes.OpDefClass)
	u.w.U8(boolByte(node.IsModule))
	u.w.U32(c.Names.Intern(node.Name))
	u.w.U32(desc.ID)
}

func (c *Compiler) compileSingletonClassDef(u *unit, node *ast.SingletonClassDef) {
	c.compileExpr(u, node.Target)
	su := newUnit(c, bytecode.KindClassBody, "<singleton_class>", nil, u.enclosingClasses)
	su.file = u.file
	c.compileBody(su, node.Body)
	su.patchEnds()
	su.op(opcodes.OpMethodReturn)
	fn := su.finish(bytecode.Params{})
	desc := c.Methods.InternBytecode("<singleton_class>", fn)
	u.w.Op(opcodes.OpDefSClass)
	u.w.U32(desc.ID)
}

// compileBlockBody compiles a block/lambda literal's body as its own
// bytecode function scoped under u (so get/set_dyn_local can walk back
// to u's locals) and interns it, returning the method id to embed
// directly in a send/super instruction's block_method_id operand.
func (c *Compiler) compileBlockBody(u *unit, blk *ast.BlockLiteral) uint32 {
	bu := newUnit(c, bytecode.KindBlock, "<block>", u.scope, u.enclosingClasses)
	bu.file = u.file
	bu.loops = nil
	bu.isLambda = blk.Lambda
	params, pending := c.declareParams(bu, blk.Params)
	c.emitDefaultPrologues(bu, &params, pending)
	c.compileBody(bu, blk.Body)
	bu.patchEnds()
	bu.op(opcodes.OpReturn)
	fn := bu.finish(params)
	desc := c.Methods.InternBytecode("<block>", fn)
	return desc.ID
}

// compileLambdaLiteral handles a block/lambda literal used as a bare
// expression (`->(x){x}` or `lambda{}` not attached to a call site):
// it needs an actual Proc value on the stack, produced by create_proc.
func (c *Compiler) compileLambdaLiteral(u *unit, node *ast.BlockLiteral) {
	id := c.compileBlockBody(u, node)
	u.w.Op(opcodes.OpCreateProc)
	u.w.U32(id)
}
