package compiler

import (
	"github.com/embervm/embervm/ast"
	"github.com/embervm/embervm/opcodes"
)

// emitSend writes a call instruction assuming the caller has already
// pushed the operand-stack layout spec.md §4.3/§6 describes:
//
//	receiver, [block value if HasBlockPass], arg_1..arg_argc,
//	[kwhash if HasKeywords]
//
// where a splat argument is one OpSplat-wrapped slot among the args,
// counted in argc.
//
// blockMethodID is nonzero only for a literal block/lambda (`create_proc`
// captures the id; the VM builds the Proc from the current frame).
// emitSend writes opt_send when none of the keyword, splat and
// block-pass flags is set, and the full `send` encoding otherwise; it
// never emits opt_send_n.
func (c *Compiler) emitSend(u *unit, pos ast.Position, name string, argc int, flags uint8, blockMethodID uint32) {
	u.mark(pos)
	nameID := c.Names.Intern(name)
	if flags&(opcodes.SendFlagHasKeywords|opcodes.SendFlagHasSplat|opcodes.SendFlagHasBlockPass) == 0 {
		u.w.Op(opcodes.OpOptSend)
		u.w.U32(nameID)
		u.w.U16(uint16(argc))
		u.w.U32(blockMethodID)
		u.w.U32(u.nextSendCacheSlot())
		return
	}
	u.w.Op(opcodes.OpSend)
	u.w.U32(nameID)
	u.w.U16(uint16(argc))
	u.w.U8(0) // kw_rest count, reserved
	u.w.U8(flags)
	u.w.U32(blockMethodID)
	u.w.U32(u.nextSendCacheSlot())
}

// compileMethodCall lowers a.b(args, kw: v, *splat, &block) { |x| ... }.
func (c *Compiler) compileMethodCall(u *unit, node *ast.MethodCall) {
	if node.Receiver != nil {
		c.compileExpr(u, node.Receiver)
	} else {
		u.op(opcodes.OpPushSelf)
	}

	var flags uint8
	if node.SafeNav {
		flags |= opcodes.SendFlagSafeNav
	}

	if node.BlockPass != nil {
		c.compileExpr(u, node.BlockPass)
		flags |= opcodes.SendFlagHasBlockPass
	}

	// argc counts every pushed positional slot, splats included: a
	// splat contributes one slot holding an OpSplat-wrapped array that
	// the VM's argument assembly flattens at call time. This keeps
	// argc a reliable "how many positional slots did I push" count
	// regardless of how many of them are splats, and regardless of
	// where in the argument list they appear.
	hasSplat := false
	argc := 0
	for _, a := range node.Args {
		if sp, ok := a.(*ast.Splat); ok {
			c.compileExpr(u, sp.Value)
			u.op(opcodes.OpSplat)
			hasSplat = true
			argc++
			continue
		}
		c.compileExpr(u, a)
		argc++
	}
	if hasSplat {
		flags |= opcodes.SendFlagHasSplat
	}

	if len(node.KwArgs) > 0 || node.KwSplat != nil {
		for _, kw := range node.KwArgs {
			u.w.Op(opcodes.OpPushSymbol)
			u.w.U32(c.Names.Intern(kw.Name))
			c.compileExpr(u, kw.Value)
		}
		n := len(node.KwArgs)
		if node.KwSplat != nil {
			c.compileExpr(u, node.KwSplat)
			u.op(opcodes.OpSplat)
		}
		u.w.Op(opcodes.OpCreateHash)
		u.w.U32(uint32(n))
		flags |= opcodes.SendFlagHasKeywords
	}

	var blockMethodID uint32
	if node.Block != nil {
		blockMethodID = c.compileBlockBody(u, node.Block)
	}

	c.emitSend(u, node.Position, node.Name, argc, flags, blockMethodID)
}

// compileSuper lowers `super`/`super(args)` (spec.md §4.4 "super").
func (c *Compiler) compileSuper(u *unit, node *ast.Super) {
	u.op(opcodes.OpPushSelf)
	argc := 0
	noArgsFlag := uint8(0)
	if node.ExplicitArgs {
		for _, a := range node.Args {
			c.compileExpr(u, a)
			argc++
		}
	} else {
		noArgsFlag = 1
	}
	var blockMethodID uint32
	if node.Block != nil {
		blockMethodID = c.compileBlockBody(u, node.Block)
	}
	u.mark(node.Position)
	u.w.Op(opcodes.OpSuper)
	u.w.U16(uint16(argc))
	u.w.U32(blockMethodID)
	u.w.U8(noArgsFlag)
}
