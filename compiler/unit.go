package compiler

import (
	"github.com/embervm/embervm/ast"
	"github.com/embervm/embervm/bytecode"
	"github.com/embervm/embervm/opcodes"
)

// unit is the compile-time state for one bytecode.Function: its
// growing instruction buffer, constant pool, source map, exception
// table, and local scope/loop bookkeeping. One unit exists per
// method/block/class-body/top-level being compiled; nested defs spawn
// a fresh unit linked only through the localScope parent chain (for
// dyn-local resolution) and enclosingClasses (for constant lookup).
type unit struct {
	c    *Compiler
	kind bytecode.FunctionKind
	name string
	file string

	w          opcodes.Writer
	consts     []bytecode.Constant
	sourceMap  []bytecode.SourceMapEntry
	exceptions []bytecode.ExceptionEntry

	scope *localScope
	loops []*loopFrame

	enclosingClasses []string
	isGenerator      bool

	// isLambda marks a KindBlock unit compiled from `->(){}`/`lambda{}`
	// rather than `{}`/`do...end`: a lambda's `return` exits only the
	// lambda itself (plain OpReturn), while a plain block's `return`
	// must exit the enclosing method (OpMethodReturn, spec.md §4.3).
	isLambda bool

	// endPatches collects jmp placeholders (from jumpToEnd, used by
	// `next` with no enclosing compiled loop) still needing a target;
	// patchEnds binds them all to this unit's end-of-body pc, right
	// before its trailer op is emitted.
	endPatches []int

	// sendCacheSlots/constCacheSlots count the send/get_const sites
	// emitted so far, handed out by nextSendCacheSlot/nextConstCacheSlot
	// as the instruction's cache-slot operand (spec.md §4.6: each call
	// site gets its own persistent inline-cache line, addressed by this
	// compile-time-assigned index rather than searched for at runtime).
	sendCacheSlots  uint32
	constCacheSlots uint32
}

func (u *unit) nextSendCacheSlot() uint32 {
	slot := u.sendCacheSlots
	u.sendCacheSlots++
	return slot
}

func (u *unit) nextConstCacheSlot() uint32 {
	slot := u.constCacheSlots
	u.constCacheSlots++
	return slot
}

func newUnit(c *Compiler, kind bytecode.FunctionKind, name string, parentScope *localScope, enclosing []string) *unit {
	return &unit{
		c:                c,
		kind:             kind,
		name:             name,
		scope:            newLocalScope(parentScope),
		enclosingClasses: enclosing,
	}
}

func (u *unit) pc() int { return len(u.w.Code) }

// op emits a bare opcode with no operands.
func (u *unit) op(o opcodes.Op) { u.w.Op(o) }

// jump emits op followed by a placeholder i32 displacement and returns
// the byte offset of that placeholder for later patching.
func (u *unit) jump(o opcodes.Op) int {
	u.w.Op(o)
	pos := u.pc()
	u.w.I32(0)
	return pos
}

// patchHere back-patches the displacement at pos to land at the
// current pc (spec.md §6: "Displacements are measured from the byte
// immediately after the displacement field").
func (u *unit) patchHere(pos int) { u.patchTo(pos, u.pc()) }

func (u *unit) patchTo(pos int, target int) {
	disp := int32(target - (pos + 4))
	u.w.PatchI32(pos, disp)
}

// jumpBackTo emits a jmp_back targeting a previously-seen pc (loop
// heads), which the dispatch loop treats as a GC safe-point.
func (u *unit) jumpBackTo(target int) {
	pos := u.jump(opcodes.OpJmpBack)
	u.patchTo(pos, target)
}

// mark appends a source-map entry; call only before call/raise-capable
// instructions, keeping the map small (spec.md §4.3 "Source map").
func (u *unit) mark(pos ast.Position) {
	u.sourceMap = append(u.sourceMap, bytecode.SourceMapEntry{PC: u.pc(), Line: pos.Line, File: pos.File})
}

func (u *unit) addConstant(kind bytecode.ConstantKind, str string) uint32 {
	u.consts = append(u.consts, bytecode.Constant{Kind: kind, Str: str})
	return uint32(len(u.consts) - 1)
}

func (u *unit) pushString(s string) {
	idx := u.addConstant(bytecode.ConstString, s)
	u.w.Op(opcodes.OpPushConstant)
	u.w.U32(idx)
}

// dup duplicates the top n stack values (OpDupN n=1 is a plain top
// duplicate, used after assignment RHS evaluation so the assignment
// expression's own value survives the store instruction).
func (u *unit) dup(n uint16) {
	u.w.Op(opcodes.OpDupN)
	u.w.U16(n)
}

func (u *unit) pushLoop() *loopFrame {
	lf := &loopFrame{}
	u.loops = append(u.loops, lf)
	return lf
}

func (u *unit) popLoop() { u.loops = u.loops[:len(u.loops)-1] }

// jumpToEnd emits a jmp placeholder targeting this unit's end-of-body
// pc, recorded for patchEnds to bind once that pc is known (used by
// `next` outside any directly-compiled enclosing loop: spec.md's block
// semantics end the block's own execution there rather than falling
// through to whatever statements follow in the block body).
func (u *unit) jumpToEnd() int {
	pos := u.jump(opcodes.OpJmp)
	u.endPatches = append(u.endPatches, pos)
	return pos
}

// patchEnds binds every jumpToEnd placeholder to the current pc. Call
// immediately before emitting a unit's trailer op, once the body is
// fully compiled and no further code will be appended before it.
func (u *unit) patchEnds() {
	for _, p := range u.endPatches {
		u.patchHere(p)
	}
	u.endPatches = nil
}

func (u *unit) currentLoop() *loopFrame {
	if len(u.loops) == 0 {
		return nil
	}
	return u.loops[len(u.loops)-1]
}

// finish assembles the accumulated state into a bytecode.Function.
func (u *unit) finish(params bytecode.Params) *bytecode.Function {
	locals := make([]bytecode.LocalVar, len(u.scope.order))
	for i, name := range u.scope.order {
		locals[i] = bytecode.LocalVar{NameID: u.c.Names.Intern(name), Slot: u.scope.names[name]}
	}
	return &bytecode.Function{
		Name:             u.name,
		Kind:             u.kind,
		Code:             u.w.Code,
		Constants:        u.consts,
		SourceMap:        u.sourceMap,
		Exceptions:       u.exceptions,
		Params:           params,
		Locals:           locals,
		MaxLocalSlot:     u.scope.nextSlot,
		EnclosingClasses: u.enclosingClasses,
		IsGenerator:      u.isGenerator,
		SendCacheSlots:   u.sendCacheSlots,
		ConstCacheSlots:  u.constCacheSlots,
	}
}
