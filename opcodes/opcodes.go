// Package opcodes defines EmberVM's instruction set: one opcode byte
// followed by zero or more little-endian inline operands (spec.md §6).
// The const-block-with-trailing-comment layout mirrors the teacher's
// opcodes/opcodes.go, retargeted from Zend-style opcodes onto the
// stack-machine instruction families of spec.md §4.3.
package opcodes

// Op is a single bytecode opcode byte.
type Op byte

// Stack family: push/pop/rotate the operand stack.
const (
	OpPushNil Op = iota
	OpPushTrue
	OpPushFalse
	OpPushSelf
	OpPushImmediateI64 // i64 operand
	OpPushImmediateF64 // f64 operand
	OpPushSymbol       // u32 symbol id
	OpPop
	OpDupN   // u16 n: duplicate the top n values
	OpTopN   // u16 n: rotate the nth-from-top value to the top
	OpSinkN  // u16 n: sink the top value to depth n
	OpTakeN  // u16 n: spread an array of length n onto the stack
	// OpPushConstant pushes Function.Constants[index] (strings,
	// bignum decimals, regexp sources) — the representative family
	// list omits it, but a string literal has to reach the stack
	// somehow, so it belongs here alongside the other immediate pushes.
	OpPushConstant // u32 constant pool index
)

// Arithmetic family. Each has an `_I` immediate-integer variant that
// folds a small constant into the instruction, avoiding a stack push
// for the common case of `x + 1`-shaped code (spec.md §4.3).
const (
	OpAdd Op = iota + 32
	OpSub
	OpMul
	OpDiv
	OpRem
	OpPow
	OpNeg
	OpAddI // i32 operand
	OpSubI
	OpMulI
	OpDivI
	OpRemI
	OpPowI
)

// Bitwise family, with immediate variants.
const (
	OpBitAnd Op = iota + 64
	OpBitOr
	OpBitXor
	OpBitNot
	OpShr
	OpShl
	OpBitAndI
	OpBitOrI
	OpBitXorI
	OpShrI
	OpShlI
)

// Comparison family, plus fused compare-and-jump variants that skip
// materializing a boolean (spec.md §4.3 "Fused compare-and-jump").
const (
	OpEq Op = iota + 96
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpCmp3Way  // <=>
	OpTripleEq // === (case-equality)
	OpEqI
	OpNeI
	OpLtI
	OpLeI
	OpGtI
	OpGeI
	OpJmpIfFalseLt // i32 disp: pop two, jump if !(a<b)
	OpJmpIfFalseLe
	OpJmpIfFalseGt
	OpJmpIfFalseGe
	OpJmpIfFalseEq
	OpJmpIfFalseNe
)

// Locals: get/set/check a frame-local slot, with a "dyn" variant that
// walks `outer` links by a fixed depth for closure captured locals
// (spec.md §4.3's get_dyn_local etc.).
const (
	OpGetLocal Op = iota + 128 // u32 slot
	OpSetLocal                // u32 slot
	OpCheckLocal              // u32 slot -> pushes bool; true iff NOT uninitialized
	OpGetDynLocal             // u32 slot, u32 outer depth
	OpSetDynLocal
	OpCheckDynLocal
)

// Namespaced storage: constants, globals, instance vars, class vars.
const (
	OpGetConst Op = iota + 160 // u32 name id, u32 cache slot
	OpSetConst                 // u32 name id
	OpCheckConst
	OpGetGlobal // u32 name id
	OpSetGlobal
	OpCheckGlobal
	OpGetIvar // u32 name id
	OpSetIvar
	OpCheckIvar
	OpGetCvar // u32 name id
	OpSetCvar
	OpCheckCvar
)

// Control flow.
const (
	OpJmp Op = iota + 192 // i32 disp
	OpJmpBack             // i32 disp; includes a GC safe-point
	OpJmpIfTrue           // i32 disp
	OpJmpIfFalse          // i32 disp
	OpOptCase             // u32 table id, i32 default disp: hash-based dispatch
	OpOptCase2            // u32 table id, i32 default disp: dense small-int jump table
	OpRescue              // u8 n: test top against n exception classes on the stack
	OpThrow               // raise top-of-stack as an error
	OpReturn
	OpBreak
	OpMethodReturn
)

// Calls.
const (
	OpSend Op = iota + 224 // u32 name, u16 argc, u8 kwRest, u8 flags, u32 blockMethodID, u32 cacheSlot
	OpOptSend              // u32 name, u16 argc, u32 blockMethodID, u32 cacheSlot
	OpOptSendN             // like OpOptSend, discards the return value
	OpYield                // u16 argc
	OpSuper                // u16 argc, u32 blockMethodID, u8 noArgsFlag
)

// Definition.
const (
	OpDefMethod Op = iota + 248 // u32 name, u32 method id
	OpDefSMethod                // u32 name, u32 method id (singleton method)
	OpDefClass                  // u8 moduleFlag, u32 name, u32 method id (body)
	OpDefSClass                 // u32 method id
)

// Other, composite operations.
const (
	OpToS Op = iota + 16
	OpConcatString // u32 n
	OpCreateRange  // u8 exclusive
	OpCreateArray  // u32 n
	OpCreateHash   // u32 n
	OpCreateRegexp
	OpCreateProc // u32 method id
	OpSplat
)

// SendFlags bit meanings for OpSend's u8 flags operand.
const (
	SendFlagHasKeywords uint8 = 1 << iota
	SendFlagHasSplat
	SendFlagHasBlockPass
	SendFlagSafeNav
)

// names gives every opcode a disassembly mnemonic. Kept as a map
// rather than a dense array since the families above deliberately
// leave byte-value gaps for future growth, mirroring the teacher's
// opcodes/opcodes.go numeric banding.
var names = map[Op]string{
	OpPushNil: "push_nil", OpPushTrue: "push_true", OpPushFalse: "push_false",
	OpPushSelf: "push_self", OpPushImmediateI64: "push_immediate_i64",
	OpPushImmediateF64: "push_immediate_f64", OpPushSymbol: "push_symbol",
	OpPop: "pop", OpDupN: "dup_n", OpTopN: "topn_n", OpSinkN: "sinkn_n", OpTakeN: "take_n",
	OpPushConstant: "push_constant",

	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpRem: "rem", OpPow: "pow", OpNeg: "neg",
	OpAddI: "add_i", OpSubI: "sub_i", OpMulI: "mul_i", OpDivI: "div_i", OpRemI: "rem_i", OpPowI: "pow_i",

	OpBitAnd: "and", OpBitOr: "or", OpBitXor: "xor", OpBitNot: "not", OpShr: "shr", OpShl: "shl",
	OpBitAndI: "and_i", OpBitOrI: "or_i", OpBitXorI: "xor_i", OpShrI: "shr_i", OpShlI: "shl_i",

	OpEq: "eq", OpNe: "ne", OpLt: "lt", OpLe: "le", OpGt: "gt", OpGe: "ge",
	OpCmp3Way: "cmp3way", OpTripleEq: "triple_eq",
	OpEqI: "eq_i", OpNeI: "ne_i", OpLtI: "lt_i", OpLeI: "le_i", OpGtI: "gt_i", OpGeI: "ge_i",
	OpJmpIfFalseLt: "jmp_if_false_lt", OpJmpIfFalseLe: "jmp_if_false_le",
	OpJmpIfFalseGt: "jmp_if_false_gt", OpJmpIfFalseGe: "jmp_if_false_ge",
	OpJmpIfFalseEq: "jmp_if_false_eq", OpJmpIfFalseNe: "jmp_if_false_ne",

	OpGetLocal: "get_local", OpSetLocal: "set_local", OpCheckLocal: "check_local",
	OpGetDynLocal: "get_dyn_local", OpSetDynLocal: "set_dyn_local", OpCheckDynLocal: "check_dyn_local",

	OpGetConst: "get_const", OpSetConst: "set_const", OpCheckConst: "check_const",
	OpGetGlobal: "get_global", OpSetGlobal: "set_global", OpCheckGlobal: "check_global",
	OpGetIvar: "get_ivar", OpSetIvar: "set_ivar", OpCheckIvar: "check_ivar",
	OpGetCvar: "get_cvar", OpSetCvar: "set_cvar", OpCheckCvar: "check_cvar",

	OpJmp: "jmp", OpJmpBack: "jmp_back", OpJmpIfTrue: "jmp_if_true", OpJmpIfFalse: "jmp_if_false",
	OpOptCase: "opt_case", OpOptCase2: "opt_case2", OpRescue: "rescue", OpThrow: "throw",
	OpReturn: "return", OpBreak: "break", OpMethodReturn: "method_return",

	OpSend: "send", OpOptSend: "opt_send", OpOptSendN: "opt_send_n", OpYield: "yield", OpSuper: "super",

	OpDefMethod: "def_method", OpDefSMethod: "def_smethod", OpDefClass: "def_class", OpDefSClass: "def_sclass",

	OpToS: "to_s", OpConcatString: "concat_string", OpCreateRange: "create_range",
	OpCreateArray: "create_array", OpCreateHash: "create_hash", OpCreateRegexp: "create_regexp",
	OpCreateProc: "create_proc", OpSplat: "splat",
}

func (o Op) String() string {
	if n, ok := names[o]; ok {
		return n
	}
	return "unknown_opcode"
}
