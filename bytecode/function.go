// Package bytecode holds the compiled artifact a bytecode function
// compiles down to: the instruction stream plus its companion source
// map, exception table, parameter descriptor, and local-variable
// table (spec.md §3.4, §3.6, §3.7). Grounded on the teacher's
// registry.Function (instruction/constant slice fields) and
// vm/instruction_factory.go, retargeted from a flat PHP op-array onto
// the closure-capturing, exception-table-bearing function spec.md
// describes.
package bytecode

import (
	"math"
	"sort"
)

// FunctionKind classifies the lexical context a bytecode Function was
// compiled for (spec.md §3.4).
type FunctionKind byte

const (
	KindTopLevel FunctionKind = iota
	KindMethod
	KindBlock
	KindClassBody
	KindEval
)

// SplatKind enumerates how a function accepts trailing positional args
// (spec.md §3.6).
type SplatKind byte

const (
	SplatNone SplatKind = iota
	SplatNamed
	SplatAnonymous
)

// KeywordParam is one keyword parameter slot with an optional default
// initializer, encoded the same way an optional positional parameter
// is (a slot plus a bytecode position to jump to when unsupplied).
type KeywordParam struct {
	NameID          uint32
	Slot            uint32
	HasDefault      bool
	DefaultBytecode int // pc of the default-expression prologue, or -1
}

// OptionalParam is one optional positional parameter: a slot plus the
// bytecode position its default-expression prologue starts at
// (spec.md §4.3 "Default-argument prologue").
type OptionalParam struct {
	Slot            uint32
	DefaultBytecode int
}

// Params is the parameter descriptor of spec.md §3.6.
type Params struct {
	RequiredBefore int
	Optional       []OptionalParam
	Splat          SplatKind
	SplatSlot      uint32
	RequiredAfter  int
	Keywords       []KeywordParam
	KeywordSplat   bool
	KeywordSplatSlot uint32
	HasBlockParam  bool
	BlockParamSlot uint32
	Delegate       bool // forwards all of its own arguments to `super`
}

// Arity returns the minimum and maximum positional argument counts
// this descriptor accepts; max is -1 when Splat != SplatNone (spec.md
// §4.5 step 1).
func (p *Params) Arity() (min int, max int) {
	min = p.RequiredBefore + p.RequiredAfter
	if p.Splat != SplatNone {
		return min, -1
	}
	return min, min + len(p.Optional)
}

// SourceMapEntry maps one instruction's byte offset to a source
// location. Only call/raise-capable instructions get an entry (spec.md
// §4.3 "Source map and listing"), keeping the map small.
type SourceMapEntry struct {
	PC   int
	Line int
	File string
}

// ExceptionEntry is one exception-table row (spec.md §3.7). Handler is
// -1 when the region has no rescue arm (ensure-only begin block).
// Ensure/EnsureEnd bound a standalone copy of the ensure body's code,
// used when the dispatch loop unwinds a return/break/uncaught-raise
// through [BodyStart, ProtectedEnd) and must still run it; -1 when
// absent. BodyEnd is the narrower range HandlerFor matches a raise
// against (the begin body alone); ProtectedEnd additionally covers the
// rescue arms' own test chain and bodies, so an error escaping a
// rescue arm still splices this entry's ensure without being re-caught
// by this entry's own Handler.
type ExceptionEntry struct {
	BodyStart    int
	BodyEnd      int
	ProtectedEnd int
	Handler      int
	Ensure       int
	EnsureEnd    int
}

// LocalVar names one local-variable slot, used for backtraces and for
// `binding`'s variable introspection.
type LocalVar struct {
	NameID uint32
	Slot   uint32
}

// Function is a compiled bytecode function: instructions, a source
// map, an exception table, a parameter descriptor, and a local
// variable table, plus the lexical bookkeeping closures need.
type Function struct {
	Name         string
	Kind         FunctionKind
	Code         []byte
	Constants    []Constant
	SourceMap    []SourceMapEntry
	Exceptions   []ExceptionEntry
	Params       Params
	Locals       []LocalVar
	MaxLocalSlot uint32
	// EnclosingClasses records the lexically enclosing class chain at
	// compile time (outermost first, innermost last), used for constant lookup
	// (spec.md §4.2 "walks the class_defined chain").
	EnclosingClasses []string
	// IsGenerator is copied from the compiler unit's isGenerator flag;
	// the compiler never sets that flag and the VM does not read this
	// field (fibers are created by Fiber.new/Enumerator.new instead).
	IsGenerator bool
	// SendCacheSlots/ConstCacheSlots count the send/get_const call
	// sites compiled into Code, one slot per site (spec.md §4.6); the
	// VM sizes this function's persistent inline-cache arrays from
	// these counts the first time it runs.
	SendCacheSlots  uint32
	ConstCacheSlots uint32
	// CaseTables/CaseTables2 hold the opt_case/opt_case2 dispatch
	// tables a table_id operand indexes into (spec.md §4.3, §6).
	CaseTables  []CaseTable
	CaseTables2 []CaseTable2
}

// ConstantKind tags the immediate literal pool entries a compiled
// function embeds (push_constant operands reference these by index
// when the literal doesn't fit inline, e.g. a large string or symbol
// table row).
type ConstantKind byte

const (
	ConstString ConstantKind = iota
	ConstSymbolName
	ConstBigIntDecimal
	ConstRegexpSource
)

type Constant struct {
	Kind ConstantKind
	Str  string
}

// CaseKeyKind discriminates a literal key in an opt_case/opt_case2
// dispatch table (spec.md §4.3 "Case with a subject").
type CaseKeyKind byte

const (
	CaseKeyInt CaseKeyKind = iota
	CaseKeyString
	CaseKeySymbol
	CaseKeyNil
	CaseKeyTrue
	CaseKeyFalse
)

// CaseEntry is one `label => disp` row of an opt_case hash-dispatch
// table; Disp follows the same "measured from the byte immediately
// after the operand" convention as jmp (spec.md §6).
type CaseEntry struct {
	Kind CaseKeyKind
	Int  int64
	Str  string
	Disp int32
}

// CaseTable backs opt_case: every branch label is a primitive literal,
// tested by hash/equality rather than a chain of triple_eq compares.
type CaseTable struct {
	Entries []CaseEntry
}

// CaseTable2 backs opt_case2: every branch label is a small integer
// dense enough to index directly. Disps[i] holds the displacement for
// subject value Min+i; an entry of exactly DenseAbsent means "no
// branch for this value, fall through to the instruction's default".
type CaseTable2 struct {
	Min   int64
	Disps []int32
}

// DenseAbsent marks a CaseTable2 slot with no branch.
const DenseAbsent int32 = math.MinInt32

// HandlerFor returns the innermost exception-table entry whose body
// range contains pc, or ok=false if none matches (spec.md §3.7).
func (f *Function) HandlerFor(pc int) (ExceptionEntry, bool) {
	best := -1
	for i, e := range f.Exceptions {
		if e.BodyStart <= pc && pc < e.BodyEnd {
			if best == -1 || (e.BodyEnd-e.BodyStart) < (f.Exceptions[best].BodyEnd-f.Exceptions[best].BodyStart) {
				best = i
			}
		}
	}
	if best == -1 {
		return ExceptionEntry{}, false
	}
	return f.Exceptions[best], true
}

// EnsureEntriesFor returns every exception-table entry, innermost
// first, whose ensure-protected range contains pc and that carries a
// spliced ensure body (spec.md §7 "its ensure block ... is spliced
// into the unwinding path").
func (f *Function) EnsureEntriesFor(pc int) []ExceptionEntry {
	var out []ExceptionEntry
	for _, e := range f.Exceptions {
		if e.Ensure >= 0 && e.BodyStart <= pc && pc < e.ProtectedEnd {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return (out[i].ProtectedEnd - out[i].BodyStart) < (out[j].ProtectedEnd - out[j].BodyStart)
	})
	return out
}

// LineFor finds the most recent source-map entry at or before pc,
// used for backtrace formatting (spec.md §4.3).
func (f *Function) LineFor(pc int) (SourceMapEntry, bool) {
	best := -1
	for i, e := range f.SourceMap {
		if e.PC <= pc && (best == -1 || e.PC > f.SourceMap[best].PC) {
			best = i
		}
	}
	if best == -1 {
		return SourceMapEntry{}, false
	}
	return f.SourceMap[best], true
}
