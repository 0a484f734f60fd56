package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embervm/embervm/bytecode"
	"github.com/embervm/embervm/methods"
	"github.com/embervm/embervm/opcodes"
	"github.com/embervm/embervm/symtab"
	"github.com/embervm/embervm/values"
)

// buildCaseFn assembles `push_immediate_i64 subject; opt_case 0, default;
// return` by hand, the way the compiler would if it ever chose the
// opt_case lowering strategy spec.md §4.3 names but currently doesn't
// emit (see DESIGN.md): three branches land on pushing a distinct
// string constant, the default lands on a fourth.
func buildCaseFn(t *testing.T, subject int64) *bytecode.Function {
	t.Helper()
	w := opcodes.Writer{}
	w.Op(opcodes.OpPushImmediateI64)
	w.I64(subject)
	w.Op(opcodes.OpOptCase)
	w.U32(0)
	defaultDispPos := len(w.Code)
	w.I32(0) // patched below

	// Three labeled branches, each `push_constant i; return`, laid out
	// back to back; record each branch's start offset (relative to the
	// byte right after the opt_case instruction's own operands, which
	// is where w.Code currently ends) to compute its displacement.
	baseAfterOperands := len(w.Code)
	var branchStarts []int
	for i, s := range []string{"one", "two", "three"} {
		branchStarts = append(branchStarts, len(w.Code)-baseAfterOperands)
		w.Op(opcodes.OpPushConstant)
		w.U32(uint32(i))
		w.Op(opcodes.OpReturn)
	}
	defaultStart := len(w.Code) - baseAfterOperands
	w.Op(opcodes.OpPushConstant)
	w.U32(3)
	w.Op(opcodes.OpReturn)

	w.PatchI32(defaultDispPos, int32(defaultStart))

	fn := &bytecode.Function{
		Code: w.Code,
		Constants: []bytecode.Constant{
			{Kind: bytecode.ConstString, Str: "one"},
			{Kind: bytecode.ConstString, Str: "two"},
			{Kind: bytecode.ConstString, Str: "three"},
			{Kind: bytecode.ConstString, Str: "default"},
		},
		CaseTables: []bytecode.CaseTable{{
			Entries: []bytecode.CaseEntry{
				{Kind: bytecode.CaseKeyInt, Int: 1, Disp: int32(branchStarts[0])},
				{Kind: bytecode.CaseKeyInt, Int: 2, Disp: int32(branchStarts[1])},
				{Kind: bytecode.CaseKeyInt, Int: 3, Disp: int32(branchStarts[2])},
			},
		}},
	}
	return fn
}

func TestOptCaseDispatchesToMatchingBranch(t *testing.T) {
	v := New(methods.NewRepository(), symtab.New())

	res, rerr := v.Run(NewFrame(buildCaseFn(t, 2), values.Nil(), nil, values.Nil()))
	require.Nil(t, rerr)
	requireString(t, v, res, "two")
}

func TestOptCaseFallsThroughToDefault(t *testing.T) {
	v := New(methods.NewRepository(), symtab.New())

	res, rerr := v.Run(NewFrame(buildCaseFn(t, 99), values.Nil(), nil, values.Nil()))
	require.Nil(t, rerr)
	requireString(t, v, res, "default")
}

// buildCase2Fn assembles the dense-jump-table variant: subject values
// Min..Min+len(Disps)-1 map directly into Disps by index.
func buildCase2Fn(t *testing.T, subject int64) *bytecode.Function {
	t.Helper()
	w := opcodes.Writer{}
	w.Op(opcodes.OpPushImmediateI64)
	w.I64(subject)
	w.Op(opcodes.OpOptCase2)
	w.U32(0)
	defaultDispPos := len(w.Code)
	w.I32(0)

	baseAfterOperands := len(w.Code)
	var branchStarts []int32
	for i := 0; i < 3; i++ {
		branchStarts = append(branchStarts, int32(len(w.Code)-baseAfterOperands))
		w.Op(opcodes.OpPushImmediateI64)
		w.I64(int64(100 + i))
		w.Op(opcodes.OpReturn)
	}
	defaultStart := int32(len(w.Code) - baseAfterOperands)
	w.Op(opcodes.OpPushImmediateI64)
	w.I64(-1)
	w.Op(opcodes.OpReturn)
	w.PatchI32(defaultDispPos, defaultStart)

	fn := &bytecode.Function{
		Code: w.Code,
		CaseTables2: []bytecode.CaseTable2{{
			Min:   10,
			Disps: []int32{branchStarts[0], branchStarts[1], branchStarts[2]},
		}},
	}
	return fn
}

func TestOptCase2DenseTableHit(t *testing.T) {
	v := New(methods.NewRepository(), symtab.New())
	res, rerr := v.Run(NewFrame(buildCase2Fn(t, 11), values.Nil(), nil, values.Nil()))
	require.Nil(t, rerr)
	require.Equal(t, values.Int(101), res)
}

func TestOptCase2DenseTableMiss(t *testing.T) {
	v := New(methods.NewRepository(), symtab.New())
	res, rerr := v.Run(NewFrame(buildCase2Fn(t, 999), values.Nil(), nil, values.Nil()))
	require.Nil(t, rerr)
	require.Equal(t, values.Int(-1), res)
}
