package opcodes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	var w Writer
	w.Op(OpPushImmediateI64)
	w.I64(-12345)
	w.Op(OpJmp)
	jmpOperand := len(w.Code)
	w.I32(0)
	w.Op(OpAddI)
	w.I32(7)

	r := NewReader(w.Code, 0)
	require.Equal(t, OpPushImmediateI64, r.OpAt(r.PC))
	r.PC++
	require.Equal(t, int64(-12345), r.I64())

	require.Equal(t, OpJmp, r.OpAt(r.PC))
	r.PC++
	require.Equal(t, int32(0), r.I32())

	require.Equal(t, OpAddI, r.OpAt(r.PC))
	r.PC++
	require.Equal(t, int32(7), r.I32())

	w.PatchI32(jmpOperand, 99)
	r2 := NewReader(w.Code, jmpOperand)
	require.Equal(t, int32(99), r2.I32())
}

func TestFloatRoundTrip(t *testing.T) {
	var w Writer
	w.F64(3.14159)
	r := NewReader(w.Code, 0)
	require.Equal(t, 3.14159, r.F64())
}

func TestOpcodeNamesAreDistinctWithinFamilies(t *testing.T) {
	require.Equal(t, "add", OpAdd.String())
	require.Equal(t, "send", OpSend.String())
	require.Equal(t, "unknown_opcode", Op(255).String())
}
