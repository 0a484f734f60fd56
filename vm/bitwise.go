package vm

import (
	"math/big"

	"github.com/embervm/embervm/internal/raise"
	"github.com/embervm/embervm/values"
)

// bitwiseOp enumerates spec.md §4.3's Bitwise instruction family:
// and/or/xor/shr/shl, each with an `_i` immediate variant (OpBitAndI
// etc.), mirroring arithOp's arithmetic-family shape in arithmetic.go.
type bitwiseOp byte

const (
	bitAnd bitwiseOp = iota
	bitOr
	bitXor
	bitShr
	bitShl
)

// BinaryBitwise implements &, |, ^, >>, << (spec.md §4.1's bitwise
// family, defined only over Integer in Ruby). ok is false for any
// operand that isn't a fixed-integer or big-integer, in which case
// the caller falls back to a full method `send`.
func (v *VM) BinaryBitwise(op bitwiseOp, a, b values.Value) (values.Value, *raise.Error, bool) {
	ai, oka := v.asBigInt(a)
	bi, okb := v.asBigInt(b)
	if !oka || !okb {
		return values.Value(0), nil, false
	}
	if op == bitShr || op == bitShl {
		return v.boxBigInt(shiftBigInt(op, ai, bi)), nil, true
	}
	r := new(big.Int)
	switch op {
	case bitAnd:
		r.And(ai, bi)
	case bitOr:
		r.Or(ai, bi)
	case bitXor:
		r.Xor(ai, bi)
	}
	return v.boxBigInt(r), nil, true
}

// shiftBigInt implements Integer#<</Integer#>>: a negative shift
// amount reverses direction (`1 << -1 == 0`, `4 >> -1 == 8`), and
// math/big's Rsh already gives the floor (arithmetic) shift negative
// receivers need.
func shiftBigInt(op bitwiseOp, x, amount *big.Int) *big.Int {
	n := amount.Int64()
	if op == bitShr {
		n = -n
	}
	r := new(big.Int).Set(x)
	if n >= 0 {
		return r.Lsh(r, uint(n))
	}
	return r.Rsh(r, uint(-n))
}

// Complement implements unary `~` (spec.md §4.1 OpBitNot).
func (v *VM) Complement(a values.Value) (values.Value, bool) {
	ai, ok := v.asBigInt(a)
	if !ok {
		return values.Value(0), false
	}
	return v.boxBigInt(new(big.Int).Not(ai)), true
}
