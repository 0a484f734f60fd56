package vm

import (
	"math"
	"math/big"

	"github.com/embervm/embervm/heap"
	"github.com/embervm/embervm/internal/raise"
	"github.com/embervm/embervm/values"
)

// BinaryArith (below) evaluates a binary arithmetic opcode's operation against two
// already-popped operands, implementing spec.md §4.4's fast-path
// ladder: fixed-integer arithmetic first, promoting to a heap
// big-integer on overflow, widening to float when either operand is a
// float, and falling back to a full `send` of the operator method
// name for anything else (heap numerics, user-defined `+` etc.).
// Adapted from the teacher's arithmetic_executor.go ladder (numeric
// fast path, then array/string special case, then generic convert),
// retargeted onto Ruby's fixnum/bignum/flonum promotion chain.
type arithOp byte

const (
	arithAdd arithOp = iota
	arithSub
	arithMul
	arithDiv
	arithRem
	arithPow
)

// BinaryArith implements add/sub/mul/div/rem/pow (spec.md §4.1's
// arithmetic family, OpAdd..OpPow). ok is false when neither operand
// is numeric and the caller must fall back to a method `send`.
func (v *VM) BinaryArith(op arithOp, a, b values.Value) (result values.Value, err *raise.Error, ok bool) {
	if a.IsFixedInteger() && b.IsFixedInteger() {
		x, y := a.AsInt(), b.AsInt()
		if r, fits := fixedArith(op, x, y); fits {
			return values.Int(r), nil, true
		}
		return v.bigArith(op, big.NewInt(x), big.NewInt(y))
	}
	if isBigInt(v, a) || isBigInt(v, b) {
		ba, oka := v.asBigInt(a)
		bb, okb := v.asBigInt(b)
		if oka && okb {
			return v.bigArith(op, ba, bb)
		}
	}
	if af, oka := v.asFloat(a); oka {
		if bf, okb := v.asFloat(b); okb {
			return v.floatArith(op, af, bf)
		}
	}
	return values.Value(0), nil, false
}

// fixedArith performs the operation in int64 arithmetic and reports
// whether the result still fits a fixed integer (spec.md §4.1
// "promote to heap big-integer on overflow").
func fixedArith(op arithOp, x, y int64) (int64, bool) {
	var r int64
	switch op {
	case arithAdd:
		r = x + y
		if ((r - y) != x) || !values.FitsFixedInteger(r) {
			return 0, false
		}
	case arithSub:
		r = x - y
		if ((r + y) != x) || !values.FitsFixedInteger(r) {
			return 0, false
		}
	case arithMul:
		if x == 0 || y == 0 {
			return 0, true
		}
		r = x * y
		if r/y != x || !values.FitsFixedInteger(r) {
			return 0, false
		}
	case arithDiv:
		return 0, false // division promotes to bigint path to get Ruby floor-div semantics
	case arithRem:
		return 0, false
	case arithPow:
		return 0, false
	default:
		return 0, false
	}
	return r, true
}

func (v *VM) bigArith(op arithOp, x, y *big.Int) (values.Value, *raise.Error, bool) {
	r := new(big.Int)
	switch op {
	case arithAdd:
		r.Add(x, y)
	case arithSub:
		r.Sub(x, y)
	case arithMul:
		r.Mul(x, y)
	case arithDiv:
		if y.Sign() == 0 {
			return values.Value(0), raise.New(raise.ZeroDivisionError, "divided by 0"), true
		}
		// floor division, matching Ruby Integer#/
		m := new(big.Int)
		r.QuoRem(x, y, m)
		if m.Sign() != 0 && m.Sign() != y.Sign() {
			r.Sub(r, big.NewInt(1))
		}
	case arithRem:
		if y.Sign() == 0 {
			return values.Value(0), raise.New(raise.ZeroDivisionError, "divided by 0"), true
		}
		// floor modulo: the result takes the divisor's sign, as in Ruby
		r.Rem(x, y)
		if r.Sign() != 0 && r.Sign() != y.Sign() {
			r.Add(r, y)
		}
	case arithPow:
		if y.Sign() < 0 {
			f, _ := new(big.Float).SetInt(x).Float64()
			yf, _ := new(big.Float).SetInt(y).Float64()
			return v.floatArith(arithPow, f, yf)
		}
		r.Exp(x, y, nil)
	}
	return v.boxBigInt(r), nil, true
}

func (v *VM) floatArith(op arithOp, x, y float64) (values.Value, *raise.Error, bool) {
	var r float64
	switch op {
	case arithAdd:
		r = x + y
	case arithSub:
		r = x - y
	case arithMul:
		r = x * y
	case arithDiv:
		r = x / y
	case arithRem:
		r = math.Mod(x, y)
	case arithPow:
		r = math.Pow(x, y)
	}
	return v.boxFloat(r), nil, true
}

// Negate implements unary OpNeg.
func (v *VM) Negate(a values.Value) (values.Value, bool) {
	if a.IsFixedInteger() {
		x := a.AsInt()
		if x == math.MinInt64 || !values.FitsFixedInteger(-x) {
			return v.boxBigInt(new(big.Int).Neg(big.NewInt(x))), true
		}
		return values.Int(-x), true
	}
	if bi, ok := v.asBigInt(a); ok {
		return v.boxBigInt(new(big.Int).Neg(bi)), true
	}
	if f, ok := v.asFloat(a); ok {
		return v.boxFloat(-f), true
	}
	return values.Value(0), false
}

func isBigInt(v *VM, val values.Value) bool {
	if !val.IsHeap() {
		return false
	}
	obj := v.Heap.At(val.AsHeapIndex())
	return obj != nil && obj.Kind == heap.KindBigInteger
}

func (v *VM) asBigInt(val values.Value) (*big.Int, bool) {
	if val.IsFixedInteger() {
		return big.NewInt(val.AsInt()), true
	}
	if val.IsHeap() {
		if obj := v.Heap.At(val.AsHeapIndex()); obj != nil && obj.Kind == heap.KindBigInteger {
			return obj.BigInt, true
		}
	}
	return nil, false
}

func (v *VM) asFloat(val values.Value) (float64, bool) {
	if val.IsImmediateFloat() {
		return val.AsFloat(), true
	}
	if val.IsFixedInteger() {
		return float64(val.AsInt()), true
	}
	if val.IsHeap() {
		if obj := v.Heap.At(val.AsHeapIndex()); obj != nil {
			switch obj.Kind {
			case heap.KindHeapFloat:
				return obj.HeapFloat, true
			case heap.KindBigInteger:
				f, _ := new(big.Float).SetInt(obj.BigInt).Float64()
				return f, true
			}
		}
	}
	return 0, false
}

// boxBigInt demotes back to a fixed integer when the result fits,
// otherwise allocates a heap big-integer object (spec.md §4.1).
func (v *VM) boxBigInt(r *big.Int) values.Value {
	if r.IsInt64() && values.FitsFixedInteger(r.Int64()) {
		return values.Int(r.Int64())
	}
	idx, obj := v.Heap.Allocate(heap.KindBigInteger)
	obj.BigInt = r
	c, _ := v.Classes.Get("Integer")
	obj.Class = c
	return values.FromHeapPointer(idx)
}

// boxFloat packs an immediate float when representable, otherwise
// allocates a heap float (spec.md §4.1's "middle band" immediate
// float encoding).
func (v *VM) boxFloat(f float64) values.Value {
	if packed, ok := values.Float(f); ok {
		return packed
	}
	idx, obj := v.Heap.Allocate(heap.KindHeapFloat)
	obj.HeapFloat = f
	c, _ := v.Classes.Get("Float")
	obj.Class = c
	return values.FromHeapPointer(idx)
}
