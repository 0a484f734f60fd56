package values

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackFixedInteger(t *testing.T) {
	samples := []int64{0, 1, -1, 42, -42, 1 << 30, -(1 << 30), (1 << 62) - 1, -(1 << 62)}
	for _, i := range samples {
		require.True(t, FitsFixedInteger(i), "sample %d should fit", i)
		v := Int(i)
		require.True(t, v.IsFixedInteger())
		require.Equal(t, i, v.AsInt())
	}
}

func TestFixedIntegerOverflowRange(t *testing.T) {
	require.False(t, FitsFixedInteger(1<<62))
	require.False(t, FitsFixedInteger(-(1<<62) - 1))
	require.True(t, FitsFixedInteger((1<<62)-1))
}

func TestPackUnpackImmediateFloat(t *testing.T) {
	samples := []float64{0.0, 1.0, -1.0, 3.14159, 100.5, -0.0}
	for _, f := range samples {
		v, ok := Float(f)
		require.True(t, ok, "sample %v should pack as immediate", f)
		require.True(t, v.IsImmediateFloat())
		got := v.AsFloat()
		if f == 0 {
			require.Equal(t, 0.0, got)
			require.False(t, math.Signbit(got), "-0.0 canonicalizes to +0.0")
		} else {
			require.Equal(t, f, got)
		}
	}
}

func TestFloatEscapesBand(t *testing.T) {
	_, ok := Float(math.NaN())
	require.False(t, ok)
	_, ok = Float(math.Inf(1))
	require.False(t, ok)
}

func TestSentinelsDisjointFromHeap(t *testing.T) {
	sentinels := []Value{Nil(), True(), False(), Uninitialized()}
	for _, s := range sentinels {
		require.NotZero(t, uint64(s)&0b0111, "sentinel must not look like a heap pointer")
	}
}

func TestToBool(t *testing.T) {
	require.False(t, Nil().ToBool())
	require.False(t, False().ToBool())
	require.False(t, Uninitialized().ToBool())
	require.True(t, True().ToBool())
	require.True(t, Int(0).ToBool())
	v, _ := Float(0.0)
	require.True(t, v.ToBool())
}

func TestSymbolRoundTrip(t *testing.T) {
	v := Symbol(12345)
	require.True(t, v.IsSymbol())
	require.Equal(t, uint32(12345), v.AsSymbolID())
}

func TestHeapPointerRoundTrip(t *testing.T) {
	v := FromHeapPointer(77)
	require.True(t, v.IsHeap())
	require.Equal(t, uint64(77), v.AsHeapIndex())
}

func TestClassificationIsExclusive(t *testing.T) {
	all := []Value{Nil(), True(), False(), Uninitialized(), Int(5), Symbol(1), FromHeapPointer(3)}
	if v, ok := Float(2.5); ok {
		all = append(all, v)
	}
	kinds := map[Kind]int{}
	for _, v := range all {
		kinds[v.Classify()]++
	}
	for k, n := range kinds {
		require.Equal(t, 1, n, "kind %v should be produced by exactly one sample", k)
	}
}
