package methods

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embervm/embervm/bytecode"
	"github.com/embervm/embervm/values"
)

func TestInternAssignsStableIncreasingIDs(t *testing.T) {
	r := NewRepository()
	d1 := r.InternBytecode("foo", &bytecode.Function{Name: "foo"})
	d2 := r.InternNative("bar", func(ctx NativeCallContext, recv values.Value, args []values.Value, block values.Value) (values.Value, error) {
		return values.Nil(), nil
	})
	require.NotZero(t, d1.ID)
	require.Greater(t, d2.ID, d1.ID)

	got, ok := r.Get(d1.ID)
	require.True(t, ok)
	require.Same(t, d1, got)
}

func TestGetUnknownIDFails(t *testing.T) {
	r := NewRepository()
	_, ok := r.Get(999)
	require.False(t, ok)
	_, ok = r.Get(0)
	require.False(t, ok)
}

func TestConstantCacheVersionMonotonic(t *testing.T) {
	r := NewRepository()
	v0 := r.ConstantCacheVersion()
	r.BumpConstantCache()
	require.Greater(t, r.ConstantCacheVersion(), v0)
}

func TestAttrReaderWriterDescriptors(t *testing.T) {
	r := NewRepository()
	reader := r.InternAttrReader("name", 42)
	writer := r.InternAttrWriter("name=", 42)
	require.Equal(t, KindAttrReader, reader.Kind)
	require.Equal(t, KindAttrWriter, writer.Kind)
	require.Equal(t, uint32(42), reader.IvarID)
	require.Equal(t, uint32(42), writer.IvarID)
}
