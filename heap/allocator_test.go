package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embervm/embervm/values"
)

type fakeRoots struct{ vals []values.Value }

func (f fakeRoots) EnumerateRoots(dst []values.Value) []values.Value {
	return append(dst, f.vals...)
}

func TestAllocateAndSweepUnreachable(t *testing.T) {
	a := NewAllocator()
	idx, obj := a.Allocate(KindString)
	obj.Str = &StringPayload{Bytes: []byte("hi")}
	require.NotZero(t, idx)
	require.NotNil(t, a.At(idx))

	a.RegisterRoots(fakeRoots{}) // nothing rooted
	a.Collect()

	reused, _ := a.Allocate(KindArray)
	// The freed slot should be recycled rather than growing the arena
	// unboundedly; the invalid marker must never be observed live.
	require.NotEqual(t, KindInvalid, a.At(reused).Kind)
}

func TestReachableSurvivesCollection(t *testing.T) {
	a := NewAllocator()
	idx, obj := a.Allocate(KindString)
	obj.Str = &StringPayload{Bytes: []byte("kept")}
	v := values.FromHeapPointer(idx)

	a.RegisterRoots(fakeRoots{vals: []values.Value{v}})
	a.Collect()

	got := a.At(idx)
	require.NotNil(t, got)
	require.Equal(t, KindString, got.Kind)
	require.Equal(t, []byte("kept"), got.Str.Bytes)
}

func TestArrayChildrenAreRooted(t *testing.T) {
	a := NewAllocator()
	childIdx, child := a.Allocate(KindString)
	child.Str = &StringPayload{Bytes: []byte("child")}

	arrIdx, arr := a.Allocate(KindArray)
	arr.Array = &ArrayPayload{Elements: []values.Value{values.FromHeapPointer(childIdx)}}

	a.RegisterRoots(fakeRoots{vals: []values.Value{values.FromHeapPointer(arrIdx)}})
	a.Collect()

	require.Equal(t, KindString, a.At(childIdx).Kind, "array element must be traced and kept alive")
}

func TestInvalidKindNeverObservedOnLiveObject(t *testing.T) {
	a := NewAllocator()
	idx, _ := a.Allocate(KindOrdinary)
	a.RegisterRoots(fakeRoots{vals: []values.Value{values.FromHeapPointer(idx)}})
	a.Collect()
	require.Equal(t, KindOrdinary, a.At(idx).Kind)
}
