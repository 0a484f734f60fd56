package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallStackPushPopOrder(t *testing.T) {
	cs := NewCallStack()
	require.True(t, cs.IsEmpty())

	f1 := &Frame{}
	f2 := &Frame{}
	require.True(t, cs.Push(f1))
	require.True(t, cs.Push(f2))
	require.Equal(t, 2, cs.Depth())
	require.Same(t, f2, cs.Current())

	require.Same(t, f2, cs.Pop())
	require.Same(t, f1, cs.Pop())
	require.Nil(t, cs.Pop())
	require.True(t, cs.IsEmpty())
}

func TestCallStackUnboundedByDefault(t *testing.T) {
	cs := NewCallStack()
	for i := 0; i < 10_000; i++ {
		require.True(t, cs.Push(&Frame{}))
	}
	require.Equal(t, 10_000, cs.Depth())
}

func TestCallStackMaxDepthRejectsOverflow(t *testing.T) {
	cs := NewCallStack()
	cs.MaxDepth = 3
	require.True(t, cs.Push(&Frame{}))
	require.True(t, cs.Push(&Frame{}))
	require.True(t, cs.Push(&Frame{}))
	require.False(t, cs.Push(&Frame{}))
	require.Equal(t, 3, cs.Depth())

	// popping below MaxDepth frees room again
	cs.Pop()
	require.True(t, cs.Push(&Frame{}))
}

func TestCallStackFramesSnapshotIsACopy(t *testing.T) {
	cs := NewCallStack()
	cs.Push(&Frame{})
	snap := cs.Frames()
	require.Len(t, snap, 1)
	cs.Push(&Frame{})
	require.Len(t, snap, 1, "earlier snapshot must not observe later pushes")
	require.Len(t, cs.Frames(), 2)
}
