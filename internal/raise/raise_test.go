package raise

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsWalksHierarchyToStandardError(t *testing.T) {
	e := New(ZeroDivisionError, "divided by 0")
	require.True(t, e.Is(ZeroDivisionError))
	require.True(t, e.Is(StandardError))
	require.True(t, e.Is(Exception))
	require.False(t, e.Is(TypeError))
}

func TestNoMethodErrorIsANameError(t *testing.T) {
	e := New(NoMethodError, "undefined method 'foo'")
	require.True(t, e.Is(NameError))
	require.True(t, e.Is(StandardError))
}

func TestNonLocalExitKindsAreNotExceptions(t *testing.T) {
	e := &Error{Kind: BlockReturn, Value: 42}
	require.True(t, e.IsNonLocalExit())
	require.False(t, e.Is(Exception))
}

func TestAppendGrowsBacktraceInnermostFirst(t *testing.T) {
	e := New(RuntimeError, "boom")
	e.Append("a.rb", 3, "foo")
	e.Append("a.rb", 10, "bar")
	require.Equal(t, []Frame{{Source: "a.rb", Line: 3, Func: "foo"}, {Source: "a.rb", Line: 10, Func: "bar"}}, e.Backtrace)
}
