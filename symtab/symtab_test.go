package symtab

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternIsIdempotent(t *testing.T) {
	tb := New()
	a := tb.Intern("foo")
	b := tb.Intern("foo")
	require.Equal(t, a, b)
	require.Equal(t, "foo", tb.Name(a))
}

func TestInternDistinctNamesGetDistinctIDs(t *testing.T) {
	tb := New()
	a := tb.Intern("foo")
	b := tb.Intern("bar")
	require.NotEqual(t, a, b)
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	tb := New()
	_, ok := tb.Lookup("never_interned")
	require.False(t, ok)
}

func TestNameOfZeroIsEmpty(t *testing.T) {
	tb := New()
	require.Equal(t, "", tb.Name(0))
}
