package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlerForPicksInnermostEntry(t *testing.T) {
	f := &Function{
		Exceptions: []ExceptionEntry{
			{BodyStart: 0, BodyEnd: 100, Handler: 200},
			{BodyStart: 10, BodyEnd: 20, Handler: 50},
		},
	}
	e, ok := f.HandlerFor(15)
	require.True(t, ok)
	require.Equal(t, 50, e.Handler)

	e, ok = f.HandlerFor(50)
	require.True(t, ok)
	require.Equal(t, 200, e.Handler)

	_, ok = f.HandlerFor(1000)
	require.False(t, ok)
}

func TestArityNoSplat(t *testing.T) {
	p := &Params{RequiredBefore: 1, Optional: []OptionalParam{{}}, RequiredAfter: 1}
	min, max := p.Arity()
	require.Equal(t, 2, min)
	require.Equal(t, 3, max)
}

func TestArityWithSplat(t *testing.T) {
	p := &Params{RequiredBefore: 2, Splat: SplatNamed, RequiredAfter: 1}
	min, max := p.Arity()
	require.Equal(t, 3, min)
	require.Equal(t, -1, max)
}

func TestLineForPicksMostRecentAtOrBefore(t *testing.T) {
	f := &Function{SourceMap: []SourceMapEntry{{PC: 0, Line: 1}, {PC: 10, Line: 2}, {PC: 20, Line: 3}}}
	e, ok := f.LineFor(15)
	require.True(t, ok)
	require.Equal(t, 2, e.Line)
}
