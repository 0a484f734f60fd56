package fiber

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embervm/embervm/values"
)

func TestFiberYieldThenResumeRendezvous(t *testing.T) {
	f := New(func(y *Yielder, args []values.Value) (values.Value, error) {
		require.Equal(t, values.Int(1), args[0])
		got := y.Yield(values.Int(2))
		require.Equal(t, values.Int(3), got[0])
		return values.Int(4), nil
	})

	require.Equal(t, Created, f.State())

	val, done, err := f.Resume([]values.Value{values.Int(1)})
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, values.Int(2), val)
	require.Equal(t, Suspended, f.State())

	val, done, err = f.Resume([]values.Value{values.Int(3)})
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, values.Int(4), val)
	require.Equal(t, Dead, f.State())
}

func TestFiberResumeAfterDeadRaises(t *testing.T) {
	f := New(func(y *Yielder, args []values.Value) (values.Value, error) {
		return values.Nil(), nil
	})
	_, done, err := f.Resume(nil)
	require.NoError(t, err)
	require.True(t, done)

	_, _, err = f.Resume(nil)
	require.ErrorIs(t, err, ErrDeadFiber)
}

func TestFiberBodyErrorPropagates(t *testing.T) {
	boom := require.New(t)
	sentinel := errorSentinel("boom")
	f := New(func(y *Yielder, args []values.Value) (values.Value, error) {
		return values.Nil(), sentinel
	})
	_, done, err := f.Resume(nil)
	boom.True(done)
	boom.ErrorIs(err, sentinel)
}

type errorSentinel string

func (e errorSentinel) Error() string { return string(e) }

func TestEnumeratorNextAndStopIteration(t *testing.T) {
	e := NewEnumerator(func(y *Yielder, _ []values.Value) (values.Value, error) {
		y.Yield(values.Int(10))
		y.Yield(values.Int(20))
		return values.Nil(), nil
	})

	v, err := e.Next()
	require.NoError(t, err)
	require.Equal(t, values.Int(10), v)

	v, err = e.Next()
	require.NoError(t, err)
	require.Equal(t, values.Int(20), v)

	_, err = e.Next()
	require.ErrorIs(t, err, ErrStopIteration)
}
