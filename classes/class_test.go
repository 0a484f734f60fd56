package classes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/embervm/embervm/values"
)

func TestLookupMethodWalksUpperChain(t *testing.T) {
	object := New("Object", nil, 0)
	base := New("Base", object, 0)
	derived := New("Derived", base, 0)

	base.AddMethod(1, 100)
	id, owner, ok := derived.LookupMethod(1)
	require.True(t, ok)
	require.Equal(t, uint32(100), id)
	require.Same(t, base, owner)
}

func TestLookupMethodMiss(t *testing.T) {
	object := New("Object", nil, 0)
	derived := New("Derived", object, 0)
	_, _, ok := derived.LookupMethod(999)
	require.False(t, ok)
}

func TestIncludeModuleFormsLinearChain(t *testing.T) {
	object := New("Object", nil, 0)
	mixinA := New("MixinA", nil, FlagModule)
	mixinA.AddMethod(1, 10)
	mixinB := New("MixinB", nil, FlagModule)
	mixinB.AddMethod(2, 20)

	c := New("C", object, 0)
	c.IncludeModule(mixinA)
	c.IncludeModule(mixinB)

	// Most recently included module wins for its own method, and the
	// chain stays linear (no diamond) down to Object.
	id, _, ok := c.LookupMethod(2)
	require.True(t, ok)
	require.Equal(t, uint32(20), id)
	id, _, ok = c.LookupMethod(1)
	require.True(t, ok)
	require.Equal(t, uint32(10), id)

	depth := 0
	for cur := c.Upper; cur != nil; cur = cur.Upper {
		depth++
		require.LessOrEqual(t, depth, 10, "chain must terminate, no diamond cycle")
	}
}

func TestMethodRedefinitionBumpsVersion(t *testing.T) {
	c := New("C", nil, 0)
	v0 := c.Version()
	c.AddMethod(1, 10)
	require.Greater(t, c.Version(), v0)
	v1 := c.Version()
	c.AddMethod(1, 20) // redefinition
	require.Greater(t, c.Version(), v1)
}

func TestSingletonPromotion(t *testing.T) {
	object := New("Object", nil, 0)
	c := New("Foo", object, 0)
	sc1 := GetSingletonClass(c)
	require.True(t, sc1.IsSingleton())
	require.Same(t, GetSingletonClass(object), sc1.Upper)

	sc2 := GetSingletonClass(c)
	require.Same(t, sc1, sc2, "second call must return the same singleton")
}

func TestSingletonOfClassLinksParallelChain(t *testing.T) {
	object := New("Object", nil, 0)
	base := New("Base", object, 0)
	derived := New("Derived", base, 0)

	// When the receiver is itself a class, its singleton's Upper must
	// be the singleton of its superclass.
	derivedSingleton := GetSingletonClass(derived)
	baseSingleton := GetSingletonClass(base)
	require.Same(t, baseSingleton, derivedSingleton.Upper)
}

func TestConstantsAndClassVars(t *testing.T) {
	c := New("C", nil, 0)
	c.SetConstant(1, values.Int(42))
	v, ok := c.GetConstant(1)
	require.True(t, ok)
	require.Equal(t, values.Int(42), v)

	c.SetClassVar(2, values.True())
	v, ok = c.GetClassVar(2)
	require.True(t, ok)
	require.True(t, v.ToBool())
}

func TestUnnamedClassPrintsHexForm(t *testing.T) {
	c := New("", nil, 0)
	require.Contains(t, c.ClassName(), "#<Class:0x")
}

func TestRegistryDefineIsIdempotent(t *testing.T) {
	r := NewRegistry()
	a := r.Define("Foo", nil, 0)
	b := r.Define("Foo", nil, 0)
	require.Same(t, a, b)
}
