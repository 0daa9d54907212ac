package vartable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devalang/core/internal/langtypes"
)

func TestDeclareAndGet(t *testing.T) {
	root := New()
	require.NoError(t, root.Declare("bpm", langtypes.NumberOf(120), BindingLet))
	v, ok := root.Get("bpm")
	require.True(t, ok)
	assert.Equal(t, 120.0, v.Number)
}

func TestChildScopeFallsThroughToParent(t *testing.T) {
	root := New()
	require.NoError(t, root.Declare("x", langtypes.NumberOf(1), BindingLet))
	child := root.Child()
	v, ok := child.Get("x")
	require.True(t, ok)
	assert.Equal(t, 1.0, v.Number)

	require.NoError(t, child.Declare("x", langtypes.NumberOf(2), BindingLet))
	v, _ = child.Get("x")
	assert.Equal(t, 2.0, v.Number)
	v, _ = root.Get("x")
	assert.Equal(t, 1.0, v.Number, "child shadow must not leak into parent")
}

func TestConstCannotBeAssigned(t *testing.T) {
	root := New()
	require.NoError(t, root.Declare("pi", langtypes.NumberOf(3.14), BindingConst))
	err := root.Assign("pi", langtypes.NumberOf(4))
	assert.Error(t, err)
}

func TestAssignUndeclaredFails(t *testing.T) {
	root := New()
	err := root.Assign("missing", langtypes.NumberOf(1))
	assert.Error(t, err)
}

func TestAssignMutatesOwningScope(t *testing.T) {
	root := New()
	require.NoError(t, root.Declare("counter", langtypes.NumberOf(0), BindingVar))
	child := root.Child()
	require.NoError(t, child.Assign("counter", langtypes.NumberOf(5)))
	v, _ := root.Get("counter")
	assert.Equal(t, 5.0, v.Number)
}
