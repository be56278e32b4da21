package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/usein-abilev/embervm/value"
)

func TestPushVarAndGetVar(t *testing.T) {
	f := New()
	f.PushPart(0)
	addr := f.PushVar("x", value.Int32)
	require.Equal(t, 0, addr)

	got, ty, ok := f.GetVar("x")
	require.True(t, ok)
	require.Equal(t, 0, got)
	require.Equal(t, value.Int32, ty)
}

func TestShadowingInNestedPart(t *testing.T) {
	f := New()
	f.PushPart(0)
	f.PushVar("x", value.Int32)

	f.PushPart(0)
	innerAddr := f.PushVar("x", value.Float32)
	addr, ty, ok := f.GetVar("x")
	require.True(t, ok)
	require.Equal(t, innerAddr, addr)
	require.Equal(t, value.Float32, ty)
	f.PopPart()

	addr, ty, ok = f.GetVar("x")
	require.True(t, ok)
	require.Equal(t, 0, addr)
	require.Equal(t, value.Int32, ty)
}

func TestSlotsNeverRecycled(t *testing.T) {
	f := New()
	f.PushPart(0)
	f.PushVar("a", value.Int32)

	f.PushPart(0)
	f.PushVar("b", value.Int32)
	f.PopPart()

	// "b"'s slot (1) is gone from lookup, but the allocator must not
	// reuse it for the next allocation in the outer part.
	_, _, ok := f.GetVar("b")
	require.False(t, ok)

	addr := f.PushVar("c", value.Int32)
	require.Equal(t, 2, addr)
	require.Equal(t, 3, f.MaxSize())
}

func TestConstDedupPerScope(t *testing.T) {
	f := New()
	f.PushPart(0)
	v := value.FromInt32(42)
	first := f.PushConst(v)
	second, ok := f.GetConst(v)
	require.True(t, ok)
	require.Equal(t, first, second)
}

func TestMaxSizeIsHighWaterMark(t *testing.T) {
	f := New()
	f.PushPart(0)
	f.PushVar("a", value.Int32)
	f.PushPart(0)
	f.PushVar("b", value.Int32)
	f.PushVar("c", value.Int32)
	f.PopPart()
	f.PopPart()
	require.Equal(t, 3, f.MaxSize())
}
