package value

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromInt32RoundTrips(t *testing.T) {
	v := FromInt32(-42)
	require.Equal(t, int32(-42), v.Int32())
}

func TestFromFloat32RoundTrips(t *testing.T) {
	v := FromFloat32(3.5)
	require.Equal(t, float32(3.5), v.Float32())
}

func TestFromBoolNormalizesRepr(t *testing.T) {
	require.Equal(t, uint32(1), FromBool(true).Repr)
	require.Equal(t, uint32(0), FromBool(false).Repr)
}

func TestEqualityIsBitPattern(t *testing.T) {
	posZero := FromFloat32(0)
	negZero := FromFloat32(float32(math.Copysign(0, -1)))
	require.NotEqual(t, posZero, negZero, "positive and negative zero must hash/compare distinctly")
}

func TestZero(t *testing.T) {
	require.Equal(t, FromInt32(0), Zero(Int32))
	require.Equal(t, FromFloat32(0), Zero(Float32))
	require.Equal(t, FromBool(false), Zero(Bool))
}

func TestTySize(t *testing.T) {
	for _, ty := range []Ty{Int32, Float32, Bool} {
		require.Equal(t, 4, ty.Size())
	}
}
