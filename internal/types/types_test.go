package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/c5lang/c5c/internal/types"
)

func TestStringRendersCanonicalForm(t *testing.T) {
	ty := types.SizedInt(32).WithSign(false, true)
	require.Equal(t, "unsigned int<32>", ty.String())

	ptr := types.PointerTo(types.Char)
	require.Equal(t, "char*", ptr.String())

	arr := types.ArrayOf(types.Int)
	require.Equal(t, "array<int>", arr.String())
}

func TestEqualIgnoresConstAndDefaultWidths(t *testing.T) {
	a := types.Int.WithConst()
	b := types.SizedInt(64)
	require.True(t, a.Equal(b))

	c := types.SizedInt(32)
	require.False(t, a.Equal(c))
}

func TestEqualComparesPointerElemRecursively(t *testing.T) {
	a := types.PointerTo(types.SizedInt(32))
	b := types.PointerTo(types.SizedInt(32))
	require.True(t, a.Equal(b))

	c := types.PointerTo(types.SizedInt(16))
	require.False(t, a.Equal(c))
}

func TestEqualComparesNamedTypesByName(t *testing.T) {
	a := types.Struct("point")
	b := types.Struct("point")
	c := types.Struct("color")
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestPointerDepthCountsNesting(t *testing.T) {
	ty := types.PointerTo(types.PointerTo(types.Int))
	require.Equal(t, 2, ty.PointerDepth())
	require.Equal(t, 0, types.Int.PointerDepth())
}

func TestBitWidthDefaultsTo64ForPlainInt(t *testing.T) {
	require.Equal(t, 64, types.Int.BitWidth())
	require.Equal(t, 8, types.Char.BitWidth())
	require.Equal(t, 16, types.SizedInt(16).BitWidth())
}
