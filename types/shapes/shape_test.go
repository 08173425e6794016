package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	s := Make(dtypes.Float32, 2, 3)
	assert.True(t, s.Ok())
	assert.Equal(t, 2, s.Rank())
	assert.Equal(t, 6, s.Size())
	assert.Equal(t, "(Float32)[2 3]", s.String())

	assert.Panics(t, func() { Make(dtypes.Float32, 2, 0) })
}

func TestScalar(t *testing.T) {
	s := Scalar[float64]()
	assert.True(t, s.IsScalar())
	assert.Equal(t, 1, s.Size())
	assert.Equal(t, "(Float64)", s.String())
	assert.False(t, Invalid().Ok())
	assert.False(t, Shape{}.IsScalar())
}

func TestDimAndAdjustAxis(t *testing.T) {
	s := Make(dtypes.Int32, 4, 5, 6)
	assert.Equal(t, 5, s.Dim(1))
	assert.Equal(t, 6, s.Dim(-1))
	assert.Equal(t, 0, AdjustAxis(s, -3))
	assert.Panics(t, func() { s.Dim(3) })
	assert.Panics(t, func() { AdjustAxis(s, -4) })
}

func TestEqual(t *testing.T) {
	a := Make(dtypes.Float32, 2, 3)
	assert.True(t, a.Equal(Make(dtypes.Float32, 2, 3)))
	assert.False(t, a.Equal(Make(dtypes.Float64, 2, 3)))
	assert.False(t, a.Equal(Make(dtypes.Float32, 3, 2)))
	assert.True(t, a.EqualDimensions(Make(dtypes.Float64, 2, 3)))
}

func TestCloneIsIndependent(t *testing.T) {
	a := Make(dtypes.Float32, 2, 3)
	b := a.Clone()
	b.Dimensions[0] = 7
	assert.Equal(t, 2, a.Dim(0))
}

func TestStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Make(dtypes.Float32, 2, 3, 4).Strides())
	assert.Empty(t, Scalar[float32]().Strides())
}

func TestMemory(t *testing.T) {
	assert.Equal(t, uintptr(24), Make(dtypes.Float32, 2, 3).Memory())
	assert.Equal(t, uintptr(12), Make(dtypes.Float16, 2, 3).Memory())
}
