package tensors

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/symgraph/types/shapes"
)

func TestFromAnyValue(t *testing.T) {
	scalar := FromAnyValue(3.5)
	assert.True(t, scalar.Shape().IsScalar())
	assert.Equal(t, 3.5, scalar.Value())

	matrix := FromAnyValue([][]int32{{1, 2, 3}, {4, 5, 6}})
	assert.True(t, matrix.Shape().Equal(shapes.Make(dtypes.Int32, 2, 3)))
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6}, FlatOf[int32](matrix))

	// Already a tensor: passed through unchanged.
	assert.Same(t, matrix, FromAnyValue(matrix))

	assert.Panics(t, func() { FromAnyValue([][]float32{{1, 2}, {3}}) })
	assert.Panics(t, func() { FromAnyValue("not a tensor") })
}

func TestValueRoundTrip(t *testing.T) {
	original := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	assert.Equal(t, original, FromAnyValue(original).Value())
}

func TestFromFlatAndDimensions(t *testing.T) {
	matrix := FromFlatAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	assert.True(t, matrix.Shape().Equal(shapes.Make(dtypes.Float32, 2, 3)))
	assert.Panics(t, func() { FromFlatAndDimensions([]float32{1, 2, 3}, 2, 3) })
}

func TestRowIsAView(t *testing.T) {
	matrix := FromAnyValue([][]int64{{1, 2}, {3, 4}})
	row := matrix.Row(1)
	require.True(t, row.Shape().Equal(shapes.Make(dtypes.Int64, 2)))
	assert.Equal(t, []int64{3, 4}, FlatOf[int64](row))

	// Mutating the view mutates the parent.
	FlatOf[int64](row)[0] = 30
	assert.Equal(t, []int64{1, 2, 30, 4}, FlatOf[int64](matrix))

	assert.Panics(t, func() { matrix.Row(2) })
	assert.Panics(t, func() { FromScalar(1.0).Row(0) })
}

func TestSubLeading(t *testing.T) {
	vector := FromAnyValue([]float32{1, 2, 3, 4})
	head := vector.SubLeading(2)
	assert.Equal(t, []float32{1, 2}, FlatOf[float32](head))

	empty := vector.SubLeading(0)
	assert.Equal(t, 0, empty.Shape().Dim(0))
	assert.Panics(t, func() { vector.SubLeading(5) })
}

func TestCloneAndCopyFrom(t *testing.T) {
	a := FromAnyValue([]float64{1, 2, 3})
	b := a.Clone()
	FlatOf[float64](b)[0] = 10
	assert.Equal(t, []float64{1, 2, 3}, FlatOf[float64](a))

	a.CopyFrom(b)
	assert.Equal(t, []float64{10, 2, 3}, FlatOf[float64](a))
	assert.Panics(t, func() { a.CopyFrom(FromScalar(1.0)) })
}

func TestEqualTensors(t *testing.T) {
	a := FromAnyValue([]int32{1, 2, 3})
	assert.True(t, a.Equal(FromAnyValue([]int32{1, 2, 3})))
	assert.False(t, a.Equal(FromAnyValue([]int32{1, 2, 4})))
	assert.False(t, a.Equal(FromAnyValue([]int64{1, 2, 3})))
	assert.False(t, a.Equal(nil))
	var nilTensor *Tensor
	assert.True(t, nilTensor.Equal(nil))
}

func TestFlatOfChecksDType(t *testing.T) {
	a := FromAnyValue([]int32{1, 2, 3})
	assert.Panics(t, func() { FlatOf[float32](a) })
}
