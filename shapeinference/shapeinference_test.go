package shapeinference

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/types/shapes"
)

func TestUnaryOp(t *testing.T) {
	vec := shapes.Make(dtypes.Float32, 3)
	shape, err := UnaryOp(ops.OpTypeNeg, vec)
	require.NoError(t, err)
	assert.True(t, shape.Equal(vec))

	// Float-only operations reject integer operands.
	_, err = UnaryOp(ops.OpTypeExp, shapes.Make(dtypes.Int32, 3))
	var typeShapeErr *TypeShapeError
	require.ErrorAs(t, err, &typeShapeErr)
	assert.Equal(t, ops.OpTypeExp, typeShapeErr.Op)

	// LogicalNot wants Bool.
	_, err = UnaryOp(ops.OpTypeLogicalNot, vec)
	assert.Error(t, err)
	_, err = UnaryOp(ops.OpTypeLogicalNot, shapes.Make(dtypes.Bool, 3))
	assert.NoError(t, err)
}

func TestBinaryOpBroadcast(t *testing.T) {
	vec := shapes.Make(dtypes.Float32, 2, 3)
	scalar := shapes.Make(dtypes.Float32)

	shape, err := BinaryOp(ops.OpTypeAdd, vec, scalar)
	require.NoError(t, err)
	assert.True(t, shape.Equal(vec))
	shape, err = BinaryOp(ops.OpTypeMul, scalar, vec)
	require.NoError(t, err)
	assert.True(t, shape.Equal(vec))

	_, err = BinaryOp(ops.OpTypeAdd, vec, shapes.Make(dtypes.Float32, 3, 2))
	assert.Error(t, err)
	_, err = BinaryOp(ops.OpTypeAdd, vec, shapes.Make(dtypes.Float64, 2, 3))
	assert.Error(t, err)
}

func TestComparisonOp(t *testing.T) {
	vec := shapes.Make(dtypes.Int64, 4)
	shape, err := ComparisonOp(ops.OpTypeGreaterThan, vec, shapes.Make(dtypes.Int64))
	require.NoError(t, err)
	assert.True(t, shape.Equal(shapes.Make(dtypes.Bool, 4)))

	_, err = ComparisonOp(ops.OpTypeAdd, vec, vec)
	assert.Error(t, err)
}

func TestWhereOp(t *testing.T) {
	cond := shapes.Make(dtypes.Bool, 4)
	vec := shapes.Make(dtypes.Float32, 4)

	shape, err := WhereOp(cond, vec, vec)
	require.NoError(t, err)
	assert.True(t, shape.Equal(vec))

	// Scalar condition and scalar branch both broadcast.
	shape, err = WhereOp(shapes.Make(dtypes.Bool), vec, shapes.Make(dtypes.Float32))
	require.NoError(t, err)
	assert.True(t, shape.Equal(vec))

	_, err = WhereOp(vec, vec, vec) // Condition not Bool.
	assert.Error(t, err)
	_, err = WhereOp(shapes.Make(dtypes.Bool, 3), vec, vec)
	assert.Error(t, err)
}

func TestReduceOp(t *testing.T) {
	operand := shapes.Make(dtypes.Float32, 2, 3, 4)

	shape, err := ReduceOp(ops.OpTypeReduceSum, operand, nil)
	require.NoError(t, err)
	assert.True(t, shape.IsScalar())

	shape, err = ReduceOp(ops.OpTypeReduceMax, operand, []int{1})
	require.NoError(t, err)
	assert.True(t, shape.Equal(shapes.Make(dtypes.Float32, 2, 4)))

	_, err = ReduceOp(ops.OpTypeReduceSum, operand, []int{3})
	assert.Error(t, err)
	_, err = ReduceOp(ops.OpTypeReduceSum, operand, []int{1, 1})
	assert.Error(t, err)
}

func TestReshapeOp(t *testing.T) {
	shape, err := ReshapeOp(shapes.Make(dtypes.Float32, 2, 3), []int{6})
	require.NoError(t, err)
	assert.True(t, shape.Equal(shapes.Make(dtypes.Float32, 6)))

	_, err = ReshapeOp(shapes.Make(dtypes.Float32, 2, 3), []int{5})
	assert.Error(t, err)
}

func TestSliceOp(t *testing.T) {
	operand := shapes.Make(dtypes.Int32, 4, 5)
	shape, err := SliceOp(operand, []int{1, 0}, []int{3, 5})
	require.NoError(t, err)
	assert.True(t, shape.Equal(shapes.Make(dtypes.Int32, 2, 5)))

	_, err = SliceOp(operand, []int{1}, []int{3})
	assert.Error(t, err)
	_, err = SliceOp(operand, []int{2, 0}, []int{2, 5}) // Empty slice.
	assert.Error(t, err)
	_, err = SliceOp(operand, []int{0, 0}, []int{5, 5}) // Past the end.
	assert.Error(t, err)
}

func TestConcatenateOp(t *testing.T) {
	a := shapes.Make(dtypes.Float32, 2, 3)
	b := shapes.Make(dtypes.Float32, 4, 3)

	shape, err := ConcatenateOp(0, []shapes.Shape{a, b})
	require.NoError(t, err)
	assert.True(t, shape.Equal(shapes.Make(dtypes.Float32, 6, 3)))

	_, err = ConcatenateOp(1, []shapes.Shape{a, b}) // Other axes must match.
	assert.Error(t, err)
	_, err = ConcatenateOp(0, []shapes.Shape{a, shapes.Make(dtypes.Float64, 2, 3)})
	assert.Error(t, err)
}

func TestBroadcastToDimsOp(t *testing.T) {
	shape, err := BroadcastToDimsOp(shapes.Make(dtypes.Float32), []int{2, 3})
	require.NoError(t, err)
	assert.True(t, shape.Equal(shapes.Make(dtypes.Float32, 2, 3)))

	shape, err = BroadcastToDimsOp(shapes.Make(dtypes.Float32, 2, 1), []int{2, 3})
	require.NoError(t, err)
	assert.True(t, shape.Equal(shapes.Make(dtypes.Float32, 2, 3)))

	_, err = BroadcastToDimsOp(shapes.Make(dtypes.Float32, 2), []int{2, 3})
	assert.Error(t, err)
	_, err = BroadcastToDimsOp(shapes.Make(dtypes.Float32, 2, 2), []int{2, 3})
	assert.Error(t, err)
}

func TestIotaOp(t *testing.T) {
	shape, err := IotaOp(dtypes.Int32, []int{2, 3}, 1)
	require.NoError(t, err)
	assert.True(t, shape.Equal(shapes.Make(dtypes.Int32, 2, 3)))

	_, err = IotaOp(dtypes.Bool, []int{2}, 0)
	assert.Error(t, err)
	_, err = IotaOp(dtypes.Int32, []int{2}, 1)
	assert.Error(t, err)
}
