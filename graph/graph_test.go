package graph

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/shapeinference"
	"github.com/gomlx/symgraph/types/shapes"
	"github.com/gomlx/symgraph/types/tensors"
)

func TestParameter(t *testing.T) {
	g := New("params")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 3))
	assert.Equal(t, "x", x.ParameterName())
	assert.Equal(t, ParameterHandle(0), x.ParameterHandle())

	anon := g.Parameter("", shapes.Make(dtypes.Float32))
	assert.Equal(t, "p#1", anon.ParameterName())
	assert.Equal(t, 2, g.NumParameters())

	// Same name and shape returns the original node.
	again := g.Parameter("x", shapes.Make(dtypes.Float32, 3))
	assert.Same(t, x, again)
	assert.Equal(t, 2, g.NumParameters())

	// Same name with a different shape throws.
	err := exceptions.TryCatch[error](func() {
		g.Parameter("x", shapes.Make(dtypes.Float64, 3))
	})
	var tsErr *shapeinference.TypeShapeError
	require.ErrorAs(t, err, &tsErr)
}

func TestConstFlat(t *testing.T) {
	g := New("const-flat")
	c := ConstFlat(g, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	assert.Equal(t, ops.OpTypeConstant, c.Type())
	assert.True(t, c.Shape().Equal(shapes.Make(dtypes.Float32, 2, 3)))

	err := exceptions.TryCatch[error](func() {
		ConstFlat(g, []float32{1, 2, 3}, 2, 3)
	})
	require.Error(t, err)
}

func TestScalarCache(t *testing.T) {
	g := New("scalars")
	one := ScalarOne(g, dtypes.Float32)
	assert.Same(t, one, Scalar(g, dtypes.Float32, 1))
	assert.NotSame(t, one, Scalar(g, dtypes.Float32, 2))
	assert.NotSame(t, one, ScalarOne(g, dtypes.Float64))
	assert.Equal(t, float32(1), one.ConstValue().Value())
}

func TestBinaryOpShapes(t *testing.T) {
	g := New("binary")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 2, 3))
	y := g.Parameter("y", shapes.Make(dtypes.Float32, 2, 3))
	sum := Add(x, y)
	assert.True(t, sum.Shape().Equal(shapes.Make(dtypes.Float32, 2, 3)))
	assert.Equal(t, ops.OpTypeAdd, sum.Type())

	// Scalars broadcast implicitly.
	scaled := Mul(x, Scalar(g, dtypes.Float32, 2))
	assert.True(t, scaled.Shape().Equal(x.Shape()))

	// Non-scalar dimension mismatches don't.
	z := g.Parameter("z", shapes.Make(dtypes.Float32, 3, 2))
	err := exceptions.TryCatch[error](func() { Add(x, z) })
	var tsErr *shapeinference.TypeShapeError
	require.ErrorAs(t, err, &tsErr)

	// Neither do dtype mismatches.
	w := g.Parameter("w", shapes.Make(dtypes.Float64, 2, 3))
	err = exceptions.TryCatch[error](func() { Add(x, w) })
	require.ErrorAs(t, err, &tsErr)
}

func TestComparisonAndWhere(t *testing.T) {
	g := New("cmp")
	x := g.Parameter("x", shapes.Make(dtypes.Int32, 4))
	y := g.Parameter("y", shapes.Make(dtypes.Int32, 4))
	cond := GreaterThan(x, y)
	assert.Equal(t, dtypes.Bool, cond.DType())
	assert.True(t, cond.Shape().EqualDimensions(x.Shape()))

	sel := Where(cond, x, y)
	assert.True(t, sel.Shape().Equal(x.Shape()))

	// Bool inputs only work with the logical ops.
	err := exceptions.TryCatch[error](func() { Add(cond, cond) })
	var tsErr *shapeinference.TypeShapeError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, dtypes.Bool, LogicalAnd(cond, cond).DType())
}

func TestReduceAxes(t *testing.T) {
	g := New("reduce")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 2, 3, 4))

	all := ReduceSum(x)
	assert.True(t, all.IsScalar())
	assert.Equal(t, []int{0, 1, 2}, all.ReduceAxes())

	lastAxis := ReduceMax(x, -1)
	assert.True(t, lastAxis.Shape().Equal(shapes.Make(dtypes.Float32, 2, 3)))
	assert.Equal(t, []int{2}, lastAxis.ReduceAxes())

	err := exceptions.TryCatch[error](func() { ReduceSum(x, 3) })
	var tsErr *shapeinference.TypeShapeError
	require.ErrorAs(t, err, &tsErr)
}

func TestShapeOps(t *testing.T) {
	g := New("shapeops")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 2, 6))

	r := Reshape(x, 3, 4)
	assert.True(t, r.Shape().Equal(shapes.Make(dtypes.Float32, 3, 4)))
	err := exceptions.TryCatch[error](func() { Reshape(x, 5) })
	var tsErr *shapeinference.TypeShapeError
	require.ErrorAs(t, err, &tsErr)

	s := Slice(x, []int{0, 2}, []int{2, 5})
	assert.True(t, s.Shape().Equal(shapes.Make(dtypes.Float32, 2, 3)))
	starts, limits := s.SliceBounds()
	assert.Equal(t, []int{0, 2}, starts)
	assert.Equal(t, []int{2, 5}, limits)

	lead := SliceLeading(x, 1, 2)
	assert.True(t, lead.Shape().Equal(shapes.Make(dtypes.Float32, 1, 6)))

	c := Concatenate(0, x, x)
	assert.True(t, c.Shape().Equal(shapes.Make(dtypes.Float32, 4, 6)))
	assert.Equal(t, 0, c.ConcatAxis())

	b := BroadcastToDims(Scalar(g, dtypes.Float32, 1), 2, 6)
	assert.True(t, b.Shape().Equal(x.Shape()))
	// Broadcasting to the same dimensions is a no-op.
	assert.Same(t, x, BroadcastToDims(x, 2, 6))

	iota := Iota(g, shapes.Make(dtypes.Int64, 3, 2), -1)
	assert.Equal(t, 1, iota.IotaAxis())
}

func TestConvertDType(t *testing.T) {
	g := New("convert")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 3))
	assert.Same(t, x, ConvertDType(x, dtypes.Float32))
	converted := ConvertDType(x, dtypes.Int32)
	assert.Equal(t, dtypes.Int32, converted.DType())
	assert.True(t, converted.Shape().EqualDimensions(x.Shape()))
}

func TestTestValuePolicy(t *testing.T) {
	g := New("domain")
	g.SetTestValuePolicy(TestValueRaise)
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 3))

	err := exceptions.TryCatch[error](func() { Div(x, ScalarZero(g, dtypes.Float32)) })
	var tsErr *shapeinference.TypeShapeError
	require.ErrorAs(t, err, &tsErr)

	err = exceptions.TryCatch[error](func() { Log(Const(g, []float32{1, -1})) })
	require.ErrorAs(t, err, &tsErr)

	// Off is the default: the same graph builds fine.
	g2 := New("domain-off")
	y := g2.Parameter("y", shapes.Make(dtypes.Float32, 3))
	assert.NotPanics(t, func() { Div(y, ScalarZero(g2, dtypes.Float32)) })
}

func TestSharedVar(t *testing.T) {
	counter := NewShared("counter", tensors.FromScalar(int64(7)))
	assert.Equal(t, "counter", counter.Name())
	assert.True(t, counter.Shape().Equal(shapes.Make(dtypes.Int64)))

	g := New("shared")
	read := g.ReadShared(counter)
	assert.Equal(t, ops.OpTypeSharedRead, read.Type())
	assert.Same(t, counter, read.SharedVar())
	// Repeated reads share a node.
	assert.Same(t, read, g.ReadShared(counter))

	// SetValue keeps the shape.
	err := exceptions.TryCatch[error](func() {
		counter.SetValue(tensors.FromScalar(float32(1)))
	})
	require.Error(t, err)
}

func TestGraphString(t *testing.T) {
	g := New("str")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 2))
	y := Add(x, Scalar(g, dtypes.Float32, 1))
	y.SetLogged("y")
	s := g.String()
	assert.Contains(t, s, "Parameter(\"x\")")
	assert.Contains(t, s, "Add")
	assert.Contains(t, s, "[Logged]")
}

func TestFusedExpr(t *testing.T) {
	g := New("fused")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 4))
	y := g.Parameter("y", shapes.Make(dtypes.Float32, 4))
	program := &FusedProgram{
		NumInputs: 2,
		Instructions: []FusedInstruction{
			{Op: ops.OpTypeMul, Arg0: 0, Arg1: 1},
			{Op: ops.OpTypeNeg, Arg0: 2},
		},
	}
	node := FusedExpr(program, x, y)
	assert.Equal(t, ops.OpTypeFusedExpr, node.Type())
	assert.True(t, node.Shape().Equal(x.Shape()))
	assert.Same(t, program, node.FusedProgram())

	// Input count must match the program.
	err := exceptions.TryCatch[error](func() { FusedExpr(program, x) })
	require.Error(t, err)
}
