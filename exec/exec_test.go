package exec

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/rewrite"
	"github.com/gomlx/symgraph/types/shapes"
	"github.com/gomlx/symgraph/types/tensors"
)

// compileAndCall is the common test path: compile the graph for its outputs
// and invoke it once.
func compileAndCall(t *testing.T, config *Config, inputs ...*tensors.Tensor) []*tensors.Tensor {
	t.Helper()
	fn, err := config.Compile()
	require.NoError(t, err)
	outputs, err := fn.Call(inputs...)
	require.NoError(t, err)
	return outputs
}

func TestAxpy(t *testing.T) {
	g := graph.New("axpy")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 4))
	y := g.Parameter("y", shapes.Make(dtypes.Float32, 4))
	out := graph.Add(graph.Mul(graph.Scalar(g, dtypes.Float32, 2), x), y)

	results := compileAndCall(t, NewConfig(g).WithOutputs(out),
		tensors.FromAnyValue([]float32{1, 2, 3, 4}),
		tensors.FromAnyValue([]float32{10, 20, 30, 40}))
	require.Len(t, results, 1)
	assert.Equal(t, []float32{12, 24, 36, 48}, tensors.FlatOf[float32](results[0]))
}

func TestElementwiseAndComparisons(t *testing.T) {
	g := graph.New("elementwise")
	x := g.Parameter("x", shapes.Make(dtypes.Float64, 5))
	bigger := graph.GreaterThan(x, graph.Scalar(g, dtypes.Float64, 2))
	clipped := graph.Where(bigger, graph.Scalar(g, dtypes.Float64, 2), x)
	negated := graph.Neg(clipped)

	results := compileAndCall(t, NewConfig(g).WithOutputs(bigger, clipped, negated),
		tensors.FromAnyValue([]float64{0, 1, 2, 3, 4}))
	assert.Equal(t, []bool{false, false, false, true, true}, tensors.FlatOf[bool](results[0]))
	assert.Equal(t, []float64{0, 1, 2, 2, 2}, tensors.FlatOf[float64](results[1]))
	assert.Equal(t, []float64{0, -1, -2, -2, -2}, tensors.FlatOf[float64](results[2]))
}

func TestReductions(t *testing.T) {
	g := graph.New("reductions")
	x := g.Parameter("x", shapes.Make(dtypes.Int64, 2, 3))
	total := graph.ReduceSum(x)
	perRow := graph.ReduceSum(x, 1)
	perCol := graph.ReduceMax(x, 0)

	results := compileAndCall(t, NewConfig(g).WithOutputs(total, perRow, perCol),
		tensors.FromAnyValue([][]int64{{1, 2, 3}, {4, 5, 6}}))
	assert.Equal(t, int64(21), results[0].Value())
	assert.Equal(t, []int64{6, 15}, tensors.FlatOf[int64](results[1]))
	assert.Equal(t, []int64{4, 5, 6}, tensors.FlatOf[int64](results[2]))
}

func TestShapeKernels(t *testing.T) {
	g := graph.New("shape-kernels")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 2, 3))
	reshaped := graph.Reshape(x, 3, 2)
	sliced := graph.Slice(x, []int{0, 1}, []int{2, 3})
	concat := graph.Concatenate(0, x, x)
	broadcast := graph.BroadcastToDims(graph.Scalar(g, dtypes.Float32, 7), 2, 2)
	iota := graph.IotaFull(g, dtypes.Int32, 4)

	results := compileAndCall(t,
		NewConfig(g).WithOutputs(reshaped, sliced, concat, broadcast, iota),
		tensors.FromAnyValue([][]float32{{1, 2, 3}, {4, 5, 6}}))
	assert.True(t, results[0].Shape().Equal(shapes.Make(dtypes.Float32, 3, 2)))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, tensors.FlatOf[float32](results[0]))
	assert.Equal(t, []float32{2, 3, 5, 6}, tensors.FlatOf[float32](results[1]))
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 1, 2, 3, 4, 5, 6}, tensors.FlatOf[float32](results[2]))
	assert.Equal(t, []float32{7, 7, 7, 7}, tensors.FlatOf[float32](results[3]))
	assert.Equal(t, []int32{0, 1, 2, 3}, tensors.FlatOf[int32](results[4]))
}

func TestConvertDTypeKernel(t *testing.T) {
	g := graph.New("convert")
	x := g.Parameter("x", shapes.Make(dtypes.Float64, 4))
	asInt := graph.ConvertDType(x, dtypes.Int32)
	asBool := graph.ConvertDType(x, dtypes.Bool)

	results := compileAndCall(t, NewConfig(g).WithOutputs(asInt, asBool),
		tensors.FromAnyValue([]float64{0, 1.7, -2.3, 4}))
	assert.Equal(t, []int32{0, 1, -2, 4}, tensors.FlatOf[int32](results[0]))
	assert.Equal(t, []bool{false, true, true, true}, tensors.FlatOf[bool](results[1]))
}

func TestFloat16(t *testing.T) {
	g := graph.New("f16")
	x := g.Parameter("x", shapes.Make(dtypes.Float16, 3))
	out := graph.Add(graph.Mul(x, x), graph.ScalarOne(g, dtypes.Float16))

	input := tensors.FromAnyValue([]float16.Float16{
		float16.Fromfloat32(1), float16.Fromfloat32(2), float16.Fromfloat32(3),
	})
	results := compileAndCall(t, NewConfig(g).WithOutputs(out), input)
	flat := tensors.FlatOf[float16.Float16](results[0])
	assert.Equal(t, float32(2), flat[0].Float32())
	assert.Equal(t, float32(5), flat[1].Float32())
	assert.Equal(t, float32(10), flat[2].Float32())
}

// buildMixedGraph is a graph exercising simplification, fusion and in-place
// opportunities at once.
func buildMixedGraph() (*graph.Graph, *graph.Node) {
	g := graph.New("mixed")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 16))
	y := g.Parameter("y", shapes.Make(dtypes.Float32, 16))
	a := graph.Mul(graph.Add(x, y), graph.ScalarOne(g, dtypes.Float32))
	b := graph.Tanh(graph.Neg(graph.Neg(a)))
	c := graph.Add(graph.Exp(graph.Sub(b, y)), graph.Mul(b, b))
	out := graph.Sub(graph.ReduceSum(c), graph.ReduceMax(graph.Abs(c)))
	return g, out
}

func TestOptimizationPreservesSemantics(t *testing.T) {
	xT := tensors.FromAnyValue([]float32{
		0.5, -1, 2, 0, 3.5, -0.25, 1, 4, -2, 0.125, 7, -3, 0.75, 1.5, -0.5, 2.25})
	yT := tensors.FromAnyValue([]float32{
		1, 2, -1, 0.5, -2, 3, 0.25, -0.75, 1.5, 2.5, -3, 0, 4, -1.25, 0.5, 1})

	var reference []float32
	for _, level := range []rewrite.OptimizationLevel{
		rewrite.OptimizationNone, rewrite.OptimizationSimplify,
		rewrite.OptimizationStandard, rewrite.OptimizationAggressive,
	} {
		t.Run(level.String(), func(t *testing.T) {
			g, out := buildMixedGraph()
			results := compileAndCall(t,
				NewConfig(g).WithOutputs(out).WithOptimization(level), xT, yT)
			got := tensors.FlatOf[float32](results[0])
			if reference == nil {
				reference = got
				return
			}
			assert.InDeltaSlice(t, reference, got, 1e-4)
		})
	}
}

func TestInterpretedMatchesCompiled(t *testing.T) {
	xT := tensors.FromAnyValue([]float32{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})
	yT := tensors.FromAnyValue([]float32{
		-1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1, -1, 1})

	g1, out1 := buildMixedGraph()
	interpreted := compileAndCall(t,
		NewConfig(g1).WithOutputs(out1).WithMode(ExecutionInterpreted), xT, yT)
	g2, out2 := buildMixedGraph()
	compiled := compileAndCall(t,
		NewConfig(g2).WithOutputs(out2).WithMode(ExecutionCompiled), xT, yT)
	assert.True(t, interpreted[0].Equal(compiled[0]))
}

func TestVerifyMode(t *testing.T) {
	g, out := buildMixedGraph()
	xT := tensors.FromAnyValue([]float32{
		0.5, -1, 2, 0, 3.5, -0.25, 1, 4, -2, 0.125, 7, -3, 0.75, 1.5, -0.5, 2.25})
	yT := tensors.FromAnyValue([]float32{
		1, 2, -1, 0.5, -2, 3, 0.25, -0.75, 1.5, 2.5, -3, 0, 4, -1.25, 0.5, 1})
	results := compileAndCall(t,
		NewConfig(g).WithOutputs(out).WithMode(ExecutionVerify).
			WithOptimization(rewrite.OptimizationAggressive), xT, yT)
	require.Len(t, results, 1)
	assert.True(t, results[0].Shape().IsScalar())
}

func TestParallelExecution(t *testing.T) {
	xT := tensors.FromAnyValue([]float32{
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})
	yT := tensors.FromAnyValue([]float32{
		16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1})

	g1, out1 := buildMixedGraph()
	sequential := compileAndCall(t, NewConfig(g1).WithOutputs(out1), xT, yT)
	g2, out2 := buildMixedGraph()
	parallel := compileAndCall(t,
		NewConfig(g2).WithOutputs(out2).WithParallelism(4), xT, yT)
	assert.True(t, sequential[0].Equal(parallel[0]))
}

func TestInplaceAliasingSafety(t *testing.T) {
	// Deliberate multi-consumer sharing: a is read by b and again by c, which
	// also depends on b. If b overwrote a's buffer, c would read garbage.
	g := graph.New("aliasing")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 4))
	a := graph.Add(x, graph.ScalarOne(g, dtypes.Float32))
	b := graph.Neg(a)
	c := graph.Mul(b, a)

	results := compileAndCall(t,
		NewConfig(g).WithOutputs(c).WithOptimization(rewrite.OptimizationStandard),
		tensors.FromAnyValue([]float32{1, 2, 3, 4}))
	assert.Equal(t, []float32{-4, -9, -16, -25}, tensors.FlatOf[float32](results[0]))
}

func TestWithInplaceDisabled(t *testing.T) {
	g := graph.New("no-inplace")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 4))
	out := graph.Neg(graph.Exp(x))

	fn, err := NewConfig(g).WithOutputs(out).WithInplace(false).Compile()
	require.NoError(t, err)
	fn.Graph().Nodes(func(node *graph.Node) {
		assert.Equal(t, graph.NoInplace, node.InplaceInput())
	})

	results, err := fn.Call(tensors.FromAnyValue([]float32{0, 0, 0, 0}))
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, -1, -1, -1}, tensors.FlatOf[float32](results[0]))
}

func TestSharedVarUpdates(t *testing.T) {
	weights := graph.NewShared("weights", tensors.FromAnyValue([]float32{1, 2, 3}))
	g := graph.New("update")
	grad := g.Parameter("grad", shapes.Make(dtypes.Float32, 3))
	updated := graph.Sub(g.ReadShared(weights), grad)

	fn, err := NewConfig(g).WithOutputs(updated).WithUpdate(weights, updated).Compile()
	require.NoError(t, err)

	results, err := fn.Call(tensors.FromAnyValue([]float32{1, 1, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 2}, tensors.FlatOf[float32](results[0]))
	assert.Equal(t, []float32{0, 1, 2}, tensors.FlatOf[float32](weights.Value()))

	// State persists: a second call continues from the updated value.
	_, err = fn.Call(tensors.FromAnyValue([]float32{1, 1, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float32{-1, 0, 1}, tensors.FlatOf[float32](weights.Value()))
}

func TestIntegerDivisionByZeroIsAnError(t *testing.T) {
	g := graph.New("div-by-zero")
	x := g.Parameter("x", shapes.Make(dtypes.Int32, 2))
	y := g.Parameter("y", shapes.Make(dtypes.Int32, 2))
	out := graph.Div(x, y)

	fn, err := NewConfig(g).WithOutputs(out).Compile()
	require.NoError(t, err)
	_, err = fn.Call(
		tensors.FromAnyValue([]int32{1, 2}),
		tensors.FromAnyValue([]int32{1, 0}))
	require.Error(t, err)
}

func TestCallValidation(t *testing.T) {
	g := graph.New("validation")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 2))
	fn, err := NewConfig(g).WithOutputs(graph.Neg(x)).Compile()
	require.NoError(t, err)

	_, err = fn.Call()
	assert.ErrorContains(t, err, "parameters")

	_, err = fn.Call(tensors.FromAnyValue([]float32{1, 2, 3}))
	assert.ErrorContains(t, err, "wants")

	_, err = fn.Call(nil)
	assert.ErrorContains(t, err, "nil")
}

func TestCompileValidation(t *testing.T) {
	g := graph.New("no-outputs")
	g.Parameter("x", shapes.Make(dtypes.Float32, 2))
	_, err := NewConfig(g).Compile()
	assert.ErrorContains(t, err, "no outputs")
}

func TestNodeHook(t *testing.T) {
	g := graph.New("hook")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 4))
	out := graph.Add(graph.Exp(x), x)

	var seen int
	fn, err := NewConfig(g).WithOutputs(out).
		WithNodeHook(func(stats NodeStats) { seen++ }).Compile()
	require.NoError(t, err)
	_, err = fn.Call(tensors.FromAnyValue([]float32{1, 2, 3, 4}))
	require.NoError(t, err)
	assert.Equal(t, fn.Graph().NumNodes(), seen)
}

func TestFusedExecution(t *testing.T) {
	g := graph.New("fused-exec")
	x := g.Parameter("x", shapes.Make(dtypes.Float64, 3))
	out := graph.Neg(graph.Mul(graph.Add(x, x), x))

	results := compileAndCall(t,
		NewConfig(g).WithOutputs(out).WithOptimization(rewrite.OptimizationAggressive),
		tensors.FromAnyValue([]float64{1, 2, 3}))
	assert.Equal(t, []float64{-2, -8, -18}, tensors.FlatOf[float64](results[0]))
}
