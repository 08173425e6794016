package rewrite

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/types/shapes"
)

// simplifyRoot applies the simplify pass to a single root and returns the
// rewritten root.
func simplifyRoot(t *testing.T, g *graph.Graph, root *graph.Node) *graph.Node {
	t.Helper()
	_, newRoots, err := Simplify().Apply(g, []*graph.Node{root})
	require.NoError(t, err)
	require.Len(t, newRoots, 1)
	return newRoots[0]
}

func TestSimplifyNeutralElements(t *testing.T) {
	testCases := []struct {
		name  string
		build func(g *graph.Graph, x *graph.Node) *graph.Node
	}{
		{"add-zero", func(g *graph.Graph, x *graph.Node) *graph.Node {
			return graph.Add(x, graph.ScalarZero(g, dtypes.Float32))
		}},
		{"zero-add", func(g *graph.Graph, x *graph.Node) *graph.Node {
			return graph.Add(graph.ScalarZero(g, dtypes.Float32), x)
		}},
		{"sub-zero", func(g *graph.Graph, x *graph.Node) *graph.Node {
			return graph.Sub(x, graph.ScalarZero(g, dtypes.Float32))
		}},
		{"mul-one", func(g *graph.Graph, x *graph.Node) *graph.Node {
			return graph.Mul(x, graph.ScalarOne(g, dtypes.Float32))
		}},
		{"div-one", func(g *graph.Graph, x *graph.Node) *graph.Node {
			return graph.Div(x, graph.ScalarOne(g, dtypes.Float32))
		}},
		{"pow-one", func(g *graph.Graph, x *graph.Node) *graph.Node {
			return graph.Pow(x, graph.ScalarOne(g, dtypes.Float32))
		}},
		{"mul-one-vector", func(g *graph.Graph, x *graph.Node) *graph.Node {
			return graph.Mul(x, graph.Const(g, []float32{1, 1, 1}))
		}},
		{"identity", func(g *graph.Graph, x *graph.Node) *graph.Node {
			return graph.Identity(x)
		}},
		{"neg-neg", func(g *graph.Graph, x *graph.Node) *graph.Node {
			return graph.Neg(graph.Neg(x))
		}},
		{"exp-log", func(g *graph.Graph, x *graph.Node) *graph.Node {
			return graph.Exp(graph.Log(x))
		}},
		{"log-exp", func(g *graph.Graph, x *graph.Node) *graph.Node {
			return graph.Log(graph.Exp(x))
		}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			g := graph.New(testCase.name)
			x := g.Parameter("x", shapes.Make(dtypes.Float32, 3))
			root := simplifyRoot(t, g, testCase.build(g, x))
			assert.Equal(t, ops.OpTypeParameter, root.Type())
			assert.Equal(t, "x", root.ParameterName())
		})
	}
}

func TestSimplifyAbsorbingElements(t *testing.T) {
	g := graph.New("absorb")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 3))

	// x*0 folds to a constant zero of x's shape.
	root := simplifyRoot(t, g, graph.Mul(x, graph.ScalarZero(g, dtypes.Float32)))
	assert.Equal(t, ops.OpTypeBroadcastToDims, root.Type())
	assert.True(t, root.Shape().Equal(x.Shape()))
	assert.Equal(t, ops.OpTypeConstant, root.Inputs()[0].Type())

	// x^0 folds to a constant one.
	root = simplifyRoot(t, g, graph.Pow(x, graph.ScalarZero(g, dtypes.Float32)))
	assert.Equal(t, ops.OpTypeBroadcastToDims, root.Type())

	// 0-x becomes Neg(x) only when shapes allow it.
	root = simplifyRoot(t, g, graph.Sub(graph.Const(g, []float32{0, 0, 0}), x))
	assert.Equal(t, ops.OpTypeNeg, root.Type())
	assert.Equal(t, ops.OpTypeParameter, root.Inputs()[0].Type())
}

func TestSimplifyKeepsShape(t *testing.T) {
	g := graph.New("keep-shape")
	x := g.Parameter("x", shapes.Make(dtypes.Float32))

	// scalar + zero-vector: removing the Add would change the shape.
	zeros := graph.Const(g, []float32{0, 0, 0})
	root := simplifyRoot(t, g, graph.Add(x, zeros))
	assert.Equal(t, ops.OpTypeAdd, root.Type())
}

func TestSimplifyLeavesLoggedNodes(t *testing.T) {
	g := graph.New("logged")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 3))
	out := graph.Mul(x, graph.ScalarOne(g, dtypes.Float32))
	out.SetLogged("watch")

	root := simplifyRoot(t, g, out)
	assert.Equal(t, ops.OpTypeMul, root.Type())
	assert.Equal(t, "watch", root.LogMessage())
}

func TestSimplifyInsideScan(t *testing.T) {
	g := graph.New("scan-simplify")
	seq := g.Parameter("seq", shapes.Make(dtypes.Float32, 4))
	results := graph.NewScan(g, "loop").
		WithSequence(seq).
		Run(func(cell *graph.ScanCell) []*graph.Node {
			step := cell.Graph()
			return []*graph.Node{graph.Mul(cell.SequenceTap(0), graph.ScalarOne(step, dtypes.Float32))}
		})

	root := simplifyRoot(t, g, results.Output(0))
	spec := root.Inputs()[0].ScanSpec()
	assert.Equal(t, ops.OpTypeParameter, spec.Outputs[0].Result.Type())
}

func TestPipelineLevels(t *testing.T) {
	assert.Empty(t, NewPipeline(OptimizationNone).Passes())

	names := func(p *Pipeline) (out []string) {
		for _, pass := range p.Passes() {
			out = append(out, pass.Name())
		}
		return
	}
	assert.Equal(t, []string{"simplify"}, names(NewPipeline(OptimizationSimplify)))
	assert.Equal(t, []string{"simplify", "inplace"}, names(NewPipeline(OptimizationStandard)))
	assert.Equal(t, []string{"simplify", "fuse", "inplace"}, names(NewPipeline(OptimizationAggressive)))
}
