package rewrite

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/types/shapes"
	"github.com/gomlx/symgraph/types/tensors"
)

func applyInplace(t *testing.T, g *graph.Graph, roots ...*graph.Node) {
	t.Helper()
	_, _, err := Inplace().Apply(g, roots)
	require.NoError(t, err)
}

func TestInplaceSingleConsumer(t *testing.T) {
	g := graph.New("single-consumer")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 8))
	a := graph.Add(x, graph.ScalarOne(g, dtypes.Float32))
	c := graph.Neg(a)

	applyInplace(t, g, c)
	// a can't overwrite the caller-owned parameter, c can overwrite a.
	assert.Equal(t, graph.NoInplace, a.InplaceInput())
	assert.Equal(t, 0, c.InplaceInput())
}

func TestInplaceNeverClaimsLeaves(t *testing.T) {
	counter := graph.NewShared("state", tensors.FromShape(shapes.Make(dtypes.Float32, 8)))
	g := graph.New("leaves")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 8))
	fromConst := graph.Neg(graph.Const(g, make([]float32, 8)))
	fromShared := graph.Neg(g.ReadShared(counter))
	fromParam := graph.Neg(x)

	applyInplace(t, g, fromConst, fromShared, fromParam)
	assert.Equal(t, graph.NoInplace, fromConst.InplaceInput())
	assert.Equal(t, graph.NoInplace, fromShared.InplaceInput())
	assert.Equal(t, graph.NoInplace, fromParam.InplaceInput())
}

func TestInplaceNeverClaimsRoots(t *testing.T) {
	g := graph.New("roots")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 8))
	a := graph.Add(x, graph.ScalarOne(g, dtypes.Float32))
	b := graph.Neg(a)

	// a is itself an output: its buffer must survive until the call returns.
	applyInplace(t, g, a, b)
	assert.Equal(t, graph.NoInplace, b.InplaceInput())
}

func TestInplaceMultiConsumerSafety(t *testing.T) {
	g := graph.New("multi-consumer")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 8))
	a := graph.Add(x, graph.ScalarOne(g, dtypes.Float32))
	b := graph.Neg(a)
	c := graph.Mul(b, a)

	applyInplace(t, g, c)
	// b must not overwrite a: c, which depends on b, still reads a.
	assert.Equal(t, graph.NoInplace, b.InplaceInput())
	// c may overwrite b, its consumer-free operand.
	assert.Equal(t, 0, c.InplaceInput())
}

func TestInplaceSingleWriterPerBuffer(t *testing.T) {
	g := graph.New("single-writer")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 8))
	a := graph.Add(x, graph.ScalarOne(g, dtypes.Float32))
	b := graph.Neg(a)
	c := graph.Abs(a)

	applyInplace(t, g, graph.Add(b, c))
	// Only one of the two independent readers of a may claim its buffer.
	claims := 0
	if b.InplaceInput() == 0 {
		claims++
	}
	if c.InplaceInput() == 0 {
		claims++
	}
	assert.Equal(t, 1, claims)
}

func TestInplaceShapeMustMatch(t *testing.T) {
	g := graph.New("shape-mismatch")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 8))
	total := graph.ReduceSum(graph.Exp(x))
	out := graph.Neg(total)

	applyInplace(t, g, out)
	// total is a reduction output: Neg's shape matches, so it may claim it.
	assert.Equal(t, 0, out.InplaceInput())
	// The reduction itself changes shape and is never in-place.
	assert.Equal(t, graph.NoInplace, total.InplaceInput())
}
