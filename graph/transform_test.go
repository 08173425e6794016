package graph

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/types/shapes"
)

func TestTransformDeepCopy(t *testing.T) {
	g := New("copy")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 3))
	y := g.Parameter("y", shapes.Make(dtypes.Float32, 3))
	out := Add(Mul(x, y), ScalarOne(g, dtypes.Float32))
	out.SetLogged("sum")

	dst, newRoots := TransformGraph(g, []*Node{out}, nil)
	require.Len(t, newRoots, 1)
	assert.NotSame(t, g, dst)
	assert.Equal(t, g.NumNodes(), dst.NumNodes())
	assert.Equal(t, ops.OpTypeAdd, newRoots[0].Type())
	assert.Equal(t, "sum", newRoots[0].LogMessage())

	// Parameter handles are preserved.
	assert.Equal(t, 2, dst.NumParameters())
	assert.Equal(t, "x", dst.ParameterByIndex(0).ParameterName())
	assert.Equal(t, "y", dst.ParameterByIndex(1).ParameterName())
}

func TestTransformReplacement(t *testing.T) {
	g := New("replace")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 3))
	out := Mul(Neg(Neg(x)), Const(g, []float32{2, 2, 2}))

	// Rewrite Neg(Neg(v)) to v.
	dst, newRoots := TransformGraph(g, []*Node{out}, func(b *TransformBuilder, node *Node) *Node {
		if node.Type() == ops.OpTypeNeg && node.Inputs()[0].Type() == ops.OpTypeNeg {
			return b.Map(node.Inputs()[0].Inputs()[0])
		}
		return nil
	})
	root := newRoots[0]
	assert.Equal(t, ops.OpTypeMul, root.Type())
	assert.Equal(t, ops.OpTypeParameter, root.Inputs()[0].Type())
	// Both Neg nodes were dropped on the floor.
	assert.Equal(t, g.NumNodes()-2, dst.NumNodes())
}

func TestTransformDropsOrphans(t *testing.T) {
	g := New("orphans")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 3))
	kept := Add(x, x)
	Exp(Tanh(kept)) // Not reachable from the mapped root.

	dst, newRoots := TransformGraph(g, []*Node{kept}, nil)
	assert.Equal(t, ops.OpTypeAdd, newRoots[0].Type())
	assert.Equal(t, 2, dst.NumNodes())
}

func TestTransformRecursesIntoScan(t *testing.T) {
	g := New("scan-transform")
	seq := g.Parameter("seq", shapes.Make(dtypes.Float32, 4))
	results := NewScan(g, "loop").
		WithSequence(seq).
		Run(func(cell *ScanCell) []*Node {
			v := cell.SequenceTap(0)
			return []*Node{Neg(Neg(v))}
		})
	last := results.Last(0)

	negs := 0
	_, newRoots := TransformGraph(g, []*Node{last}, func(b *TransformBuilder, node *Node) *Node {
		if node.Type() == ops.OpTypeNeg && node.Inputs()[0].Type() == ops.OpTypeNeg {
			negs++
			return b.Map(node.Inputs()[0].Inputs()[0])
		}
		return nil
	})
	assert.Equal(t, 1, negs)

	newSpec := newRoots[0].Inputs()[0].ScanSpec()
	assert.Equal(t, ops.OpTypeParameter, newSpec.Outputs[0].Result.Type())
	assert.NotSame(t, results.Scan().ScanSpec().Step, newSpec.Step)
}
