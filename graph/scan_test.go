package graph

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomlx/symgraph/types/shapes"
	"github.com/gomlx/symgraph/types/tensors"
)

func TestScanDerivedSteps(t *testing.T) {
	g := New("scan-steps")
	a := g.Parameter("a", shapes.Make(dtypes.Float32, 5))
	b := g.Parameter("b", shapes.Make(dtypes.Float32, 3))
	c := g.Parameter("c", shapes.Make(dtypes.Float32, 7))

	results := NewScan(g, "shortest").
		WithSequence(a).
		WithSequence(b).
		WithSequence(c).
		Run(func(cell *ScanCell) []*Node {
			return []*Node{Add(Add(cell.SequenceTap(0), cell.SequenceTap(1)), cell.SequenceTap(2))}
		})

	spec := results.Scan().ScanSpec()
	assert.Equal(t, 3, spec.NumSteps)
	assert.Equal(t, 0, spec.T0)
	assert.True(t, results.Output(0).Shape().Equal(shapes.Make(dtypes.Float32, 3)))
	assert.True(t, results.Last(0).IsScalar())
}

func TestScanSequenceTapsShiftStart(t *testing.T) {
	g := New("scan-taps")
	seq := g.Parameter("seq", shapes.Make(dtypes.Float32, 10))

	results := NewScan(g, "window").
		WithSequence(seq, 0, -2).
		Run(func(cell *ScanCell) []*Node {
			taps := cell.SequenceTaps(0)
			return []*Node{Sub(taps[0], taps[1])}
		})

	spec := results.Scan().ScanSpec()
	// The -2 tap forces the loop to start at t0=2: 10-0-2 = 8 steps.
	assert.Equal(t, 2, spec.T0)
	assert.Equal(t, 8, spec.NumSteps)
	assert.Equal(t, []int{0, -2}, spec.Sequences[0].Taps)
}

func TestScanExplicitSteps(t *testing.T) {
	g := New("scan-explicit")
	seq := g.Parameter("seq", shapes.Make(dtypes.Float32, 5))

	results := NewScan(g, "explicit").
		WithSequence(seq).
		WithNumSteps(4).
		Run(func(cell *ScanCell) []*Node {
			return []*Node{cell.SequenceTap(0)}
		})
	assert.Equal(t, 4, results.Scan().ScanSpec().NumSteps)

	// Explicit steps beyond the sequence length throw.
	err := exceptions.TryCatch[error](func() {
		NewScan(g, "too-long").
			WithSequence(seq).
			WithNumSteps(6).
			Run(func(cell *ScanCell) []*Node {
				return []*Node{cell.SequenceTap(0)}
			})
	})
	var twErr *TapWindowError
	require.ErrorAs(t, err, &twErr)
}

func TestScanOutputTaps(t *testing.T) {
	g := New("scan-out")
	init := Const(g, []float32{1, 1})

	results := NewScan(g, "fib").
		WithNumSteps(6).
		WithOutput(init, -1, -2).
		Run(func(cell *ScanCell) []*Node {
			taps := cell.OutputTaps(0)
			return []*Node{Add(taps[0], taps[1])}
		})

	spec := results.Scan().ScanSpec()
	require.Len(t, spec.Outputs, 1)
	assert.Equal(t, 2, spec.Outputs[0].Window)
	assert.True(t, results.Output(0).Shape().Equal(shapes.Make(dtypes.Float32, 6)))
}

func TestScanNonSequence(t *testing.T) {
	g := New("scan-nonseq")
	seq := g.Parameter("seq", shapes.Make(dtypes.Float32, 4))
	weights := g.Parameter("weights", shapes.Make(dtypes.Float32, 2))

	results := NewScan(g, "weighted").
		WithSequence(seq).
		WithNonSequence(weights).
		Run(func(cell *ScanCell) []*Node {
			return []*Node{Mul(cell.NonSequence(0), cell.SequenceTap(0))}
		})

	spec := results.Scan().ScanSpec()
	require.Len(t, spec.NonSeqs, 1)
	// The non-sequence arrives whole, not scanned over its leading axis.
	assert.True(t, spec.NonSeqs[0].Param.Shape().Equal(weights.Shape()))
	assert.Same(t, weights, results.Scan().Inputs()[spec.NonSeqs[0].Input])
	assert.True(t, results.Output(0).Shape().Equal(shapes.Make(dtypes.Float32, 4, 2)))
}

func TestScanSignatureErrors(t *testing.T) {
	g := New("scan-errors")
	seq := g.Parameter("seq", shapes.Make(dtypes.Float32, 5))
	var sigErr *ScanSignatureError
	var twErr *TapWindowError

	// No sequences and no explicit steps.
	err := exceptions.TryCatch[error](func() {
		NewScan(g, "").Run(func(cell *ScanCell) []*Node { return nil })
	})
	require.ErrorAs(t, err, &sigErr)

	// Positive sequence tap.
	err = exceptions.TryCatch[error](func() {
		NewScan(g, "").WithSequence(seq, 1).Run(func(cell *ScanCell) []*Node {
			return []*Node{cell.SequenceTap(0)}
		})
	})
	require.ErrorAs(t, err, &sigErr)

	// Output tap must be negative.
	err = exceptions.TryCatch[error](func() {
		NewScan(g, "").WithSequence(seq).WithOutput(Const(g, float32(0)), 0).
			Run(func(cell *ScanCell) []*Node { return []*Node{cell.OutputTap(0)} })
	})
	require.ErrorAs(t, err, &sigErr)

	// Taps reaching back 2 steps need an initial with a leading axis >= 2.
	err = exceptions.TryCatch[error](func() {
		NewScan(g, "").WithSequence(seq).WithOutput(Const(g, float32(0)), -1, -2).
			Run(func(cell *ScanCell) []*Node { return []*Node{cell.OutputTaps(0)[0]} })
	})
	require.ErrorAs(t, err, &twErr)

	// Wrong number of step results.
	err = exceptions.TryCatch[error](func() {
		NewScan(g, "").WithSequence(seq).Run(func(cell *ScanCell) []*Node { return nil })
	})
	require.ErrorAs(t, err, &sigErr)

	// Until predicate must be a scalar Bool.
	err = exceptions.TryCatch[error](func() {
		NewScan(g, "").WithSequence(seq).WithUntil().
			Run(func(cell *ScanCell) []*Node {
				return []*Node{cell.SequenceTap(0)}
			})
	})
	require.ErrorAs(t, err, &sigErr)
}

func TestScanShared(t *testing.T) {
	acc := NewShared("acc", tensors.FromScalar(float32(0)))
	g := New("scan-shared")
	seq := g.Parameter("seq", shapes.Make(dtypes.Float32, 4))

	results := NewScan(g, "accumulate").
		WithSequence(seq).
		Run(func(cell *ScanCell) []*Node {
			total := Add(cell.Read(acc), cell.SequenceTap(0))
			cell.Update(acc, total)
			return []*Node{total}
		})

	spec := results.Scan().ScanSpec()
	require.Len(t, spec.Shared, 1)
	assert.Same(t, acc, spec.Shared[0].Var)
	assert.NotSame(t, spec.Shared[0].Param, spec.Shared[0].Update)

	// The scan reads the variable's entry value through the outer graph.
	entry := results.Scan().Inputs()[spec.Shared[0].Input]
	assert.Same(t, acc, entry.SharedVar())
}
