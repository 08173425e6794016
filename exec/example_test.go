package exec_test

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"

	"github.com/gomlx/symgraph/exec"
	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/types/shapes"
	"github.com/gomlx/symgraph/types/tensors"
)

func Example() {
	g := graph.New("scale")
	x := g.Parameter("x", shapes.Make(dtypes.Float32, 4))
	out := graph.Mul(x, graph.Scalar(g, dtypes.Float32, 10))

	fn := must.M1(exec.NewConfig(g).WithOutputs(out).Compile())
	results := must.M1(fn.Call(tensors.FromAnyValue([]float32{1, 2, 3, 4})))
	fmt.Println(results[0].GoStr())
	// Output:
	// (Float32)[4]: [10 20 30 40]
}

func Example_scan() {
	g := graph.New("cumulative")
	values := g.Parameter("values", shapes.Make(dtypes.Float32, 5))
	results := graph.NewScan(g, "sum").
		WithSequence(values).
		WithOutput(graph.ScalarZero(g, dtypes.Float32), -1).
		Run(func(cell *graph.ScanCell) []*graph.Node {
			return []*graph.Node{graph.Add(cell.OutputTap(0), cell.SequenceTap(0))}
		})

	fn := must.M1(exec.NewConfig(g).WithOutputs(results.Output(0)).Compile())
	outputs := must.M1(fn.Call(tensors.FromAnyValue([]float32{1, 2, 3, 4, 5})))
	fmt.Println(outputs[0].GoStr())
	// Output:
	// (Float32)[5]: [1 3 6 10 15]
}
