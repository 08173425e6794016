// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/rewrite"
	"github.com/gomlx/symgraph/types/tensors"
)

// CompiledFunction is a graph lowered to an executable: the rewrite pipeline
// already ran, the execution order and buffer plan are fixed. Call it with one
// tensor per graph parameter, in parameter creation order.
//
// A CompiledFunction is safe for concurrent calls, except that concurrent
// calls updating the same shared variables race on the final values.
type CompiledFunction struct {
	source *graph.Graph
	graph  *graph.Graph

	outputs []*graph.Node
	updates []compiledUpdate

	mode        ExecutionMode
	parallelism int

	prog  *program
	steps []compiledStep
}

// compiledUpdate is a declared shared-variable update, with the value node
// mapped into the rewritten graph.
type compiledUpdate struct {
	variable *graph.SharedVar
	value    *graph.Node
}

// Compile runs the rewrite pipeline on the graph and lowers the result into a
// CompiledFunction.
func (c *Config) Compile() (*CompiledFunction, error) {
	if len(c.outputs) == 0 && len(c.updates) == 0 {
		return nil, errors.Errorf("compiling graph %q: no outputs and no updates declared", c.graph.Name())
	}
	for ii, output := range c.outputs {
		if output == nil {
			return nil, errors.Errorf("compiling graph %q: output #%d is nil", c.graph.Name(), ii)
		}
		if output.Graph() != c.graph {
			return nil, errors.Errorf("compiling graph %q: output #%d belongs to graph %q", c.graph.Name(), ii, output.Graph().Name())
		}
	}
	for ii, update := range c.updates {
		if update.variable == nil || update.value == nil {
			return nil, errors.Errorf("compiling graph %q: update #%d is incomplete", c.graph.Name(), ii)
		}
		if !update.value.Shape().Equal(update.variable.Shape()) {
			return nil, errors.Errorf("compiling graph %q: update #%d would set shared %q (shape %s) from a %s node",
				c.graph.Name(), ii, update.variable.Name(), update.variable.Shape(), update.value.Shape())
		}
	}

	roots := make([]*graph.Node, 0, len(c.outputs)+len(c.updates))
	roots = append(roots, c.outputs...)
	for _, update := range c.updates {
		roots = append(roots, update.value)
	}

	pipeline := rewrite.NewPipeline(c.level)
	if c.noInplace {
		filtered := &rewrite.Pipeline{}
		for _, pass := range pipeline.Passes() {
			if pass.Name() != rewrite.Inplace().Name() {
				filtered.Append(pass)
			}
		}
		pipeline = filtered
	}
	for _, pass := range c.extraPasses {
		pipeline.Append(pass)
	}
	var (
		rewritten *graph.Graph
		newRoots  []*graph.Node
		runErr    error
	)
	err := exceptions.TryCatch[error](func() {
		rewritten, newRoots, runErr = pipeline.Run(c.graph, roots)
	})
	if err == nil {
		err = runErr
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "rewriting graph %q", c.graph.Name())
	}

	prog, err := newProgram(rewritten, newRoots, newBufferPool())
	if err != nil {
		return nil, errors.WithMessagef(err, "lowering graph %q", c.graph.Name())
	}
	prog.hook = c.hook
	prog.parallelism = c.parallelism

	fn := &CompiledFunction{
		source:      c.graph,
		graph:       rewritten,
		outputs:     newRoots[:len(c.outputs)],
		mode:        c.mode,
		parallelism: c.parallelism,
		prog:        prog,
	}
	for ii, update := range c.updates {
		fn.updates = append(fn.updates, compiledUpdate{
			variable: update.variable,
			value:    newRoots[len(c.outputs)+ii],
		})
	}
	if c.mode != ExecutionInterpreted {
		fn.steps = compileSteps(prog)
	}
	return fn, nil
}

// Graph returns the rewritten graph the function executes. Useful to inspect
// what the optimization passes did.
func (f *CompiledFunction) Graph() *graph.Graph { return f.graph }

// Outputs returns the output nodes, in the rewritten graph.
func (f *CompiledFunction) Outputs() []*graph.Node { return f.outputs }

// Mode returns the execution engine the function runs with.
func (f *CompiledFunction) Mode() ExecutionMode { return f.mode }

// ScanRetention reports how each output of the given Scan node (in the
// rewritten graph) is stored during execution: RetainAll when its full
// history is read, RetainWindow when a ring of the tap window suffices. It
// returns nil if the node is not a Scan of this function.
func (f *CompiledFunction) ScanRetention(scan *graph.Node) []Retention {
	if scan.Graph() != f.graph {
		return nil
	}
	plan := f.prog.scans[scan.Id()]
	if plan == nil {
		return nil
	}
	return slices.Clone(plan.retention)
}

// String implements fmt.Stringer.
func (f *CompiledFunction) String() string {
	return fmt.Sprintf("CompiledFunction(%q, %s, %d nodes, %d outputs)",
		f.source.Name(), f.mode, len(f.prog.order), len(f.outputs))
}

// Call executes the function: one tensor per graph parameter, in creation
// order. It returns one tensor per declared output and applies the declared
// shared-variable updates (scan-internal updates first) once everything is
// computed.
//
// Runtime failures, including panics from the kernels (e.g. integer division
// by zero), are returned as errors.
func (f *CompiledFunction) Call(inputs ...*tensors.Tensor) ([]*tensors.Tensor, error) {
	var outputs []*tensors.Tensor
	var callErr error
	panicErr := exceptions.TryCatch[error](func() {
		outputs, callErr = f.call(inputs)
	})
	if panicErr != nil {
		return nil, errors.WithMessagef(panicErr, "calling %q", f.source.Name())
	}
	return outputs, callErr
}

func (f *CompiledFunction) call(inputs []*tensors.Tensor) ([]*tensors.Tensor, error) {
	numParams := f.graph.NumParameters()
	if len(inputs) != numParams {
		return nil, errors.Errorf("calling %q: %d inputs given, graph has %d parameters",
			f.source.Name(), len(inputs), numParams)
	}
	env := newExecEnv(f.prog, f.mode == ExecutionVerify)
	for ii := 0; ii < numParams; ii++ {
		param := f.graph.ParameterByIndex(ii)
		if inputs[ii] == nil {
			return nil, errors.Errorf("calling %q: input #%d (parameter %q) is nil",
				f.source.Name(), ii, param.ParameterName())
		}
		if !inputs[ii].Shape().Equal(param.Shape()) {
			return nil, errors.Errorf("calling %q: input #%d is %s, parameter %q wants %s",
				f.source.Name(), ii, inputs[ii].Shape(), param.ParameterName(), param.Shape())
		}
		env.bind(param, inputs[ii])
	}

	var err error
	switch {
	case f.mode == ExecutionVerify:
		err = env.runVerify(f.steps)
	case f.parallelism > 1:
		err = env.runParallel(f.parallelism)
	case f.mode == ExecutionCompiled:
		err = env.runCompiled(f.steps)
	default:
		err = env.runSequential()
	}
	if err != nil {
		return nil, err
	}

	outputs := make([]*tensors.Tensor, len(f.outputs))
	for ii, output := range f.outputs {
		outputs[ii] = env.detach(output)
	}
	for _, update := range env.pending {
		update.variable.SetValue(update.value)
	}
	for _, update := range f.updates {
		update.variable.SetValue(env.detach(update.value))
	}
	return outputs, nil
}
