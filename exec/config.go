// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package exec compiles computation graphs (package graph) into callable
// functions and executes them on host memory.
//
// Compile takes a Config naming the graph's outputs (and optionally shared
// variable updates), runs the rewrite pipeline (package rewrite) and returns a
// CompiledFunction. Calling it binds concrete tensors to the graph parameters
// and produces the output tensors:
//
//	g := graph.New("axpy")
//	x := g.Parameter("x", shapes.Make(dtypes.Float32, 100))
//	y := g.Parameter("y", shapes.Make(dtypes.Float32, 100))
//	out := graph.Add(graph.Mul(x, graph.Scalar(g, dtypes.Float32, 2)), y)
//	fn, err := exec.NewConfig(g).WithOutputs(out).Compile()
//	...
//	results, err := fn.Call(xT, yT)
//
// Two execution engines are provided: ExecutionInterpreted walks the graph
// dispatching one operation at a time, ExecutionCompiled (the default) lowers
// it once into a flat list of pre-bound closures. ExecutionVerify runs both
// and compares every intermediate value, reporting the first divergence --
// slow, but invaluable when debugging rewrite passes or new kernels.
package exec

import (
	"time"

	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/rewrite"
)

// ExecutionMode selects the execution engine of a CompiledFunction.
type ExecutionMode int

//go:generate go tool enumer -type=ExecutionMode -trimprefix=Execution -output=gen_executionmode_enumer.go config.go

const (
	// ExecutionInterpreted dispatches one graph node at a time, resolving the
	// kernel and operand buffers on every call.
	ExecutionInterpreted ExecutionMode = iota

	// ExecutionCompiled pre-binds each node to a closure with resolved kernel
	// and buffer slots at compile time. The default.
	ExecutionCompiled

	// ExecutionVerify runs both engines and compares every intermediate
	// value, returning a *DivergenceError on the first mismatch.
	ExecutionVerify
)

// Retention is how a scan loop stores the per-step values of one of its
// outputs during execution.
type Retention int

//go:generate go tool enumer -type=Retention -trimprefix=Retain -output=gen_retention_enumer.go config.go

const (
	// RetainWindow keeps only the last few steps in a ring, as many as the
	// output's taps reach back. Used when only the final value is read.
	RetainWindow Retention = iota

	// RetainAll materializes every step into the output's history tensor.
	RetainAll
)

// NodeStats is handed to the node hook after each node executes.
type NodeStats struct {
	Node     *graph.Node
	Duration time.Duration

	// OutputBytes is the memory held by the node's output buffer.
	OutputBytes uintptr
}

// NodeHook observes node executions; see Config.WithNodeHook. It may be
// called concurrently when parallelism is enabled.
type NodeHook func(stats NodeStats)

// sharedUpdate pairs a shared variable with the node whose value it takes
// when a call completes.
type sharedUpdate struct {
	variable *graph.SharedVar
	value    *graph.Node
}

// Config assembles everything needed to compile a graph. Create it with
// NewConfig, chain the With* options and finish with Compile.
type Config struct {
	graph       *graph.Graph
	outputs     []*graph.Node
	updates     []sharedUpdate
	mode        ExecutionMode
	level       rewrite.OptimizationLevel
	extraPasses []rewrite.Pass
	noInplace   bool
	parallelism int
	hook        NodeHook
}

// NewConfig starts the compilation of g with the default settings:
// ExecutionCompiled, rewrite.OptimizationStandard, sequential execution.
func NewConfig(g *graph.Graph) *Config {
	g.AssertValid()
	return &Config{
		graph: g,
		mode:  ExecutionCompiled,
		level: rewrite.OptimizationStandard,
	}
}

// WithOutputs declares the nodes whose values Call returns, in order.
func (c *Config) WithOutputs(outputs ...*graph.Node) *Config {
	c.outputs = append(c.outputs, outputs...)
	return c
}

// WithUpdate declares that the shared variable takes the node's value when a
// call completes. Updates are applied after all outputs are computed, in
// declaration order, and after any scan-internal updates.
func (c *Config) WithUpdate(sv *graph.SharedVar, value *graph.Node) *Config {
	c.updates = append(c.updates, sharedUpdate{variable: sv, value: value})
	return c
}

// WithMode selects the execution engine.
func (c *Config) WithMode(mode ExecutionMode) *Config {
	c.mode = mode
	return c
}

// WithOptimization selects which rewrite passes run before execution.
func (c *Config) WithOptimization(level rewrite.OptimizationLevel) *Config {
	c.level = level
	return c
}

// WithPass appends a custom rewrite pass after the standard pipeline.
func (c *Config) WithPass(pass rewrite.Pass) *Config {
	c.extraPasses = append(c.extraPasses, pass)
	return c
}

// WithInplace enables or disables the in-place buffer reuse pass,
// independently of the optimization level. Enabled by default for levels that
// include it; disabling forces every node into a fresh buffer.
func (c *Config) WithInplace(enabled bool) *Config {
	c.noInplace = !enabled
	return c
}

// WithParallelism allows up to n nodes to execute concurrently; n <= 0 keeps
// execution sequential. Scheduling respects both data dependencies and the
// ordering imposed by in-place buffer reuse.
func (c *Config) WithParallelism(n int) *Config {
	c.parallelism = n
	return c
}

// WithNodeHook registers a hook called after each node executes, with its
// duration and output size. See LoggingNodeHook for a ready-made one.
func (c *Config) WithNodeHook(hook NodeHook) *Config {
	c.hook = hook
	return c
}
