// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package rewrite implements the graph optimization passes run before
// execution: algebraic simplification, elementwise fusion and in-place
// marking.
//
// Passes never mutate the graph they are given: each pass maps it into a
// fresh graph (see graph.TransformGraph), replacing the nodes it rewrites and
// carrying the rest over. The exception is the in-place pass, which only sets
// execution marks (Node.SetInplaceInput) on the final graph.
//
// Package exec assembles the standard Pipeline from an OptimizationLevel;
// custom passes can be appended for experimentation.
package rewrite

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/gomlx/symgraph/graph"
)

// OptimizationLevel selects which standard passes a Pipeline runs.
type OptimizationLevel int

//go:generate go tool enumer -type=OptimizationLevel -trimprefix=Optimization -output=gen_optimizationlevel_enumer.go rewrite.go

const (
	// OptimizationNone runs no rewrites: the graph executes as built.
	OptimizationNone OptimizationLevel = iota

	// OptimizationSimplify runs only the algebraic simplifications.
	OptimizationSimplify

	// OptimizationStandard runs simplification and in-place marking. This is
	// the default.
	OptimizationStandard

	// OptimizationAggressive additionally fuses chains of elementwise
	// operations into single FusedExpr nodes.
	OptimizationAggressive
)

// Pass is a single graph-to-graph rewrite. Apply receives the graph and the
// roots that must stay alive (outputs and update values) and returns the
// rewritten graph with the corresponding roots.
type Pass interface {
	Name() string
	Apply(g *graph.Graph, roots []*graph.Node) (*graph.Graph, []*graph.Node, error)
}

// PreconditionError reports a graph that violates what a pass assumes, e.g. a
// node kind the pass cannot handle. It signals a bug in the pass ordering or
// in a custom pass, not in the user's graph.
type PreconditionError struct {
	Pass    string
	Message string
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("rewrite pass %q: precondition violated: %s", e.Pass, e.Message)
}

// Preconditionf creates a *PreconditionError with a formatted message.
func Preconditionf(pass, format string, args ...any) error {
	return &PreconditionError{Pass: pass, Message: fmt.Sprintf(format, args...)}
}

// Pipeline is an ordered list of passes applied in sequence.
type Pipeline struct {
	passes []Pass
}

// NewPipeline assembles the standard passes for the given level. The order is
// fixed: simplify, fuse, inplace -- fusion sees the simplified graph, and
// in-place marks are only valid on the final graph.
func NewPipeline(level OptimizationLevel) *Pipeline {
	p := &Pipeline{}
	if level >= OptimizationSimplify {
		p.Append(Simplify())
	}
	if level >= OptimizationAggressive {
		p.Append(Fuse())
	}
	if level >= OptimizationStandard {
		p.Append(Inplace())
	}
	return p
}

// Append adds a pass at the end of the pipeline.
func (p *Pipeline) Append(pass Pass) *Pipeline {
	p.passes = append(p.passes, pass)
	return p
}

// Passes lists the pipeline's passes, in application order.
func (p *Pipeline) Passes() []Pass { return p.passes }

// Run applies the passes in order. The given graph is not modified (but the
// final graph, which may be the input one for an empty pipeline, gets the
// in-place marks).
func (p *Pipeline) Run(g *graph.Graph, roots []*graph.Node) (*graph.Graph, []*graph.Node, error) {
	for _, pass := range p.passes {
		before := g.NumNodes()
		var err error
		g, roots, err = pass.Apply(g, roots)
		if err != nil {
			return nil, nil, err
		}
		klog.V(1).Infof("rewrite pass %q on graph %q: %d nodes -> %d nodes", pass.Name(), g.Name(), before, g.NumNodes())
	}
	return g, roots, nil
}
