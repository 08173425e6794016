// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"fmt"

	"github.com/gomlx/symgraph/graph"
	"github.com/gomlx/symgraph/ops"
	"github.com/gomlx/symgraph/types/tensors"
)

// DivergenceError reports the first node whose value differs between the
// interpreted and the compiled engines, when running under ExecutionVerify.
type DivergenceError struct {
	Node *graph.Node

	// Interpreted and Compiled are the two values computed for Node.
	Interpreted *tensors.Tensor
	Compiled    *tensors.Tensor
}

// Error implements the error interface.
func (e *DivergenceError) Error() string {
	return fmt.Sprintf("engines diverged at node #%d %s: interpreted=%s, compiled=%s",
		e.Node.Id(), e.Node, e.Interpreted, e.Compiled)
}

// runVerify executes the program on both engines, with buffer recycling and
// in-place stealing disabled so every intermediate stays comparable, and
// checks the values node by node. env must have its parameters bound and
// retainAll set; the comparison runs against a second environment with the
// same bindings.
func (env *execEnv) runVerify(steps []compiledStep) error {
	other := newExecEnv(env.prog, true)
	env.prog.graph.Nodes(func(node *graph.Node) {
		if node.Type() == ops.OpTypeParameter && env.results[node.Id()] != nil {
			other.bind(node, env.results[node.Id()])
		}
	})
	if err := env.runSequential(); err != nil {
		return err
	}
	if err := other.runCompiled(steps); err != nil {
		return err
	}
	for _, node := range env.prog.order {
		a, b := env.results[node.Id()], other.results[node.Id()]
		if a == nil && b == nil {
			continue
		}
		if !a.Equal(b) {
			return &DivergenceError{Node: node, Interpreted: a, Compiled: b}
		}
	}
	return nil
}
