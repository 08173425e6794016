// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exec

import (
	"github.com/gomlx/symgraph/graph"
)

// compiledStep executes one node with everything pre-resolved at compile time.
type compiledStep func(env *execEnv) error

// compileSteps lowers the program into the compiled engine's flat list of
// closures: per node, the kernel lookup happens here, once, instead of on
// every call.
func compileSteps(p *program) []compiledStep {
	steps := make([]compiledStep, 0, len(p.order))
	for _, node := range p.order {
		var kernel kernelFn
		if !isSpecialOp(node.Type()) {
			kernel = kernels[node.Type()]
		}
		steps = append(steps, bindStep(node, kernel))
	}
	return steps
}

func bindStep(node *graph.Node, kernel kernelFn) compiledStep {
	return func(env *execEnv) error {
		return env.executeNodeWith(node, kernel)
	}
}

// runCompiled executes the pre-bound steps in order.
func (env *execEnv) runCompiled(steps []compiledStep) error {
	for _, step := range steps {
		if err := step(env); err != nil {
			return err
		}
	}
	return nil
}
